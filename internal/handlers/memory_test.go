package handlers

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/sharptier/cms/internal/model"
	"github.com/sharptier/cms/internal/store"
)

// memRepo is an in-memory stand-in for the SQL stores. Documents are copied
// through JSON on the way in and out, as they would be through JSONB columns.
type memRepo[T any] struct {
	mu    sync.Mutex
	next  int64
	docs  map[int64][]byte
	id    func(*T) *int64
	slug  func(*T) string
	title func(*T) string
}

func newMemRepo[T any](id func(*T) *int64, slug, title func(*T) string) *memRepo[T] {
	return &memRepo[T]{docs: make(map[int64][]byte), id: id, slug: slug, title: title}
}

func (r *memRepo[T]) decode(raw []byte) *T {
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}

func (r *memRepo[T]) find(match func(*T) bool) *T {
	ids := make([]int64, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if doc := r.decode(r.docs[id]); match(doc) {
			return doc
		}
	}
	return nil
}

func (r *memRepo[T]) slugTaken(doc *T) bool {
	if r.slug == nil {
		return false
	}
	other := r.find(func(d *T) bool { return r.slug(d) == r.slug(doc) })
	return other != nil && *r.id(other) != *r.id(doc)
}

func (r *memRepo[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	return r.decode(raw), nil
}

func (r *memRepo[T]) GetBySlug(ctx context.Context, slug string) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(d *T) bool { return r.slug(d) == slug }), nil
}

func (r *memRepo[T]) GetByTitle(ctx context.Context, title string) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(d *T) bool { return r.title(d) == title }), nil
}

func (r *memRepo[T]) GetAll(ctx context.Context) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []T
	r.find(func(d *T) bool {
		out = append(out, *d)
		return false
	})
	return out, nil
}

func (r *memRepo[T]) GetAllSorted(ctx context.Context, sortBy, order string) ([]T, error) {
	return r.GetAll(ctx)
}

func (r *memRepo[T]) Create(ctx context.Context, doc *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slugTaken(doc) {
		return store.ErrConflict
	}
	r.next++
	*r.id(doc) = r.next
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	r.docs[r.next] = raw
	return nil
}

func (r *memRepo[T]) Update(ctx context.Context, doc *T) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := *r.id(doc)
	if _, ok := r.docs[id]; !ok {
		return false, nil
	}
	if r.slugTaken(doc) {
		return false, store.ErrConflict
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}
	r.docs[id] = raw
	return true, nil
}

func (r *memRepo[T]) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return false, nil
	}
	delete(r.docs, id)
	return true, nil
}

func newTemplateRepo() *memRepo[model.Template] {
	return newMemRepo(func(t *model.Template) *int64 { return &t.ID }, nil,
		func(t *model.Template) string { return t.Title })
}

func newPageRepo() *memRepo[model.Page] {
	return newMemRepo(func(p *model.Page) *int64 { return &p.ID },
		func(p *model.Page) string { return p.Slug }, nil)
}

func newPostRepo() *memRepo[model.Post] {
	return newMemRepo(func(p *model.Post) *int64 { return &p.ID },
		func(p *model.Post) string { return p.Slug }, nil)
}

func newRedirectRepo() *memRepo[model.Redirect] {
	return newMemRepo(func(r *model.Redirect) *int64 { return &r.ID }, nil, nil)
}

type memSlugs struct {
	pages *memRepo[model.Page]
	posts *memRepo[model.Post]
}

func (s memSlugs) FindSlug(ctx context.Context, collection string, id int64) (string, error) {
	switch collection {
	case model.CollectionPages:
		p, err := s.pages.GetByID(ctx, id)
		if p == nil || err != nil {
			return "", err
		}
		return p.Slug, nil
	case model.CollectionPosts:
		p, err := s.posts.GetByID(ctx, id)
		if p == nil || err != nil {
			return "", err
		}
		return p.Slug, nil
	}
	return "", nil
}
