package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/sharptier/cms/internal/model"
)

type fakeTemplates struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]model.Template
	lookups atomic.Int32
	err     error
}

func newFakeTemplates(templates ...model.Template) *fakeTemplates {
	f := &fakeTemplates{byID: make(map[int64]model.Template)}
	for _, t := range templates {
		f.byID[t.ID] = t.Clone()
		if t.ID > f.nextID {
			f.nextID = t.ID
		}
	}
	return f
}

func (f *fakeTemplates) GetByID(_ context.Context, id int64) (*model.Template, error) {
	f.lookups.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	// Hand out the stored value itself so tests can detect aliasing.
	return &t, nil
}

func (f *fakeTemplates) GetByTitle(_ context.Context, title string) (*model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byID {
		if t.Title == title {
			out := t.Clone()
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeTemplates) GetAllSorted(context.Context, string, string) ([]model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Template, 0, len(f.byID))
	for _, t := range f.byID {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTemplates) Create(_ context.Context, t *model.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	f.byID[t.ID] = t.Clone()
	return nil
}

func (f *fakeTemplates) Update(_ context.Context, t *model.Template) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[t.ID]; !ok {
		return false, nil
	}
	f.byID[t.ID] = t.Clone()
	return true, nil
}

func (f *fakeTemplates) Delete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	delete(f.byID, id)
	return ok, nil
}

// mutate edits the stored template in place
func (f *fakeTemplates) mutate(id int64, fn func(*model.Template)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.byID[id]
	fn(&t)
	f.byID[id] = t
}

type fakePages struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]model.Page
}

func newFakePages() *fakePages {
	return &fakePages{byID: make(map[int64]model.Page)}
}

func (f *fakePages) GetByID(_ context.Context, id int64) (*model.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePages) GetBySlug(_ context.Context, slug string) (*model.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakePages) GetAllSorted(context.Context, string, string) ([]model.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Page, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePages) Create(_ context.Context, p *model.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.byID[p.ID] = *p
	return nil
}

func (f *fakePages) Update(_ context.Context, p *model.Page) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[p.ID]; !ok {
		return false, nil
	}
	f.byID[p.ID] = *p
	return true, nil
}

func (f *fakePages) Delete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	delete(f.byID, id)
	return ok, nil
}

type fakePosts struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]model.Post
}

func newFakePosts() *fakePosts {
	return &fakePosts{byID: make(map[int64]model.Post)}
}

func (f *fakePosts) GetByID(_ context.Context, id int64) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePosts) GetBySlug(_ context.Context, slug string) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakePosts) GetAllSorted(context.Context, string, string) ([]model.Post, error) {
	return nil, nil
}

func (f *fakePosts) Create(_ context.Context, p *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.byID[p.ID] = *p
	return nil
}

func (f *fakePosts) Update(_ context.Context, p *model.Post) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[p.ID]; !ok {
		return false, nil
	}
	f.byID[p.ID] = *p
	return true, nil
}

func (f *fakePosts) Delete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	delete(f.byID, id)
	return ok, nil
}

type fakeRedirects struct {
	mu     sync.Mutex
	nextID int64
	items  []model.Redirect
	loads  atomic.Int32
	err    error
}

func (f *fakeRedirects) GetAll(context.Context) ([]model.Redirect, error) {
	f.loads.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Redirect(nil), f.items...), nil
}

func (f *fakeRedirects) GetByID(_ context.Context, id int64) (*model.Redirect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.items {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeRedirects) Create(_ context.Context, r *model.Redirect) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	f.items = append(f.items, *r)
	return nil
}

func (f *fakeRedirects) Update(_ context.Context, r *model.Redirect) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == r.ID {
			f.items[i] = *r
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRedirects) Delete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeSlugs struct {
	slugs map[string]string
	calls atomic.Int32
}

func (f *fakeSlugs) FindSlug(_ context.Context, collection string, id int64) (string, error) {
	f.calls.Add(1)
	if collection == "broken" {
		return "", errors.New("boom")
	}
	return f.slugs[collection+"/"+strconv.FormatInt(id, 10)], nil
}

func textBlock(id, text string) model.Block {
	return model.Block{
		ID:        id,
		BlockType: model.BlockTypeContent,
		RichText: &model.RichText{Root: model.Node{
			Type:     "root",
			Children: []model.Node{{Type: "paragraph", Children: []model.Node{{Type: "text", Text: text}}}},
		}},
	}
}
