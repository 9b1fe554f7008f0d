package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sharptier/cms/internal/model"
)

// DefaultCacheTTL bounds how long redirects and document slugs are cached
// when nothing invalidates them sooner.
const DefaultCacheTTL = 5 * time.Minute

// RedirectRepository persists the redirect table
type RedirectRepository interface {
	GetAll(ctx context.Context) ([]model.Redirect, error)
	GetByID(ctx context.Context, id int64) (*model.Redirect, error)
	Create(ctx context.Context, r *model.Redirect) error
	Update(ctx context.Context, r *model.Redirect) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// SlugFinder returns a document's slug, or "" when it does not exist
type SlugFinder interface {
	FindSlug(ctx context.Context, collection string, id int64) (string, error)
}

// Outcome is the result kind of a redirect lookup
type Outcome int

const (
	// Continue means no redirect applies and rendering should proceed
	Continue Outcome = iota
	// Redirect means the request should be sent to Decision.Location
	Redirect
	// NotFound means the request should be answered with the not-found page
	NotFound
)

// Decision is what a request path resolves to
type Decision struct {
	Outcome  Outcome
	Location string
}

// RedirectService resolves request paths against the redirect table
type RedirectService struct {
	redirects RedirectRepository
	documents SlugFinder
	logger    *zap.Logger

	table *ttlCache[[]model.Redirect]
	slugs *ttlCache[string]
}

// NewRedirectService creates a RedirectService with cached lookups
func NewRedirectService(redirects RedirectRepository, documents SlugFinder, ttl time.Duration, logger *zap.Logger) *RedirectService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedirectService{
		redirects: redirects,
		documents: documents,
		logger:    logger,
		table:     newTTLCache[[]model.Redirect](ttl, nil),
		slugs:     newTTLCache[string](ttl, nil),
	}
}

// Resolve finds a redirect whose from matches url exactly. A literal URL
// destination wins; otherwise the referenced document's path is used. When
// nothing resolves, the result is NotFound unless disableNotFound is set.
func (s *RedirectService) Resolve(ctx context.Context, url string, disableNotFound bool) (Decision, error) {
	redirects, err := s.table.get(ctx, "redirects", s.redirects.GetAll)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load redirects: %w", err)
	}

	for _, r := range redirects {
		if r.From != url {
			continue
		}

		location, err := s.destination(ctx, r.To)
		if err != nil {
			return Decision{}, err
		}
		if location != "" {
			return Decision{Outcome: Redirect, Location: location}, nil
		}

		s.logger.Debug("Redirect has no resolvable destination", zap.String("from", r.From))
		break
	}

	if disableNotFound {
		return Decision{Outcome: Continue}, nil
	}
	return Decision{Outcome: NotFound}, nil
}

func (s *RedirectService) destination(ctx context.Context, to model.RedirectTo) (string, error) {
	if to.URL != "" {
		return to.URL, nil
	}

	ref := to.Reference
	if ref == nil || ref.RelationTo == "" {
		return "", nil
	}

	if ref.Value.Populated() {
		if ref.Value.Slug == "" {
			return "", nil
		}
		return model.DocumentPath(ref.RelationTo, ref.Value.Slug), nil
	}

	if ref.Value.ID == 0 {
		return "", nil
	}

	key := fmt.Sprintf("%s/%d", ref.RelationTo, ref.Value.ID)
	slug, err := s.slugs.get(ctx, key, func(ctx context.Context) (string, error) {
		return s.documents.FindSlug(ctx, ref.RelationTo, ref.Value.ID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", key, err)
	}
	if slug == "" {
		return "", nil
	}
	return model.DocumentPath(ref.RelationTo, slug), nil
}

// Invalidate drops cached data affected by a write to collection
func (s *RedirectService) Invalidate(collection string) {
	switch collection {
	case model.CollectionRedirects:
		s.table.invalidate()
	case model.CollectionPages, model.CollectionPosts:
		s.slugs.invalidate()
	}
}

// Redirects exposes the redirect repository for reads
func (s *RedirectService) Redirects() RedirectRepository { return s.redirects }

// Save validates and creates or updates a redirect, then drops the cached table
func (s *RedirectService) Save(ctx context.Context, r *model.Redirect) error {
	if r.From == "" {
		return invalid("from", "this field is required")
	}
	if r.To.Type == "" {
		r.To.Type = model.LinkReference
		if r.To.URL != "" {
			r.To.Type = model.LinkCustom
		}
	}
	switch r.To.Type {
	case model.LinkCustom:
		if r.To.URL == "" {
			return invalid("to.url", "this field is required")
		}
		r.To.Reference = nil
	case model.LinkReference:
		if r.To.Reference == nil || r.To.Reference.Value.ID == 0 {
			return invalid("to.reference", "this field is required")
		}
		if _, ok := routable[r.To.Reference.RelationTo]; !ok {
			return invalid("to.reference.relationTo", "must be one of pages, posts")
		}
		r.To.URL = ""
		r.To.Reference.Value = model.DocRef{ID: r.To.Reference.Value.ID}
	default:
		return invalid("to.type", "must be custom or reference")
	}

	if r.ID == 0 {
		if err := s.redirects.Create(ctx, r); err != nil {
			return err
		}
	} else {
		found, err := s.redirects.Update(ctx, r)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
	}

	s.Invalidate(model.CollectionRedirects)
	return nil
}

// Delete removes a redirect and drops the cached table
func (s *RedirectService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.redirects.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.Invalidate(model.CollectionRedirects)
	return nil
}

var routable = map[string]struct{}{
	model.CollectionPages: {},
	model.CollectionPosts: {},
}
