package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sharptier/cms/internal/model"
)

// TemplateRepository persists templates
type TemplateRepository interface {
	TemplateFinder
	GetByTitle(ctx context.Context, title string) (*model.Template, error)
	GetAllSorted(ctx context.Context, sortBy, order string) ([]model.Template, error)
	Create(ctx context.Context, t *model.Template) error
	Update(ctx context.Context, t *model.Template) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// PageRepository persists pages
type PageRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Page, error)
	GetBySlug(ctx context.Context, slug string) (*model.Page, error)
	GetAllSorted(ctx context.Context, sortBy, order string) ([]model.Page, error)
	Create(ctx context.Context, p *model.Page) error
	Update(ctx context.Context, p *model.Page) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// PostRepository persists posts
type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	GetAllSorted(ctx context.Context, sortBy, order string) ([]model.Post, error)
	Create(ctx context.Context, p *model.Post) error
	Update(ctx context.Context, p *model.Post) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// ContentService validates and persists templates, pages and posts, running
// field hooks before every write.
type ContentService struct {
	templates TemplateRepository
	pages     PageRepository
	posts     PostRepository
	hook      *ReusableContentHook
	onChange  func(collection string)
	logger    *zap.Logger
}

// NewContentService creates a ContentService. onChange, if set, is called
// after every successful write with the collection that changed.
func NewContentService(templates TemplateRepository, pages PageRepository, posts PostRepository, onChange func(string), logger *zap.Logger) *ContentService {
	if onChange == nil {
		onChange = func(string) {}
	}
	return &ContentService{
		templates: templates,
		pages:     pages,
		posts:     posts,
		hook:      NewReusableContentHook(templates, logger),
		onChange:  onChange,
		logger:    logger,
	}
}

// Templates exposes the template repository for reads
func (s *ContentService) Templates() TemplateRepository { return s.templates }

// Pages exposes the page repository for reads
func (s *ContentService) Pages() PageRepository { return s.pages }

// Posts exposes the post repository for reads
func (s *ContentService) Posts() PostRepository { return s.posts }

// SaveTemplate creates the template when its id is zero, otherwise updates it
func (s *ContentService) SaveTemplate(ctx context.Context, t *model.Template) error {
	if t.Title == "" {
		return invalid("title", "this field is required")
	}
	if t.Content == nil {
		t.Content = []model.Block{}
	}
	if err := normalizeBlocks("content", t.Content, model.AllowedInTemplates); err != nil {
		return err
	}

	if err := s.save(t.ID, func() error { return s.templates.Create(ctx, t) },
		func() (bool, error) { return s.templates.Update(ctx, t) }); err != nil {
		return err
	}
	s.onChange(model.CollectionTemplates)
	return nil
}

// SavePage runs the layout hooks then creates or updates the page
func (s *ContentService) SavePage(ctx context.Context, p *model.Page) error {
	if p.Title == "" {
		return invalid("title", "this field is required")
	}
	if err := validateSlug(p.Slug); err != nil {
		return err
	}
	if p.Hero.Type == "" {
		p.Hero.Type = model.HeroNone
	}
	if err := normalizeLinks("hero.links", p.Hero.Links); err != nil {
		return err
	}
	if p.Layout == nil {
		p.Layout = []model.Block{}
	}

	s.hook.Apply(ctx, p.Layout)
	if err := normalizeBlocks("layout", p.Layout, layoutBlock); err != nil {
		return err
	}

	if err := s.save(p.ID, func() error { return s.pages.Create(ctx, p) },
		func() (bool, error) { return s.pages.Update(ctx, p) }); err != nil {
		return err
	}
	s.onChange(model.CollectionPages)
	return nil
}

// SavePost runs the content hooks then creates or updates the post
func (s *ContentService) SavePost(ctx context.Context, p *model.Post) error {
	if p.Title == "" {
		return invalid("title", "this field is required")
	}
	if err := validateSlug(p.Slug); err != nil {
		return err
	}
	if p.Content == nil {
		p.Content = []model.Block{}
	}

	s.hook.Apply(ctx, p.Content)
	if err := normalizeBlocks("content", p.Content, layoutBlock); err != nil {
		return err
	}

	if err := s.save(p.ID, func() error { return s.posts.Create(ctx, p) },
		func() (bool, error) { return s.posts.Update(ctx, p) }); err != nil {
		return err
	}
	s.onChange(model.CollectionPosts)
	return nil
}

// Delete removes a document from a collection
func (s *ContentService) Delete(ctx context.Context, collection string, id int64) error {
	var deleted bool
	var err error
	switch collection {
	case model.CollectionTemplates:
		deleted, err = s.templates.Delete(ctx, id)
	case model.CollectionPages:
		deleted, err = s.pages.Delete(ctx, id)
	case model.CollectionPosts:
		deleted, err = s.posts.Delete(ctx, id)
	default:
		return fmt.Errorf("unknown collection %q", collection)
	}
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.onChange(collection)
	return nil
}

func (s *ContentService) save(id int64, create func() error, update func() (bool, error)) error {
	if id == 0 {
		return create()
	}
	found, err := update()
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// Populate resolves the template relationships of reusable content blocks
// in place, the equivalent of reading at depth 1. Missing templates leave
// the relationship unpopulated.
func (s *ContentService) Populate(ctx context.Context, blocks []model.Block) error {
	cache := make(map[int64]*model.Template)
	return s.populate(ctx, blocks, cache)
}

func (s *ContentService) populate(ctx context.Context, blocks []model.Block, cache map[int64]*model.Template) error {
	for i := range blocks {
		b := &blocks[i]
		if b.BlockType != model.BlockTypeReusableContent || !b.Template.Set() {
			continue
		}

		tpl, ok := cache[b.Template.ID]
		if !ok {
			var err error
			tpl, err = s.templates.GetByID(ctx, b.Template.ID)
			if err != nil {
				return fmt.Errorf("failed to populate template %d: %w", b.Template.ID, err)
			}
			cache[b.Template.ID] = tpl
		}
		if tpl == nil {
			s.logger.Debug("Referenced template missing", zap.Int64("template", b.Template.ID))
			continue
		}

		clone := tpl.Clone()
		b.Template = &model.TemplateRef{ID: tpl.ID, Value: &clone}
	}
	return nil
}

// PopulateLinks fills in the slugs of documents that links reference, so
// they can be rendered. References to missing documents are left as ids.
func (s *ContentService) PopulateLinks(ctx context.Context, links []model.LinkItem) error {
	for i := range links {
		ref := links[i].Link.Reference
		if links[i].Link.Type != model.LinkReference || ref == nil || ref.Value.Populated() || ref.Value.ID == 0 {
			continue
		}

		var slug string
		switch ref.RelationTo {
		case model.CollectionPages:
			p, err := s.pages.GetByID(ctx, ref.Value.ID)
			if err != nil {
				return fmt.Errorf("failed to populate link to page %d: %w", ref.Value.ID, err)
			}
			if p != nil {
				slug = p.Slug
			}
		case model.CollectionPosts:
			p, err := s.posts.GetByID(ctx, ref.Value.ID)
			if err != nil {
				return fmt.Errorf("failed to populate link to post %d: %w", ref.Value.ID, err)
			}
			if p != nil {
				slug = p.Slug
			}
		}
		if slug != "" {
			ref.Value = model.PopulatedDoc(ref.Value.ID, slug)
		}
	}
	return nil
}
