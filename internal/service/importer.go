package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sharptier/cms/internal/model"
)

// Seed is the content of an import file
type Seed struct {
	Templates []model.Template `yaml:"templates"`
	Pages     []model.Page     `yaml:"pages"`
	Posts     []model.Post     `yaml:"posts"`
	Redirects []model.Redirect `yaml:"redirects"`
}

// LoadSeed decodes a YAML seed file
func LoadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &seed, nil
}

// ImportStats tracks import statistics
type ImportStats struct {
	Total   int
	Created int
	Updated int
	Failed  int
}

// Importer writes seed content through the services so hooks and
// validation run exactly as they do for API writes.
type Importer struct {
	content   *ContentService
	redirects *RedirectService
	logger    *zap.Logger

	templateIDs map[string]int64
}

// NewImporter creates a new Importer
func NewImporter(content *ContentService, redirects *RedirectService, logger *zap.Logger) *Importer {
	return &Importer{
		content:     content,
		redirects:   redirects,
		logger:      logger,
		templateIDs: make(map[string]int64),
	}
}

// Import saves templates first so pages can reference them by title, then
// pages, posts and finally redirects, which may reference pages and posts
// by slug. Existing documents with the same title or slug are updated.
func (i *Importer) Import(ctx context.Context, seed *Seed) (*ImportStats, error) {
	stats := &ImportStats{
		Total: len(seed.Templates) + len(seed.Pages) + len(seed.Posts) + len(seed.Redirects),
	}

	for idx := range seed.Templates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		t := &seed.Templates[idx]
		i.record(stats, "template", t.Title, i.importTemplate(ctx, t))
	}

	for idx := range seed.Pages {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		p := &seed.Pages[idx]
		i.record(stats, "page", p.Slug, i.importPage(ctx, p))
	}

	for idx := range seed.Posts {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		p := &seed.Posts[idx]
		i.record(stats, "post", p.Slug, i.importPost(ctx, p))
	}

	for idx := range seed.Redirects {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		r := &seed.Redirects[idx]
		i.record(stats, "redirect", r.From, i.importRedirect(ctx, r))
	}

	return stats, nil
}

type importResult struct {
	updated bool
	err     error
}

func (i *Importer) record(stats *ImportStats, kind, name string, res importResult) {
	switch {
	case res.err != nil:
		i.logger.Error("Failed to import", zap.String("kind", kind), zap.String("name", name), zap.Error(res.err))
		stats.Failed++
	case res.updated:
		i.logger.Info("Updated", zap.String("kind", kind), zap.String("name", name))
		stats.Updated++
	default:
		i.logger.Info("Created", zap.String("kind", kind), zap.String("name", name))
		stats.Created++
	}
}

func (i *Importer) importTemplate(ctx context.Context, t *model.Template) importResult {
	existing, err := i.content.Templates().GetByTitle(ctx, t.Title)
	if err != nil {
		return importResult{err: err}
	}
	if existing != nil {
		t.ID = existing.ID
	}
	if err := i.content.SaveTemplate(ctx, t); err != nil {
		return importResult{err: err}
	}
	i.templateIDs[t.Title] = t.ID
	return importResult{updated: existing != nil}
}

func (i *Importer) importPage(ctx context.Context, p *model.Page) importResult {
	if err := i.resolveTemplates(ctx, p.Layout); err != nil {
		return importResult{err: err}
	}
	for idx := range p.Hero.Links {
		if err := i.resolveReference(ctx, p.Hero.Links[idx].Link.Reference); err != nil {
			return importResult{err: err}
		}
	}
	existing, err := i.content.Pages().GetBySlug(ctx, p.Slug)
	if err != nil {
		return importResult{err: err}
	}
	if existing != nil {
		p.ID = existing.ID
	}
	return importResult{updated: existing != nil, err: i.content.SavePage(ctx, p)}
}

func (i *Importer) importPost(ctx context.Context, p *model.Post) importResult {
	if err := i.resolveTemplates(ctx, p.Content); err != nil {
		return importResult{err: err}
	}
	existing, err := i.content.Posts().GetBySlug(ctx, p.Slug)
	if err != nil {
		return importResult{err: err}
	}
	if existing != nil {
		p.ID = existing.ID
	}
	return importResult{updated: existing != nil, err: i.content.SavePost(ctx, p)}
}

func (i *Importer) importRedirect(ctx context.Context, r *model.Redirect) importResult {
	if err := i.resolveReference(ctx, r.To.Reference); err != nil {
		return importResult{err: err}
	}

	existing, err := i.redirects.Redirects().GetAll(ctx)
	if err != nil {
		return importResult{err: err}
	}
	updated := false
	for _, e := range existing {
		if e.From == r.From {
			r.ID = e.ID
			updated = true
			break
		}
	}
	return importResult{updated: updated, err: i.redirects.Save(ctx, r)}
}

// resolveReference replaces a slug written in place of a document id
func (i *Importer) resolveReference(ctx context.Context, ref *model.Reference) error {
	if ref == nil || ref.Value.ID != 0 || ref.Value.Slug == "" {
		return nil
	}
	id, err := i.documentID(ctx, ref.RelationTo, ref.Value.Slug)
	if err != nil {
		return err
	}
	ref.Value = model.DocRef{ID: id}
	return nil
}

func (i *Importer) documentID(ctx context.Context, collection, slug string) (int64, error) {
	switch collection {
	case model.CollectionPages:
		p, err := i.content.Pages().GetBySlug(ctx, slug)
		if err != nil || p == nil {
			return 0, errors.Join(fmt.Errorf("page %q not found", slug), err)
		}
		return p.ID, nil
	case model.CollectionPosts:
		p, err := i.content.Posts().GetBySlug(ctx, slug)
		if err != nil || p == nil {
			return 0, errors.Join(fmt.Errorf("post %q not found", slug), err)
		}
		return p.ID, nil
	default:
		return 0, fmt.Errorf("collection %q is not routable", collection)
	}
}

// resolveTemplates replaces template title lookups with ids
func (i *Importer) resolveTemplates(ctx context.Context, blocks []model.Block) error {
	for idx := range blocks {
		ref := blocks[idx].Template
		if ref == nil || ref.ID != 0 || ref.Lookup == "" {
			continue
		}

		id, ok := i.templateIDs[ref.Lookup]
		if !ok {
			t, err := i.content.Templates().GetByTitle(ctx, ref.Lookup)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("template %q not found", ref.Lookup)
			}
			id = t.ID
			i.templateIDs[ref.Lookup] = id
		}
		blocks[idx].Template = &model.TemplateRef{ID: id}
	}
	return nil
}

// LogSummary writes the import totals
func (i *Importer) LogSummary(stats *ImportStats) {
	i.logger.Info("Import complete",
		zap.Int("total", stats.Total),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("failed", stats.Failed))
}
