package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sharptier/cms/internal/model"
)

// ErrNotFound is returned when the document being written does not exist
var ErrNotFound = errors.New("document not found")

// ValidationError reports an invalid field on a write
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// normalizeBlocks validates a block sequence and prepares it for storage:
// rows get ids and relationships are reduced to their ids.
func normalizeBlocks(field string, blocks []model.Block, allowed func(model.BlockType) bool) error {
	for i := range blocks {
		b := &blocks[i]
		path := fmt.Sprintf("%s.%d", field, i)

		if !allowed(b.BlockType) {
			return invalid(path+".blockType", "block type %q is not allowed here", b.BlockType)
		}
		if b.ID == "" {
			b.ID = uuid.NewString()
		}

		switch b.BlockType {
		case model.BlockTypeContent:
			b.Template = nil
			b.OverrideContent = false
			b.Content = nil
		case model.BlockTypeReusableContent:
			if !b.Template.Set() {
				return invalid(path+".template", "this field is required")
			}
			b.Template = b.Template.Shallow()
			b.RichText = nil
			if err := normalizeBlocks(path+".content", b.Content, model.AllowedInTemplates); err != nil {
				return err
			}
		}
	}
	return nil
}

// normalizeLinks validates link fields and reduces document references to
// their ids
func normalizeLinks(field string, links []model.LinkItem) error {
	for i := range links {
		item := &links[i]
		l := &item.Link
		path := fmt.Sprintf("%s.%d.link", field, i)

		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if l.Type == "" {
			l.Type = model.LinkCustom
			if l.Reference != nil {
				l.Type = model.LinkReference
			}
		}

		switch l.Type {
		case model.LinkCustom:
			if l.URL == "" {
				return invalid(path+".url", "this field is required")
			}
			l.Reference = nil
		case model.LinkReference:
			if l.Reference == nil || l.Reference.Value.ID == 0 {
				return invalid(path+".reference", "this field is required")
			}
			if _, ok := routable[l.Reference.RelationTo]; !ok {
				return invalid(path+".reference.relationTo", "must be one of pages, posts")
			}
			l.URL = ""
			l.Reference.Value = model.DocRef{ID: l.Reference.Value.ID}
		default:
			return invalid(path+".type", "must be custom or reference")
		}
	}
	return nil
}

func layoutBlock(t model.BlockType) bool {
	return t == model.BlockTypeContent || t == model.BlockTypeReusableContent
}

func validateSlug(slug string) error {
	if slug == "" {
		return invalid("slug", "this field is required")
	}
	if strings.ContainsAny(slug, "/ ?#") {
		return invalid("slug", "must not contain '/', spaces, '?' or '#'")
	}
	return nil
}
