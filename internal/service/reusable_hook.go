package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sharptier/cms/internal/model"
)

// TemplateFinder looks up templates by id. A missing template is (nil, nil).
type TemplateFinder interface {
	GetByID(ctx context.Context, id int64) (*model.Template, error)
}

// ReusableContentHook keeps a reusable content block's own content in step
// with its overrideContent flag when the owning document is written.
type ReusableContentHook struct {
	templates TemplateFinder
	logger    *zap.Logger
}

// NewReusableContentHook creates a ReusableContentHook
func NewReusableContentHook(templates TemplateFinder, logger *zap.Logger) *ReusableContentHook {
	return &ReusableContentHook{templates: templates, logger: logger}
}

// BeforeChange runs for the overrideContent field of one block. value is the
// incoming flag and sibling the block being written; sibling is modified in place.
//
// Turning override on with no content snapshots the template's content.
// Turning it off discards whatever content was staged.
func (h *ReusableContentHook) BeforeChange(ctx context.Context, value bool, sibling *model.Block) {
	if !value {
		sibling.Content = nil
		return
	}

	if !sibling.Template.Set() || len(sibling.Content) > 0 {
		return
	}

	tpl, err := h.templates.GetByID(ctx, sibling.Template.ID)
	if err != nil {
		h.logger.Warn("Template lookup failed, leaving content empty",
			zap.Int64("template", sibling.Template.ID), zap.Error(err))
		return
	}
	if tpl == nil {
		h.logger.Warn("Template not found, leaving content empty", zap.Int64("template", sibling.Template.ID))
		return
	}

	sibling.Content = model.CloneBlocks(tpl.Content)
	clearIDs(sibling.Content)
}

// clearIDs drops row ids so the copy gets its own when it is stored
func clearIDs(blocks []model.Block) {
	for i := range blocks {
		blocks[i].ID = ""
		clearIDs(blocks[i].Content)
	}
}

// Apply runs BeforeChange for every reusable content block in blocks,
// including blocks nested in staged content.
func (h *ReusableContentHook) Apply(ctx context.Context, blocks []model.Block) {
	for i := range blocks {
		b := &blocks[i]
		if b.BlockType == model.BlockTypeReusableContent {
			h.BeforeChange(ctx, b.OverrideContent, b)
		}
		if len(b.Content) > 0 {
			h.Apply(ctx, b.Content)
		}
	}
}
