package model

// BlockType identifies the kind of a layout block
type BlockType string

const (
	BlockTypeContent         BlockType = "content"
	BlockTypeReusableContent BlockType = "reusableContent"
)

// TemplateBlocks lists the block kinds allowed in Templates.content and
// ReusableContent.content. Both fields must accept the same set.
var TemplateBlocks = []BlockType{BlockTypeContent}

// AllowedInTemplates reports whether t may appear inside template content
func AllowedInTemplates(t BlockType) bool {
	for _, allowed := range TemplateBlocks {
		if allowed == t {
			return true
		}
	}
	return false
}

// Block is a single entry in an ordered block sequence. BlockType selects
// which of the variant fields are meaningful.
type Block struct {
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	BlockName string    `json:"blockName,omitempty" yaml:"blockName,omitempty"`
	BlockType BlockType `json:"blockType" yaml:"blockType"`

	// content
	RichText *RichText `json:"richText,omitempty" yaml:"richText,omitempty"`

	// reusableContent
	Template        *TemplateRef `json:"template,omitempty" yaml:"template,omitempty"`
	OverrideContent bool         `json:"overrideContent,omitempty" yaml:"overrideContent,omitempty"`
	Content         []Block      `json:"content,omitempty" yaml:"content,omitempty"`
}

// Clone returns a deep copy of the block that shares no memory with b
func (b Block) Clone() Block {
	out := b
	out.RichText = b.RichText.Clone()
	out.Template = b.Template.Clone()
	out.Content = CloneBlocks(b.Content)
	return out
}

// CloneBlocks deep copies a block sequence, preserving order. A nil input
// stays nil so "absent" and "empty" remain distinguishable.
func CloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i := range blocks {
		out[i] = blocks[i].Clone()
	}
	return out
}

// ResolvedContent returns the blocks a reusable content block renders:
// its own content in override mode, otherwise the referenced template's
// live content if the relationship is populated.
func (b Block) ResolvedContent() []Block {
	if b.OverrideContent {
		return b.Content
	}
	if b.Template != nil && b.Template.Value != nil {
		return b.Template.Value.Content
	}
	return nil
}
