package model

// RichText is a Lexical editor state document
type RichText struct {
	Root Node `json:"root" yaml:"root"`
}

// Node is one element of a rich text tree. Only the fields relevant to the
// node's Type are set.
type Node struct {
	Type      string      `json:"type" yaml:"type"`
	Version   int         `json:"version,omitempty" yaml:"version,omitempty"`
	Tag       string      `json:"tag,omitempty" yaml:"tag,omitempty"`
	ListType  string      `json:"listType,omitempty" yaml:"listType,omitempty"`
	Text      string      `json:"text,omitempty" yaml:"text,omitempty"`
	Format    any         `json:"format,omitempty" yaml:"format,omitempty"`
	Direction string      `json:"direction,omitempty" yaml:"direction,omitempty"`
	Indent    int         `json:"indent,omitempty" yaml:"indent,omitempty"`
	Fields    *LinkFields `json:"fields,omitempty" yaml:"fields,omitempty"`
	Children  []Node      `json:"children,omitempty" yaml:"children,omitempty"`
}

// LinkFields carries the target of a link node
type LinkFields struct {
	LinkType string        `json:"linkType,omitempty" yaml:"linkType,omitempty"`
	URL      string        `json:"url,omitempty" yaml:"url,omitempty"`
	NewTab   bool          `json:"newTab,omitempty" yaml:"newTab,omitempty"`
	Doc      *LinkDocument `json:"doc,omitempty" yaml:"doc,omitempty"`
}

// LinkDocument is an internal link target
type LinkDocument struct {
	RelationTo string `json:"relationTo" yaml:"relationTo"`
	Value      DocRef `json:"value" yaml:"value"`
}

// Text format bits used by Lexical text nodes
const (
	FormatBold = 1 << iota
	FormatItalic
	FormatStrikethrough
	FormatUnderline
	FormatCode
)

// TextFormat returns the bitmask of a text node. Lexical stores it as a
// number on text nodes and as an alignment string on element nodes.
func (n Node) TextFormat() int {
	switch f := n.Format.(type) {
	case int:
		return f
	case float64:
		return int(f)
	default:
		return 0
	}
}

// Clone returns a deep copy of the document
func (r *RichText) Clone() *RichText {
	if r == nil {
		return nil
	}
	return &RichText{Root: r.Root.clone()}
}

func (n Node) clone() Node {
	out := n
	if n.Fields != nil {
		f := *n.Fields
		if n.Fields.Doc != nil {
			d := *n.Fields.Doc
			d.Value = d.Value.Clone()
			f.Doc = &d
		}
		out.Fields = &f
	}
	if n.Children != nil {
		out.Children = make([]Node, len(n.Children))
		for i := range n.Children {
			out.Children[i] = n.Children[i].clone()
		}
	}
	return out
}

// PlainText concatenates the text of every node in document order
func (r *RichText) PlainText() string {
	if r == nil {
		return ""
	}
	var out []byte
	var walk func(Node)
	walk = func(n Node) {
		out = append(out, n.Text...)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(r.Root)
	return string(out)
}
