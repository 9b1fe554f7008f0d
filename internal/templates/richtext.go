package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/sharptier/cms/internal/model"
)

var headingTags = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true}

// RichText renders a Lexical document. Nodes of unknown type render their
// children only.
func RichText(rt *model.RichText, class string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if rt == nil {
			return nil
		}
		h := &htmlWriter{w: w}
		h.raw(`<div`)
		if class != "" {
			h.attr("class", class)
		}
		h.raw(">")
		writeNodes(h, rt.Root.Children)
		h.raw("</div>")
		return h.err
	})
}

func writeNodes(h *htmlWriter, nodes []model.Node) {
	for _, n := range nodes {
		writeNode(h, n)
	}
}

func writeNode(h *htmlWriter, n model.Node) {
	switch n.Type {
	case "text":
		writeText(h, n)
	case "linebreak":
		h.raw("<br>")
	case "horizontalrule":
		h.raw("<hr>")
	case "paragraph":
		wrap(h, "p", n)
	case "quote":
		wrap(h, "blockquote", n)
	case "listitem":
		wrap(h, "li", n)
	case "heading":
		tag := n.Tag
		if !headingTags[tag] {
			tag = "h2"
		}
		wrap(h, tag, n)
	case "list":
		tag := "ul"
		if n.ListType == "number" || n.Tag == "ol" {
			tag = "ol"
		}
		wrap(h, tag, n)
	case "link", "autolink":
		writeLink(h, n)
	default:
		writeNodes(h, n.Children)
	}
}

func wrap(h *htmlWriter, tag string, n model.Node) {
	h.raw("<" + tag)
	if n.Indent > 0 && n.Type != "listitem" {
		h.attr("style", indentStyle(n.Indent))
	}
	h.raw(">")
	writeNodes(h, n.Children)
	h.raw("</" + tag + ">")
}

// text formats nest outermost first
var formatTags = []struct {
	bit int
	tag string
}{
	{model.FormatBold, "strong"},
	{model.FormatItalic, "em"},
	{model.FormatUnderline, "u"},
	{model.FormatStrikethrough, "s"},
	{model.FormatCode, "code"},
}

func writeText(h *htmlWriter, n model.Node) {
	format := n.TextFormat()
	for _, f := range formatTags {
		if format&f.bit != 0 {
			h.raw("<" + f.tag + ">")
		}
	}
	h.text(n.Text)
	for i := len(formatTags) - 1; i >= 0; i-- {
		if format&formatTags[i].bit != 0 {
			h.raw("</" + formatTags[i].tag + ">")
		}
	}
}

func writeLink(h *htmlWriter, n model.Node) {
	href := ""
	newTab := false
	if f := n.Fields; f != nil {
		newTab = f.NewTab
		href = f.URL
		if f.LinkType == "internal" && f.Doc != nil {
			href = model.Link{
				Type:      model.LinkReference,
				Reference: &model.Reference{RelationTo: f.Doc.RelationTo, Value: f.Doc.Value},
			}.Href()
		}
	}
	if href == "" {
		writeNodes(h, n.Children)
		return
	}
	h.raw("<a")
	h.href(href)
	if newTab {
		h.raw(` target="_blank" rel="noopener noreferrer"`)
	}
	h.raw(">")
	writeNodes(h, n.Children)
	h.raw("</a>")
}

func indentStyle(indent int) string {
	return "padding-inline-start: " + strconv.Itoa(indent*40) + "px"
}
