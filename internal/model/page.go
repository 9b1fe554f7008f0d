package model

import (
	"fmt"
	"time"
)

// Collection slugs
const (
	CollectionPages     = "pages"
	CollectionPosts     = "posts"
	CollectionTemplates = "templates"
	CollectionRedirects = "redirects"
)

// HomeSlug is the slug served at "/"
const HomeSlug = "home"

// Hero types
const (
	HeroNone       = "none"
	HeroHighImpact = "highImpact"
)

// Page is a routable document built from a hero and a block layout
type Page struct {
	ID        int64     `json:"id" yaml:"id,omitempty"`
	Title     string    `json:"title" yaml:"title"`
	Slug      string    `json:"slug" yaml:"slug"`
	Hero      Hero      `json:"hero" yaml:"hero"`
	Layout    []Block   `json:"layout" yaml:"layout"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

// Hero is the top section of a page
type Hero struct {
	Type     string     `json:"type" yaml:"type"`
	RichText *RichText  `json:"richText,omitempty" yaml:"richText,omitempty"`
	Links    []LinkItem `json:"links,omitempty" yaml:"links,omitempty"`
}

// LinkItem wraps a link inside an array field
type LinkItem struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Link Link   `json:"link" yaml:"link"`
}

// Post is a blog-style document under /posts
type Post struct {
	ID        int64     `json:"id" yaml:"id,omitempty"`
	Title     string    `json:"title" yaml:"title"`
	Slug      string    `json:"slug" yaml:"slug"`
	Content   []Block   `json:"content" yaml:"content"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

// Link types
const (
	LinkCustom    = "custom"
	LinkReference = "reference"
)

// Link is a CMS link to either a literal URL or another document
type Link struct {
	Type       string     `json:"type,omitempty" yaml:"type,omitempty"`
	URL        string     `json:"url,omitempty" yaml:"url,omitempty"`
	Reference  *Reference `json:"reference,omitempty" yaml:"reference,omitempty"`
	Label      string     `json:"label,omitempty" yaml:"label,omitempty"`
	NewTab     bool       `json:"newTab,omitempty" yaml:"newTab,omitempty"`
	Appearance string     `json:"appearance,omitempty" yaml:"appearance,omitempty"`
}

// Reference is a polymorphic relationship to a page or post
type Reference struct {
	RelationTo string `json:"relationTo" yaml:"relationTo"`
	Value      DocRef `json:"value" yaml:"value"`
}

// DocumentPath builds the public URL of a document. Pages live at the
// root; other collections are prefixed by their slug.
func DocumentPath(collection, slug string) string {
	if collection == CollectionPages {
		return "/" + slug
	}
	return fmt.Sprintf("/%s/%s", collection, slug)
}

// Href returns the link target, or "" when it cannot be resolved without a lookup
func (l Link) Href() string {
	if l.Type == LinkReference && l.Reference != nil && l.Reference.Value.Populated() {
		slug := l.Reference.Value.Slug
		if l.Reference.RelationTo == CollectionPages && slug == HomeSlug {
			return "/"
		}
		return DocumentPath(l.Reference.RelationTo, slug)
	}
	return l.URL
}
