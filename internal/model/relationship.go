package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// TemplateRef is a relationship to a Template. At depth 0 only ID is set;
// when populated, Value holds the referenced document.
type TemplateRef struct {
	ID    int64
	Value *Template

	// Lookup names the template by title in seed files, resolved to ID on import
	Lookup string
}

// Clone returns a deep copy of the reference
func (r *TemplateRef) Clone() *TemplateRef {
	if r == nil {
		return nil
	}
	out := *r
	if r.Value != nil {
		v := r.Value.Clone()
		out.Value = &v
	}
	return &out
}

// Set reports whether the relationship points at a template
func (r *TemplateRef) Set() bool {
	return r != nil && r.ID > 0
}

// Shallow drops the populated value, keeping the id
func (r *TemplateRef) Shallow() *TemplateRef {
	if r == nil {
		return nil
	}
	return &TemplateRef{ID: r.ID}
}

// MarshalJSON encodes the id as a number, or the populated document
func (r TemplateRef) MarshalJSON() ([]byte, error) {
	if r.Value != nil {
		return json.Marshal(r.Value)
	}
	return json.Marshal(r.ID)
}

// UnmarshalJSON accepts a number, a numeric string or a document object
func (r *TemplateRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var t Template
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		*r = TemplateRef{ID: t.ID, Value: &t}
		return nil
	}
	id, err := parseID(data)
	if err != nil {
		return fmt.Errorf("invalid template reference: %w", err)
	}
	*r = TemplateRef{ID: id}
	return nil
}

// UnmarshalYAML accepts an id or a template title
func (r *TemplateRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("template reference must be an id or a title")
	}
	if id, err := strconv.ParseInt(node.Value, 10, 64); err == nil {
		*r = TemplateRef{ID: id}
		return nil
	}
	*r = TemplateRef{Lookup: node.Value}
	return nil
}

// MarshalYAML writes the id
func (r TemplateRef) MarshalYAML() (any, error) {
	if r.ID == 0 && r.Lookup != "" {
		return r.Lookup, nil
	}
	return r.ID, nil
}

// DocRef is a relationship to a page or post, either by id or populated
// with the fields needed to build a URL.
type DocRef struct {
	ID   int64
	Slug string

	populated bool
}

// PopulatedDoc builds a reference that already carries the slug
func PopulatedDoc(id int64, slug string) DocRef {
	return DocRef{ID: id, Slug: slug, populated: true}
}

// Populated reports whether the reference carries the document itself
func (d DocRef) Populated() bool {
	return d.populated
}

// Clone returns a copy of the reference
func (d DocRef) Clone() DocRef {
	return d
}

// MarshalJSON encodes the id, or {id, slug} when populated
func (d DocRef) MarshalJSON() ([]byte, error) {
	if d.populated {
		return json.Marshal(struct {
			ID   int64  `json:"id"`
			Slug string `json:"slug"`
		}{d.ID, d.Slug})
	}
	return json.Marshal(d.ID)
}

// UnmarshalJSON accepts a number, a numeric string or {id, slug}
func (d *DocRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var doc struct {
			ID   int64  `json:"id"`
			Slug string `json:"slug"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		*d = PopulatedDoc(doc.ID, doc.Slug)
		return nil
	}
	id, err := parseID(data)
	if err != nil {
		return fmt.Errorf("invalid document reference: %w", err)
	}
	*d = DocRef{ID: id}
	return nil
}

// UnmarshalYAML accepts a numeric id or a slug to be resolved on import
func (d *DocRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("document reference must be an id or a slug")
	}
	if id, err := strconv.ParseInt(node.Value, 10, 64); err == nil {
		*d = DocRef{ID: id}
		return nil
	}
	*d = DocRef{Slug: node.Value}
	return nil
}

func parseID(data []byte) (int64, error) {
	if bytes.Equal(data, []byte("null")) {
		return 0, nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, err
		}
	} else {
		s = string(data)
	}
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
