package model

import "time"

// Template is a reusable, independently editable sequence of blocks
type Template struct {
	ID        int64     `json:"id" yaml:"id,omitempty"`
	Title     string    `json:"title" yaml:"title"`
	Content   []Block   `json:"content" yaml:"content"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

// Clone returns a deep copy of the template
func (t Template) Clone() Template {
	out := t
	out.Content = CloneBlocks(t.Content)
	return out
}
