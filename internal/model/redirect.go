package model

import "time"

// Redirect maps an incoming path to a literal URL or a document
type Redirect struct {
	ID        int64      `json:"id" yaml:"id,omitempty"`
	From      string     `json:"from" yaml:"from"`
	To        RedirectTo `json:"to" yaml:"to"`
	UpdatedAt time.Time  `json:"updatedAt" yaml:"-"`
	CreatedAt time.Time  `json:"createdAt" yaml:"-"`
}

// RedirectTo is the destination of a redirect
type RedirectTo struct {
	Type      string     `json:"type,omitempty" yaml:"type,omitempty"`
	URL       string     `json:"url,omitempty" yaml:"url,omitempty"`
	Reference *Reference `json:"reference,omitempty" yaml:"reference,omitempty"`
}
