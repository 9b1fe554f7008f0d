// Package editor holds the admin form state and the controllers that keep
// related form fields in step while a document is being edited.
package editor

import (
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/sharptier/cms/internal/model"
)

// Field is the state of one form field. Blocks fields keep their rows in
// Rows and the row count in Value.
type Field struct {
	Value any   `json:"value,omitempty"`
	Rows  []Row `json:"rows,omitempty"`
}

// Row is one block in a blocks field
type Row struct {
	ID        string           `json:"id"`
	BlockType model.BlockType  `json:"blockType"`
	SubFields map[string]Field `json:"subFields,omitempty"`
}

// State maps field paths (e.g. "layout.0.content") to field state
type State map[string]Field

// Clone copies the state map and the row slices; values are shared
func (s State) Clone() State {
	out := make(State, len(s))
	for k, f := range s {
		f.Rows = slices.Clone(f.Rows)
		out[k] = f
	}
	return out
}

// Action is a change to form state
type Action interface {
	apply(State) State
}

// SetValue replaces a field's value
type SetValue struct {
	Path  string
	Value any
}

func (a SetValue) apply(s State) State {
	f := s[a.Path]
	f.Value = a.Value
	s[a.Path] = f
	return s
}

// ReplaceField replaces a field's value and rows
type ReplaceField struct {
	Path  string
	Field Field
}

func (a ReplaceField) apply(s State) State {
	f := a.Field
	f.Rows = slices.Clone(f.Rows)
	s[a.Path] = f
	return s
}

// AddRow inserts a block row at RowIndex, appending when the index is past the end
type AddRow struct {
	Path          string
	RowIndex      int
	BlockType     model.BlockType
	SubFieldState map[string]Field
	SchemaPath    string
}

func (a AddRow) apply(s State) State {
	f := s[a.Path]
	row := Row{
		ID:        uuid.NewString(),
		BlockType: a.BlockType,
		SubFields: maps.Clone(a.SubFieldState),
	}
	idx := min(max(a.RowIndex, 0), len(f.Rows))
	f.Rows = slices.Insert(f.Rows, idx, row)
	f.Value = len(f.Rows)
	s[a.Path] = f
	return s
}

// RemoveRow deletes the row at RowIndex; out of range indexes are ignored
type RemoveRow struct {
	Path     string
	RowIndex int
}

func (a RemoveRow) apply(s State) State {
	f, ok := s[a.Path]
	if !ok || a.RowIndex < 0 || a.RowIndex >= len(f.Rows) {
		return s
	}
	f.Rows = slices.Delete(f.Rows, a.RowIndex, a.RowIndex+1)
	f.Value = len(f.Rows)
	s[a.Path] = f
	return s
}

// Reduce returns the state that results from applying a to s. s is not modified.
func Reduce(s State, a Action) State {
	return a.apply(s.Clone())
}

// Form holds the state of one open document and serializes dispatches to it
type Form struct {
	mu    sync.Mutex
	state State
}

// NewForm creates a Form starting from initial
func NewForm(initial State) *Form {
	if initial == nil {
		initial = State{}
	}
	return &Form{state: initial.Clone()}
}

// Dispatch applies an action
func (f *Form) Dispatch(a Action) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Reduce(f.state, a)
}

// Snapshot returns a copy of the current state
func (f *Form) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

// Merge replaces every field present in fields. Fields it does not name
// keep their current state.
func (f *Form) Merge(fields State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for path, field := range fields {
		f.state = Reduce(f.state, ReplaceField{Path: path, Field: field})
	}
}
