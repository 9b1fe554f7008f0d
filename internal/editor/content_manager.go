package editor

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sharptier/cms/internal/model"
)

// Sibling field names of a reusable content block
const (
	FieldTemplate          = "template"
	FieldUseTemplateValues = "useTemplateValues"
	FieldContent           = "content"
	FieldContentManager    = "contentManager"
)

// Status is what the content manager reports in its own field
type Status string

const (
	StatusIdle        Status = "idle"
	StatusLoading     Status = "loading"
	StatusPopulated   Status = "populated"
	StatusUnavailable Status = "unavailable"
)

// TemplateFetcher loads a template from the content API
type TemplateFetcher interface {
	FetchTemplate(ctx context.Context, id int64) (*model.Template, error)
}

// ContentManager is the controller behind a reusable content block's
// contentManager field. While "use template values" is checked the block's
// content rows are cleared; once it is unchecked and no rows exist, the
// selected template's content is fetched and staged as rows the editor can
// change.
type ContentManager struct {
	templatePath string
	checkboxPath string
	contentPath  string
	statusPath   string
	schemaPath   string

	fetcher TemplateFetcher
	logger  *zap.Logger

	generation atomic.Uint64

	mu           sync.Mutex
	fetching     bool
	inflight     chan struct{}
	observed     bool
	lastTemplate int64
	lastChecked  bool
	cancel       context.CancelFunc
}

// NewContentManager binds a controller to the contentManager field at path.
// The other fields are found next to it.
func NewContentManager(path, schemaPath string, fetcher TemplateFetcher, logger *zap.Logger) *ContentManager {
	m := &ContentManager{
		templatePath: siblingPath(path, FieldTemplate),
		checkboxPath: siblingPath(path, FieldUseTemplateValues),
		contentPath:  siblingPath(path, FieldContent),
		statusPath:   path,
		fetcher:      fetcher,
		logger:       logger,
	}
	if schemaPath != "" {
		m.schemaPath = siblingPath(schemaPath, FieldContent)
	}
	return m
}

// siblingPath swaps the last segment of a dotted path
func siblingPath(path, name string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i+1] + name
	}
	return name
}

// ContentPath is the path of the content field this manager drives
func (m *ContentManager) ContentPath() string { return m.contentPath }

// Effect re-evaluates the form after the checkbox or template selection
// changed. The returned channel is closed once all work the call started has
// finished. A call made while a fetch is already out starts nothing and
// returns that fetch's channel.
func (m *ContentManager) Effect(ctx context.Context, form *Form) <-chan struct{} {
	state := form.Snapshot()
	templateID := templateValue(state[m.templatePath].Value)
	useTemplate := checkboxValue(state, m.checkboxPath)
	rows := len(state[m.contentPath].Rows)

	m.observe(templateID, useTemplate)

	if templateID == 0 {
		form.Dispatch(SetValue{Path: m.statusPath, Value: StatusIdle})
		return closed()
	}

	if useTemplate {
		// Removal is by index; going from the top keeps lower indexes valid.
		for i := rows - 1; i >= 0; i-- {
			form.Dispatch(RemoveRow{Path: m.contentPath, RowIndex: i})
		}
		form.Dispatch(SetValue{Path: m.statusPath, Value: StatusIdle})
		return closed()
	}

	if rows > 0 {
		return closed()
	}

	done, fetchCtx, started := m.begin(ctx)
	if !started {
		return done
	}

	gen := m.generation.Load()
	form.Dispatch(SetValue{Path: m.statusPath, Value: StatusLoading})

	go func() {
		defer close(done)
		if m.fetchAndPopulate(fetchCtx, form, templateID, gen) {
			return
		}
		// The selection changed while this fetch was out; evaluate again
		// for whatever is selected now.
		<-m.Effect(ctx, form)
	}()

	return done
}

func closed() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

// begin claims the fetch slot. When a fetch is already out it returns that
// fetch's channel and started is false.
func (m *ContentManager) begin(ctx context.Context) (done chan struct{}, fetchCtx context.Context, started bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fetching {
		return m.inflight, nil, false
	}
	m.fetching = true
	m.inflight = make(chan struct{})

	fetchCtx, cancel := context.WithCancel(ctx)
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	return m.inflight, fetchCtx, true
}

func (m *ContentManager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetching = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// fetchAndPopulate reports false when its result was stale and discarded.
// The in-progress flag is released on every path.
func (m *ContentManager) fetchAndPopulate(ctx context.Context, form *Form, templateID int64, gen uint64) bool {
	defer m.release()

	tpl, err := m.fetcher.FetchTemplate(ctx, templateID)
	if m.generation.Load() != gen {
		m.logger.Debug("Discarding template fetch for superseded selection", zap.Int64("template", templateID))
		return false
	}
	if err != nil {
		m.logger.Warn("Failed to fetch template content", zap.Int64("template", templateID), zap.Error(err))
		form.Dispatch(SetValue{Path: m.statusPath, Value: StatusUnavailable})
		return true
	}

	m.populate(form, tpl)
	form.Dispatch(SetValue{Path: m.statusPath, Value: StatusPopulated})
	return true
}

func (m *ContentManager) populate(form *Form, tpl *model.Template) {
	if tpl == nil || m.schemaPath == "" {
		return
	}

	inserted := 0
	for _, block := range tpl.Content {
		switch block.BlockType {
		case model.BlockTypeContent:
			form.Dispatch(AddRow{
				Path:      m.contentPath,
				RowIndex:  inserted,
				BlockType: block.BlockType,
				SubFieldState: map[string]Field{
					"richText": {Value: block.RichText.Clone()},
				},
				SchemaPath: m.schemaPath,
			})
			inserted++
		default:
			m.logger.Info("Unknown block type", zap.String("blockType", string(block.BlockType)))
		}
	}
}

// observe starts a new generation when the template selection or the
// checkbox changes, and cancels the fetch belonging to the old one.
func (m *ContentManager) observe(templateID int64, useTemplate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.observed && templateID == m.lastTemplate && useTemplate == m.lastChecked {
		return
	}
	m.observed = true
	m.lastTemplate = templateID
	m.lastChecked = useTemplate
	m.generation.Add(1)
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// checkboxValue reads the use-template checkbox, which defaults to checked
func checkboxValue(state State, path string) bool {
	f, ok := state[path]
	if !ok || f.Value == nil {
		return true
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case string:
		if strings.EqualFold(v, "on") {
			return true
		}
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		return false
	}
}

// templateValue extracts a template id from a relationship field value
func templateValue(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int64:
		return t
	case float64:
		return int64(t)
	case json.Number:
		id, _ := t.Int64()
		return id
	case string:
		id, _ := strconv.ParseInt(t, 10, 64)
		return id
	case map[string]any:
		return templateValue(t["id"])
	case *model.TemplateRef:
		if t == nil {
			return 0
		}
		return t.ID
	default:
		return 0
	}
}
