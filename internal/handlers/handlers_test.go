package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sharptier/cms/internal/editor"
	"github.com/sharptier/cms/internal/model"
	"github.com/sharptier/cms/internal/service"
)

const testAPIKey = "secret-key"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubFetcher struct {
	templates map[int64]*model.Template
}

func (f stubFetcher) FetchTemplate(ctx context.Context, id int64) (*model.Template, error) {
	return f.templates[id], nil
}

type testEnv struct {
	app       *fiber.App
	templates *memRepo[model.Template]
	pages     *memRepo[model.Page]
	posts     *memRepo[model.Post]
	redirects *memRepo[model.Redirect]
	fetcher   stubFetcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stub := stubFetcher{templates: map[int64]*model.Template{}}
	e := newTestEnvWithFetcher(t, stub)
	e.fetcher = stub
	return e
}

func newTestEnvWithFetcher(t *testing.T, fetcher editor.TemplateFetcher) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	e := &testEnv{
		templates: newTemplateRepo(),
		pages:     newPageRepo(),
		posts:     newPostRepo(),
		redirects: newRedirectRepo(),
	}

	redirects := service.NewRedirectService(e.redirects, memSlugs{pages: e.pages, posts: e.posts}, time.Hour, logger)
	content := service.NewContentService(e.templates, e.pages, e.posts, redirects.Invalidate, logger)

	e.app = fiber.New()
	Register(e.app, Dependencies{
		Content:   content,
		Redirects: redirects,
		Fetcher:   fetcher,
		Stamper:   service.NewStamper(fixedClock{t: time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)}),
		APIKey:    testAPIKey,
		Logger:    logger,
	})
	return e
}

func (e *testEnv) request(t *testing.T, method, path string, body any, authed bool) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func paragraph(s string) *model.RichText {
	return &model.RichText{Root: model.Node{Type: "root", Children: []model.Node{
		{Type: "paragraph", Children: []model.Node{{Type: "text", Text: s}}},
	}}}
}

// seedTemplate creates template 1 with a single content block
func (e *testEnv) seedTemplate(t *testing.T, text string) int64 {
	t.Helper()
	tpl := &model.Template{Title: "Shared " + text, Content: []model.Block{
		{BlockType: model.BlockTypeContent, RichText: paragraph(text)},
	}}
	require.NoError(t, e.templates.Create(context.Background(), tpl))
	return tpl.ID
}

func reusable(templateID int64, override bool) model.Block {
	return model.Block{
		BlockType:       model.BlockTypeReusableContent,
		Template:        &model.TemplateRef{ID: templateID},
		OverrideContent: override,
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	type health struct {
		Status    string `json:"status"`
		Service   string `json:"service"`
		Timestamp string `json:"timestamp"`
	}

	var last string
	for i := 0; i < 3; i++ {
		resp, body := e.request(t, http.MethodGet, "/api/health", nil, false)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "no-store", resp.Header.Get(fiber.HeaderCacheControl))

		h := decode[health](t, body)
		assert.Equal(t, "ok", h.Status)
		assert.Equal(t, ServiceName, h.Service)
		assert.Greater(t, h.Timestamp, last)

		_, err := time.Parse(time.RFC3339Nano, h.Timestamp)
		assert.NoError(t, err)
		last = h.Timestamp
	}
}

func TestTemplateCRUD(t *testing.T) {
	e := newTestEnv(t)
	tpl := model.Template{Title: "Footer", Content: []model.Block{
		{BlockType: model.BlockTypeContent, RichText: paragraph("hi")},
	}}

	resp, _ := e.request(t, http.MethodPost, "/api/templates", tpl, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := e.request(t, http.MethodPost, "/api/templates", tpl, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	created := decode[struct{ Doc model.Template }](t, body).Doc
	require.NotZero(t, created.ID)
	require.Len(t, created.Content, 1)
	assert.NotEmpty(t, created.Content[0].ID)

	resp, body = e.request(t, http.MethodPatch, "/api/templates/1", map[string]any{"title": "Site footer"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = e.request(t, http.MethodGet, "/api/templates/1", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[model.Template](t, body)
	assert.Equal(t, "Site footer", got.Title)
	assert.Len(t, got.Content, 1)

	resp, body = e.request(t, http.MethodGet, "/api/templates", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[struct{ TotalDocs int }](t, body).TotalDocs)

	resp, _ = e.request(t, http.MethodDelete, "/api/templates/1", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.request(t, http.MethodGet, "/api/templates/1", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.request(t, http.MethodGet, "/api/templates/abc", nil, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTemplateRejectsNestedReusableContent(t *testing.T) {
	e := newTestEnv(t)
	tpl := model.Template{Title: "Loop", Content: []model.Block{reusable(1, false)}}

	resp, body := e.request(t, http.MethodPost, "/api/templates", tpl, true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errs := decode[struct{ Errors []apiError }](t, body).Errors
	require.Len(t, errs, 1)
	assert.Equal(t, "content.0.blockType", errs[0].Field)
}

func TestPageWriteRunsHook(t *testing.T) {
	e := newTestEnv(t)
	tplID := e.seedTemplate(t, "Shared")

	page := model.Page{Title: "About", Slug: "about", Layout: []model.Block{reusable(tplID, true)}}
	resp, body := e.request(t, http.MethodPost, "/api/pages", page, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	stored, err := e.pages.GetBySlug(context.Background(), "about")
	require.NoError(t, err)
	require.Len(t, stored.Layout, 1)
	require.Len(t, stored.Layout[0].Content, 1)
	assert.Equal(t, "Shared", stored.Layout[0].Content[0].RichText.PlainText())

	// turning override off drops the staged copy
	patch := map[string]any{"layout": []model.Block{reusable(tplID, false)}}
	resp, body = e.request(t, http.MethodPatch, "/api/pages/1", patch, true)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	stored, err = e.pages.GetBySlug(context.Background(), "about")
	require.NoError(t, err)
	assert.Empty(t, stored.Layout[0].Content)
}

func TestPageDepth(t *testing.T) {
	e := newTestEnv(t)
	tplID := e.seedTemplate(t, "Shared")

	page := model.Page{Title: "About", Slug: "about", Layout: []model.Block{reusable(tplID, false)}}
	resp, body := e.request(t, http.MethodPost, "/api/pages", page, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	_, body = e.request(t, http.MethodGet, "/api/pages/1?depth=0", nil, false)
	shallow := decode[map[string]any](t, body)
	layout := shallow["layout"].([]any)
	assert.Equal(t, float64(tplID), layout[0].(map[string]any)["template"])

	_, body = e.request(t, http.MethodGet, "/api/pages/1", nil, false)
	populated := decode[model.Page](t, body)
	require.NotNil(t, populated.Layout[0].Template.Value)
	assert.Equal(t, "Shared Shared", populated.Layout[0].Template.Value.Title)
}

func TestPagePatchKeepsOmittedFields(t *testing.T) {
	e := newTestEnv(t)
	page := model.Page{Title: "About", Slug: "about", Layout: []model.Block{
		{BlockType: model.BlockTypeContent, RichText: paragraph("body")},
	}}
	resp, _ := e.request(t, http.MethodPost, "/api/pages", page, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := e.request(t, http.MethodPatch, "/api/pages/1", map[string]any{"title": "About us", "id": 42}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	got := decode[struct{ Doc model.Page }](t, body).Doc
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "About us", got.Title)
	assert.Equal(t, "about", got.Slug)
	require.Len(t, got.Layout, 1)
	assert.Equal(t, "body", got.Layout[0].RichText.PlainText())
}

func TestPageValidationAndConflict(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.request(t, http.MethodPost, "/api/pages", model.Page{Title: "No slug"}, true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "slug", decode[struct{ Errors []apiError }](t, body).Errors[0].Field)

	page := model.Page{Title: "A", Slug: "same"}
	resp, _ = e.request(t, http.MethodPost, "/api/pages", page, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = e.request(t, http.MethodPost, "/api/pages", page, true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.request(t, http.MethodPatch, "/api/pages/99", map[string]any{"title": "x"}, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.request(t, http.MethodPost, "/api/pages", "not an object", true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSiteRendersPages(t *testing.T) {
	e := newTestEnv(t)
	tplID := e.seedTemplate(t, "Shared")

	home := model.Page{Title: "Home", Slug: model.HomeSlug, Layout: []model.Block{reusable(tplID, false)}}
	resp, _ := e.request(t, http.MethodPost, "/api/pages", home, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	post := model.Post{Title: "Hello", Slug: "hello", Content: []model.Block{
		{BlockType: model.BlockTypeContent, RichText: paragraph("story")},
	}}
	resp, _ = e.request(t, http.MethodPost, "/api/posts", post, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := e.request(t, http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "<title>Home</title>")
	assert.Contains(t, string(body), "<p>Shared</p>")

	resp, body = e.request(t, http.MethodGet, "/posts/hello", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "<p>story</p>")

	resp, body = e.request(t, http.MethodGet, "/missing", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "<h1>404</h1>")
}

func TestSiteRendersHeroLinks(t *testing.T) {
	e := newTestEnv(t)

	resp, raw := e.request(t, http.MethodPost, "/api/posts", model.Post{Title: "Hello", Slug: "hello"}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		Doc model.Post `json:"doc"`
	}](t, raw)

	page := model.Page{Title: "About", Slug: "about", Hero: model.Hero{
		Type:     model.HeroHighImpact,
		RichText: paragraph("Welcome"),
		Links: []model.LinkItem{
			{Link: model.Link{
				Type:      model.LinkReference,
				Reference: &model.Reference{RelationTo: model.CollectionPosts, Value: model.DocRef{ID: created.Doc.ID}},
				Label:     "Read",
			}},
		},
	}}
	resp, _ = e.request(t, http.MethodPost, "/api/pages", page, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := e.request(t, http.MethodGet, "/about", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "<p>Welcome</p>")
	assert.Contains(t, string(body), `href="/posts/hello"`)
	assert.Contains(t, string(body), ">Read</a>")
}

func TestSiteRedirects(t *testing.T) {
	e := newTestEnv(t)

	about := model.Page{Title: "About", Slug: "about"}
	resp, _ := e.request(t, http.MethodPost, "/api/pages", about, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	redirects := []model.Redirect{
		{From: "/old", To: model.RedirectTo{Type: model.LinkCustom, URL: "/new"}},
		{From: "/team", To: model.RedirectTo{Type: model.LinkReference, Reference: &model.Reference{
			RelationTo: model.CollectionPages, Value: model.DocRef{ID: 1},
		}}},
		{From: "/stale", To: model.RedirectTo{Type: model.LinkReference, Reference: &model.Reference{
			RelationTo: model.CollectionPages, Value: model.DocRef{ID: 99},
		}}},
	}
	for _, r := range redirects {
		resp, body := e.request(t, http.MethodPost, "/api/redirects", r, true)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, _ = e.request(t, http.MethodGet, "/old", nil, false)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/new", resp.Header.Get(fiber.HeaderLocation))

	resp, _ = e.request(t, http.MethodGet, "/team", nil, false)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/about", resp.Header.Get(fiber.HeaderLocation))

	resp, _ = e.request(t, http.MethodGet, "/stale", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// the table is cached; writing through the API must invalidate it
	resp, _ = e.request(t, http.MethodGet, "/later", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	later := model.Redirect{From: "/later", To: model.RedirectTo{URL: "https://example.com"}}
	resp, _ = e.request(t, http.MethodPost, "/api/redirects", later, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = e.request(t, http.MethodGet, "/later", nil, false)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "https://example.com", resp.Header.Get(fiber.HeaderLocation))
}

func TestRedirectValidation(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.request(t, http.MethodPost, "/api/redirects", model.Redirect{To: model.RedirectTo{URL: "/x"}}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.request(t, http.MethodDelete, "/api/redirects/5", nil, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReusableContentForm(t *testing.T) {
	e := newTestEnv(t)
	e.fetcher.templates[7] = &model.Template{ID: 7, Title: "Footer", Content: []model.Block{
		{BlockType: model.BlockTypeContent, RichText: paragraph("one")},
		{BlockType: model.BlockTypeContent, RichText: paragraph("two")},
	}}

	req := map[string]any{
		"path":       "layout.0.contentManager",
		"schemaPath": "pages.layout.reusableContent.contentManager",
		"fields": map[string]any{
			"layout.0.template":          map[string]any{"value": 7},
			"layout.0.useTemplateValues": map[string]any{"value": false},
		},
	}

	resp, _ := e.request(t, http.MethodPost, "/admin/api/forms/reusable-content", req, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := e.request(t, http.MethodPost, "/admin/api/forms/reusable-content", req, true)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	type field struct {
		Value any
		Rows  []struct {
			ID        string
			BlockType string
		}
	}
	fields := decode[struct{ Fields map[string]field }](t, body).Fields
	assert.Len(t, fields["layout.0.content"].Rows, 2)
	assert.Equal(t, "content", fields["layout.0.content"].Rows[0].BlockType)
	assert.Equal(t, "populated", fields["layout.0.contentManager"].Value)

	req["path"] = "layout.0.template"
	resp, _ = e.request(t, http.MethodPost, "/admin/api/forms/reusable-content", req, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// gatedFetcher blocks every fetch until gate is closed or the fetch is cancelled
type gatedFetcher struct {
	templates map[int64]*model.Template
	gate      chan struct{}
	calls     atomic.Int32
}

func (f *gatedFetcher) FetchTemplate(ctx context.Context, id int64) (*model.Template, error) {
	f.calls.Add(1)
	select {
	case <-f.gate:
		return f.templates[id], nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type formRows struct {
	Fields map[string]struct {
		Value any
		Rows  []struct {
			BlockType string
			SubFields map[string]struct {
				Value *model.RichText
			}
		}
	}
}

func (r formRows) texts(path string) []string {
	var out []string
	for _, row := range r.Fields[path].Rows {
		out = append(out, row.SubFields["richText"].Value.PlainText())
	}
	return out
}

func contentForm(templateID int64) map[string]any {
	return map[string]any{
		"document":   "pages/1",
		"path":       "layout.0.contentManager",
		"schemaPath": "pages.layout.reusableContent.contentManager",
		"fields": map[string]any{
			"layout.0.template":          map[string]any{"value": templateID},
			"layout.0.useTemplateValues": map[string]any{"value": false},
		},
	}
}

// postForm sends a form sync request in the background; the response body
// is stored in out once wg is done.
func (e *testEnv) postForm(t *testing.T, wg *sync.WaitGroup, body map[string]any, out *[]byte) {
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	wg.Add(1)
	go func() {
		defer wg.Done()
		req := httptest.NewRequest(http.MethodPost, "/admin/api/forms/reusable-content", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		resp, err := e.app.Test(req, -1)
		if !assert.NoError(t, err) {
			return
		}
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		*out, err = io.ReadAll(resp.Body)
		assert.NoError(t, err)
	}()
}

func TestReusableContentFormSharesFetchAcrossRequests(t *testing.T) {
	fetcher := &gatedFetcher{
		templates: map[int64]*model.Template{7: {ID: 7, Content: []model.Block{
			{BlockType: model.BlockTypeContent, RichText: paragraph("one")},
			{BlockType: model.BlockTypeContent, RichText: paragraph("two")},
		}}},
		gate: make(chan struct{}),
	}
	e := newTestEnvWithFetcher(t, fetcher)

	var wg sync.WaitGroup
	var first, second []byte
	e.postForm(t, &wg, contentForm(7), &first)
	require.Eventually(t, func() bool { return fetcher.calls.Load() == 1 }, time.Second, time.Millisecond)

	e.postForm(t, &wg, contentForm(7), &second)
	// give the second request time to reach the manager while the fetch is out
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, fetcher.calls.Load())

	close(fetcher.gate)
	wg.Wait()

	assert.EqualValues(t, 1, fetcher.calls.Load())
	for _, raw := range [][]byte{first, second} {
		got := decode[formRows](t, raw)
		assert.Equal(t, []string{"one", "two"}, got.texts("layout.0.content"))
		assert.Equal(t, "populated", got.Fields["layout.0.contentManager"].Value)
	}
}

func TestReusableContentFormDiscardsSupersededTemplate(t *testing.T) {
	fetcher := &gatedFetcher{
		templates: map[int64]*model.Template{
			7: {ID: 7, Content: []model.Block{{BlockType: model.BlockTypeContent, RichText: paragraph("old")}}},
			8: {ID: 8, Content: []model.Block{{BlockType: model.BlockTypeContent, RichText: paragraph("new")}}},
		},
		gate: make(chan struct{}),
	}
	e := newTestEnvWithFetcher(t, fetcher)

	var wg sync.WaitGroup
	var first, second []byte
	e.postForm(t, &wg, contentForm(7), &first)
	require.Eventually(t, func() bool { return fetcher.calls.Load() == 1 }, time.Second, time.Millisecond)

	// Selecting template 8 cancels the fetch of 7 and fetches 8 instead.
	e.postForm(t, &wg, contentForm(8), &second)
	require.Eventually(t, func() bool { return fetcher.calls.Load() == 2 }, time.Second, time.Millisecond)

	close(fetcher.gate)
	wg.Wait()

	assert.EqualValues(t, 2, fetcher.calls.Load())
	for _, raw := range [][]byte{first, second} {
		assert.Equal(t, []string{"new"}, decode[formRows](t, raw).texts("layout.0.content"))
	}
}

func TestReusableContentFormSessionsAreIsolated(t *testing.T) {
	e := newTestEnv(t)
	e.fetcher.templates[7] = &model.Template{ID: 7, Content: []model.Block{
		{BlockType: model.BlockTypeContent, RichText: paragraph("one")},
	}}

	req := contentForm(7)
	resp, body := e.request(t, http.MethodPost, "/admin/api/forms/reusable-content", req, true)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Len(t, decode[formRows](t, body).Fields["layout.0.content"].Rows, 1)

	// Rows staged for pages/1 are not visible from another document.
	req["document"] = "pages/2"
	req["fields"] = map[string]any{"layout.0.template": map[string]any{"value": 7}}
	resp, body = e.request(t, http.MethodPost, "/admin/api/forms/reusable-content", req, true)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got := decode[formRows](t, body)
	assert.Empty(t, got.Fields["layout.0.content"].Rows)
	assert.Equal(t, "idle", got.Fields["layout.0.contentManager"].Value)
}

