package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/go-while/go-guildhub/internal/config"
	"github.com/go-while/go-guildhub/internal/markup"
	"github.com/go-while/go-guildhub/internal/models"
)

type createCall struct {
	guildID                  int64
	title, content, category string
}

type updateCall struct {
	articleID                int64
	title, content, category string
}

// fakeStore is an in-memory ArticleStore and GuildStore that records calls
type fakeStore struct {
	mu            sync.Mutex
	guilds        map[int64]*models.Guild
	articles      []*models.Article
	nextID        int64
	fetchAllCalls int
	fetchOneCalls int
	guildLookups  int
	creates       []createCall
	updates       []updateCall
	fetchAllErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		guilds: map[int64]*models.Guild{1: {ID: 1, Name: "FFL"}},
		nextID: 1,
	}
}

func (f *fakeStore) addArticle(guildID int64, title, content, category string) *models.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &models.Article{ID: f.nextID, GuildID: guildID, Title: title, Content: content, Category: category}
	f.nextID++
	f.articles = append(f.articles, a)
	return a
}

func (f *fakeStore) articleStoreCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchAllCalls + f.fetchOneCalls + len(f.creates) + len(f.updates)
}

func (f *fakeStore) FetchArticles(_ context.Context, guildID int64) ([]*models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchAllCalls++
	if f.fetchAllErr != nil {
		return nil, f.fetchAllErr
	}
	var out []*models.Article
	for _, a := range f.articles {
		if a.GuildID == guildID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) FetchArticle(_ context.Context, guildID, articleID int64) (*models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchOneCalls++
	for _, a := range f.articles {
		if a.GuildID == guildID && a.ID == articleID {
			return a, nil
		}
	}
	return nil, goerrors.New(fmt.Sprintf("article %d not found", articleID), goerrors.CategoryNotFound)
}

func (f *fakeStore) CreateArticle(_ context.Context, guildID int64, title, content, category string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, createCall{guildID, title, content, category})
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *fakeStore) UpdateArticle(_ context.Context, articleID int64, title, content, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{articleID, title, content, category})
	for _, a := range f.articles {
		if a.ID == articleID {
			return nil
		}
	}
	return goerrors.New(fmt.Sprintf("article %d not found", articleID), goerrors.CategoryNotFound)
}

func (f *fakeStore) GetGuild(_ context.Context, guildID int64) (*models.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guildLookups++
	if g, ok := f.guilds[guildID]; ok {
		return g, nil
	}
	return nil, goerrors.New(fmt.Sprintf("guild %d not found", guildID), goerrors.CategoryNotFound)
}

func (f *fakeStore) ListGuilds(_ context.Context) ([]*models.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Guild
	for _, g := range f.guilds {
		out = append(out, g)
	}
	return out, nil
}

type renderCall struct {
	name string
	data PageData
}

// recordingRenderer captures template calls instead of producing HTML
type recordingRenderer struct {
	mu    sync.Mutex
	calls []renderCall
}

func (r *recordingRenderer) Render(w io.Writer, name string, data interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, renderCall{name: name, data: data.(PageData)})
	_, err := fmt.Fprintf(w, "rendered %s", name)
	return err
}

func (r *recordingRenderer) last(t *testing.T) renderCall {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		t.Fatalf("expected a template to be rendered")
	}
	return r.calls[len(r.calls)-1]
}

func newTestServer(t *testing.T, store *fakeStore) (*WebServer, *recordingRenderer) {
	t.Helper()
	rr := &recordingRenderer{}
	s := NewServer(config.NewDefaultConfig(), ServerDeps{Articles: store, Guilds: store, Templates: rr})
	t.Cleanup(s.GuildCache.Stop)
	return s, rr
}

func doRequest(s *WebServer, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func validForm() url.Values {
	return url.Values{
		"title":    {"Raid night"},
		"content":  {"Bring **potions**"},
		"category": {"event"},
	}
}

func TestListArticlesRendersBaseline(t *testing.T) {
	store := newFakeStore()
	store.addArticle(1, "Plain", "Hello *world*", "")
	store.addArticle(1, "Extended", "~~old~~ plan\n\n| a | b |\n|---|---|\n| 1 | 2 |", "guide")
	store.addArticle(2, "Foreign", "not listed", "")
	s, rr := newTestServer(t, store)

	w := doRequest(s, http.MethodGet, "/guilds/1/articles", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	call := rr.last(t)
	if call.name != "article/index" {
		t.Fatalf("expected article/index, got %s", call.name)
	}
	dto := call.data.Model.(models.ArticleIndexDto)
	if dto.GuildID != 1 || dto.GuildName != "FFL" {
		t.Fatalf("unexpected guild in dto: %+v", dto)
	}
	if len(dto.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(dto.Articles))
	}

	baseline := s.Markup.New(markup.Baseline)
	for i, stored := range store.articles[:2] {
		want, err := baseline.Render(stored.Content)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		got := dto.Articles[i]
		if got.Title != stored.Title || got.HTMLContent != want {
			t.Fatalf("article %d: got %q / %q, want %q / %q", i, got.Title, got.HTMLContent, stored.Title, want)
		}
	}
}

func TestShowArticleRendersFullProfile(t *testing.T) {
	store := newFakeStore()
	a := store.addArticle(1, "Extended", "~~old~~ plan", "")
	s, rr := newTestServer(t, store)

	w := doRequest(s, http.MethodGet, fmt.Sprintf("/guilds/1/articles/%d", a.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	call := rr.last(t)
	if call.name != "article/show" {
		t.Fatalf("expected article/show, got %s", call.name)
	}
	dto := call.data.Model.(models.ArticleShowDto)

	full, _ := s.Markup.New(markup.Full).Render(a.Content)
	baseline, _ := s.Markup.New(markup.Baseline).Render(a.Content)
	if dto.Article.HTMLContent != full {
		t.Fatalf("expected full rendering %q, got %q", full, dto.Article.HTMLContent)
	}
	if full == baseline {
		t.Fatalf("expected full and baseline output to differ for extended syntax")
	}
	if dto.GuildID != 1 || dto.GuildName != "FFL" || dto.Article.Title != "Extended" {
		t.Fatalf("unexpected dto %+v", dto)
	}
}

func TestMissingArticleIs404(t *testing.T) {
	testCases := []struct {
		name   string
		method string
		target string
		form   url.Values
	}{
		{name: "show", method: http.MethodGet, target: "/guilds/1/articles/99"},
		{name: "edit form", method: http.MethodGet, target: "/guilds/1/articles/99/edit"},
		{name: "update", method: http.MethodPut, target: "/guilds/1/articles/99/update", form: validForm()},
		{name: "article of another guild", method: http.MethodGet, target: "/guilds/1/articles/1/edit"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.addArticle(2, "Foreign", "not yours", "")
			s, rr := newTestServer(t, store)

			w := doRequest(s, tc.method, tc.target, tc.form)
			if w.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d", w.Code)
			}
			call := rr.last(t)
			if call.name != "error" {
				t.Fatalf("expected error template, got %s", call.name)
			}
			if status := call.data.Model.(ErrorPageData).StatusCode; status != http.StatusNotFound {
				t.Fatalf("expected error page status 404, got %d", status)
			}
		})
	}
}

func TestCreateNormalizesSubmittedValues(t *testing.T) {
	store := newFakeStore()
	s, _ := newTestServer(t, store)

	form := url.Values{
		"title":    {"  Cafe\u0301 night  "},
		"content":  {"Bring **potions**\n\n"},
		"category": {" Event "},
	}
	w := doRequest(s, http.MethodPost, "/guilds/1/articles/create", form)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if len(store.creates) != 1 {
		t.Fatalf("expected exactly one create call, got %d", len(store.creates))
	}
	// trimmed, NFC composed and the category key lower-cased
	want := createCall{1, "Caf\u00e9 night", "Bring **potions**", "event"}
	if store.creates[0] != want {
		t.Fatalf("create called with %+v, want %+v", store.creates[0], want)
	}
}

func TestInputFormHasNoArticleStoreCalls(t *testing.T) {
	store := newFakeStore()
	s, rr := newTestServer(t, store)

	w := doRequest(s, http.MethodGet, "/guilds/1/articles/input", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	call := rr.last(t)
	if call.name != "article/input" {
		t.Fatalf("expected article/input, got %s", call.name)
	}
	dto := call.data.Model.(models.ArticleFormDto)
	if dto.GuildName != "FFL" || len(dto.Categories) != len(models.ArticleCategories) {
		t.Fatalf("unexpected input dto %+v", dto)
	}
	if dto.Form != (models.ArticleForm{}) {
		t.Fatalf("expected blank form, got %+v", dto.Form)
	}
	if n := store.articleStoreCalls(); n != 0 {
		t.Fatalf("expected no article store calls, got %d", n)
	}
}

func TestCreateValidArticle(t *testing.T) {
	store := newFakeStore()
	s, _ := newTestServer(t, store)

	w := doRequest(s, http.MethodPost, "/guilds/1/articles/create", validForm())
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/guilds/1/articles" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if len(store.creates) != 1 {
		t.Fatalf("expected exactly one create call, got %d", len(store.creates))
	}
	want := createCall{1, "Raid night", "Bring **potions**", "event"}
	if store.creates[0] != want {
		t.Fatalf("create called with %+v, want %+v", store.creates[0], want)
	}
}

func TestCreateInvalidArticle(t *testing.T) {
	testCases := []struct {
		name      string
		form      url.Values
		wantField string
	}{
		{name: "empty title", form: url.Values{"title": {""}, "content": {"body"}}, wantField: "title"},
		{name: "blank title", form: url.Values{"title": {"   "}, "content": {"body"}}, wantField: "title"},
		{name: "empty content", form: url.Values{"title": {"Raid"}}, wantField: "content"},
		{name: "unknown category", form: url.Values{"title": {"Raid"}, "content": {"body"}, "category": {"memes"}}, wantField: "category"},
		{name: "title too long", form: url.Values{"title": {strings.Repeat("x", config.DefaultTitleMaxLength+1)}, "content": {"body"}}, wantField: "title"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			s, rr := newTestServer(t, store)

			w := doRequest(s, http.MethodPost, "/guilds/1/articles/create", tc.form)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if n := store.articleStoreCalls(); n != 0 {
				t.Fatalf("expected zero store calls, got %d", n)
			}
			call := rr.last(t)
			if call.name != "article/input" {
				t.Fatalf("expected article/input, got %s", call.name)
			}
			dto := call.data.Model.(models.ArticleFormDto)
			if _, ok := dto.FieldErrors[tc.wantField]; !ok {
				t.Fatalf("expected field error for %s, got %v", tc.wantField, dto.FieldErrors)
			}
			if dto.Form.Content != strings.TrimSpace(tc.form.Get("content")) {
				t.Fatalf("submitted content not preserved: %q", dto.Form.Content)
			}
		})
	}
}

func TestEditFormPrePopulated(t *testing.T) {
	store := newFakeStore()
	a := store.addArticle(1, "Raid night", "# Plan", "event")
	s, rr := newTestServer(t, store)

	w := doRequest(s, http.MethodGet, fmt.Sprintf("/guilds/1/articles/%d/edit", a.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	call := rr.last(t)
	if call.name != "article/edit" {
		t.Fatalf("expected article/edit, got %s", call.name)
	}
	dto := call.data.Model.(models.ArticleFormDto)
	if dto.Form.Title != a.Title || dto.Form.Content != a.Content || dto.Form.Category != a.Category {
		t.Fatalf("form not pre-populated: %+v", dto.Form)
	}
	if dto.ArticleID != a.ID {
		t.Fatalf("expected article id %d, got %d", a.ID, dto.ArticleID)
	}
}

func TestUpdateValidArticle(t *testing.T) {
	store := newFakeStore()
	a := store.addArticle(1, "Old", "old body", "")
	s, _ := newTestServer(t, store)

	w := doRequest(s, http.MethodPut, fmt.Sprintf("/guilds/1/articles/%d/update", a.ID), validForm())
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/guilds/1/articles" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if len(store.updates) != 1 {
		t.Fatalf("expected one update call, got %d", len(store.updates))
	}
	want := updateCall{a.ID, "Raid night", "Bring **potions**", "event"}
	if store.updates[0] != want {
		t.Fatalf("update called with %+v, want %+v", store.updates[0], want)
	}
}

func TestUpdateInvalidArticle(t *testing.T) {
	store := newFakeStore()
	a := store.addArticle(1, "Old", "old body", "")
	s, rr := newTestServer(t, store)

	w := doRequest(s, http.MethodPut, fmt.Sprintf("/guilds/1/articles/%d/update", a.ID), url.Values{"title": {""}, "content": {"x"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(store.updates) != 0 {
		t.Fatalf("expected zero update calls, got %d", len(store.updates))
	}
	if call := rr.last(t); call.name != "article/edit" {
		t.Fatalf("expected article/edit, got %s", call.name)
	}
}

func TestMethodOverrideReachesUpdate(t *testing.T) {
	store := newFakeStore()
	a := store.addArticle(1, "Old", "old body", "")
	s, _ := newTestServer(t, store)

	form := validForm()
	form.Set("_method", "PUT")
	w := doRequest(s, http.MethodPost, fmt.Sprintf("/guilds/1/articles/%d/update", a.ID), form)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 through method override, got %d", w.Code)
	}
	if len(store.updates) != 1 || store.updates[0].title != "Raid night" {
		t.Fatalf("expected update with submitted values, got %+v", store.updates)
	}
}

func TestBadIDs(t *testing.T) {
	store := newFakeStore()
	s, _ := newTestServer(t, store)

	for _, target := range []string{
		"/guilds/abc/articles",
		"/guilds/0/articles",
		"/guilds/1/articles/-3",
		"/guilds/1/articles/x/edit",
	} {
		w := doRequest(s, http.MethodGet, target, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, w.Code)
		}
	}
}

func TestUnknownGuild(t *testing.T) {
	store := newFakeStore()
	s, _ := newTestServer(t, store)

	w := doRequest(s, http.MethodGet, "/guilds/42/articles", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if store.fetchAllCalls != 0 {
		t.Fatalf("articles must not be fetched for an unknown guild")
	}
}

func TestGuildLookupIsCached(t *testing.T) {
	store := newFakeStore()
	s, _ := newTestServer(t, store)

	for i := 0; i < 3; i++ {
		if w := doRequest(s, http.MethodGet, "/guilds/1/articles", nil); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
	if store.guildLookups != 1 {
		t.Fatalf("expected one guild store lookup, got %d", store.guildLookups)
	}
}

func TestShutdownLogsCacheStats(t *testing.T) {
	s, _ := newTestServer(t, newFakeStore())
	doRequest(s, http.MethodGet, "/guilds/1/articles", nil)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "Guild cache stats") || !strings.Contains(buf.String(), "misses:1") {
		t.Fatalf("expected cache stats in shutdown log, got %q", buf.String())
	}
}

func TestStoreFailureIs500(t *testing.T) {
	store := newFakeStore()
	store.fetchAllErr = fmt.Errorf("disk on fire")
	s, _ := newTestServer(t, store)

	w := doRequest(s, http.MethodGet, "/guilds/1/articles", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	s, _ := newTestServer(t, newFakeStore())

	w := doRequest(s, http.MethodGet, "/ping", nil)
	if w.Body.String() != "pong" {
		t.Fatalf("unexpected ping body %q", w.Body.String())
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected %s header", requestIDHeader)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "6f1c2b8e-3f4a-4c55-9a0e-1b2c3d4e5f60")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "6f1c2b8e-3f4a-4c55-9a0e-1b2c3d4e5f60" {
		t.Fatalf("expected incoming request id to be kept, got %q", got)
	}
}

func TestRootRedirectsToGuilds(t *testing.T) {
	s, rr := newTestServer(t, newFakeStore())

	w := doRequest(s, http.MethodGet, "/", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/guilds" {
		t.Fatalf("expected 302 to /guilds, got %d %q", w.Code, w.Header().Get("Location"))
	}

	w = doRequest(s, http.MethodGet, "/guilds", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	call := rr.last(t)
	if call.name != "guild/index" || len(call.data.Model.(models.GuildIndexDto).Guilds) != 1 {
		t.Fatalf("unexpected guild index render %+v", call)
	}
}

func TestStatusForError(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{goerrors.New("x", goerrors.CategoryNotFound), http.StatusNotFound},
		{goerrors.New("x", goerrors.CategoryBadInput), http.StatusBadRequest},
		{goerrors.New("x", goerrors.CategoryValidation), http.StatusBadRequest},
		{goerrors.New("x", goerrors.CategoryConflict), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", goerrors.New("x", goerrors.CategoryNotFound)), http.StatusNotFound},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		if got := statusForError(tc.err); got != tc.want {
			t.Fatalf("statusForError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
