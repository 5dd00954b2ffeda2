package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/canbahi79-lgtm/formatfactory/api/journals"
)

type fakeJournalSource struct {
	items []journals.Journal
	err   error
	calls int
}

func (f *fakeJournalSource) FetchAll(ctx context.Context) ([]journals.Journal, error) {
	f.calls++
	return f.items, f.err
}

type fakeJournalCache struct {
	items  []journals.Journal
	warm   bool
	stored []journals.Journal
}

func (f *fakeJournalCache) Get(ctx context.Context) ([]journals.Journal, bool) {
	return f.items, f.warm
}

func (f *fakeJournalCache) Set(ctx context.Context, items []journals.Journal) error {
	f.stored = items
	return nil
}

func TestJournalHandler_List_WarmCache(t *testing.T) {
	source := &fakeJournalSource{}
	jcache := &fakeJournalCache{
		warm:  true,
		items: []journals.Journal{{ID: "jmir", Name: "JMIR", SourceURL: "https://dergipark.org.tr/en/pub/jmir"}},
	}
	handler := NewJournalHandler(source, jcache, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/journals", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if source.calls != 0 {
		t.Error("Warm cache must not trigger a scrape")
	}

	var items []journals.Journal
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(items) != 1 || items[0].ID != "jmir" {
		t.Errorf("Unexpected directory payload: %+v", items)
	}
}

func TestJournalHandler_List_ColdCacheScrapesAndStores(t *testing.T) {
	source := &fakeJournalSource{
		items: []journals.Journal{
			{ID: "jmir", Name: "JMIR", SourceURL: "https://dergipark.org.tr/en/pub/jmir"},
			{ID: "tjph", Name: "TJPH", SourceURL: "https://dergipark.org.tr/en/pub/tjph"},
		},
	}
	jcache := &fakeJournalCache{}
	handler := NewJournalHandler(source, jcache, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/journals", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if source.calls != 1 {
		t.Errorf("Expected 1 scrape, got %d", source.calls)
	}
	if len(jcache.stored) != 2 {
		t.Errorf("Expected directory cached after scrape, got %d items", len(jcache.stored))
	}
}

func TestJournalHandler_List_ScrapeFailure(t *testing.T) {
	source := &fakeJournalSource{err: errors.New("directory unreachable")}
	handler := NewJournalHandler(source, &fakeJournalCache{}, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/journals", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["error"] != "scrape_failed" {
		t.Errorf("Unexpected error body: %v", body)
	}
}
