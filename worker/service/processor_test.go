package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/canbahi79-lgtm/formatfactory/worker/cache"
	"github.com/canbahi79-lgtm/formatfactory/worker/kafka"
)

type fakeRepo struct {
	mu       sync.Mutex
	status   map[string]string
	progress map[string][]int
	docxURL  map[string]string
	pdfURL   map[string]string
	errMsg   map[string]string
	sweeps   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		status:   make(map[string]string),
		progress: make(map[string][]int),
		docxURL:  make(map[string]string),
		pdfURL:   make(map[string]string),
		errMsg:   make(map[string]string),
	}
}

func (r *fakeRepo) ClaimJob(ctx context.Context, jobID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status[jobID] != "queued" && r.status[jobID] != "processing" {
		return false, nil
	}
	r.status[jobID] = "processing"
	r.progress[jobID] = append(r.progress[jobID], 10)
	return true, nil
}

func (r *fakeRepo) SetProgress(ctx context.Context, jobID string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status[jobID] == "processing" {
		r.progress[jobID] = append(r.progress[jobID], progress)
	}
	return nil
}

func (r *fakeRepo) MarkSucceeded(ctx context.Context, jobID, docxURL, pdfURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[jobID] = "succeeded"
	r.progress[jobID] = append(r.progress[jobID], 100)
	r.docxURL[jobID] = docxURL
	r.pdfURL[jobID] = pdfURL
	return nil
}

func (r *fakeRepo) MarkFailed(ctx context.Context, jobID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[jobID] = "failed"
	r.errMsg[jobID] = message
	return nil
}

func (r *fakeRepo) SweepTerminal(ctx context.Context, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps++
	return nil
}

type fakeCache struct {
	mu     sync.Mutex
	snaps  map[string][]cache.Snapshot
	setErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{snaps: make(map[string][]cache.Snapshot)}
}

func (c *fakeCache) Set(ctx context.Context, jobID string, snap cache.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[jobID] = append(c.snaps[jobID], snap)
	return c.setErr
}

func (c *fakeCache) last(jobID string) (cache.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snaps := c.snaps[jobID]
	if len(snaps) == 0 {
		return cache.Snapshot{}, false
	}
	return snaps[len(snaps)-1], true
}

type fakeDocRenderer struct {
	fn    func(templateURL string) ([]byte, error)
	calls int
}

func (f *fakeDocRenderer) Render(ctx context.Context, contentText string, mapping map[string]any, templateURL string) ([]byte, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(templateURL)
	}
	return []byte("docx-bytes"), nil
}

type fakePrinter struct {
	err   error
	calls int
}

func (f *fakePrinter) Render(ctx context.Context, contentText string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("pdf-bytes"), nil
}

type fakeStore struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string][]byte)}
}

func (s *fakeStore) Save(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[name] = data
	return "http://localhost:3000/files/" + name, nil
}

func queuedJob(repo *fakeRepo, id string) *kafka.JobMessage {
	repo.status[id] = "queued"
	return &kafka.JobMessage{JobID: id, TraceID: "trace-" + id, ContentText: "Para one.\n\nPara two."}
}

func TestProcessor_Process_Success(t *testing.T) {
	repo := newFakeRepo()
	statusCache := newFakeCache()
	store := newFakeStore()
	docs := &fakeDocRenderer{}
	printer := &fakePrinter{}

	p := NewProcessor(repo, statusCache, docs, printer, store, 100, zaptest.NewLogger(t))

	msg := queuedJob(repo, "job-1")
	if err := p.Process(context.Background(), msg); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if repo.status["job-1"] != "succeeded" {
		t.Errorf("Expected status succeeded, got %s", repo.status["job-1"])
	}
	if len(store.saved) != 2 {
		t.Errorf("Expected 2 artifacts, got %d", len(store.saved))
	}
	if _, ok := store.saved["job-job-1.docx"]; !ok {
		t.Error("DOCX artifact not saved under job-derived name")
	}
	if _, ok := store.saved["job-job-1.pdf"]; !ok {
		t.Error("PDF artifact not saved under job-derived name")
	}
	if repo.docxURL["job-1"] == "" || repo.pdfURL["job-1"] == "" {
		t.Error("Expected both artifact URLs recorded on the job")
	}
	if repo.sweeps != 1 {
		t.Errorf("Expected 1 retention sweep, got %d", repo.sweeps)
	}
}

func TestProcessor_Process_ProgressMonotonic(t *testing.T) {
	repo := newFakeRepo()
	p := NewProcessor(repo, newFakeCache(), &fakeDocRenderer{}, &fakePrinter{}, newFakeStore(), 100, zaptest.NewLogger(t))

	msg := queuedJob(repo, "job-1")
	if err := p.Process(context.Background(), msg); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	seq := repo.progress["job-1"]
	if len(seq) == 0 {
		t.Fatal("Expected progress updates")
	}
	for i := 1; i < len(seq); i++ {
		if seq[i] < seq[i-1] {
			t.Errorf("Progress decreased: %v", seq)
		}
	}
	if seq[len(seq)-1] != 100 {
		t.Errorf("Expected final progress 100, got %d", seq[len(seq)-1])
	}
}

func TestProcessor_Process_DocxFailureSkipsPdf(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStore()
	docs := &fakeDocRenderer{fn: func(string) ([]byte, error) {
		return nil, errors.New("template fetch failed: status 404")
	}}
	printer := &fakePrinter{}

	p := NewProcessor(repo, newFakeCache(), docs, printer, store, 100, zaptest.NewLogger(t))

	msg := queuedJob(repo, "job-1")
	if err := p.Process(context.Background(), msg); err != nil {
		t.Fatalf("Process should not propagate job errors, got %v", err)
	}

	if repo.status["job-1"] != "failed" {
		t.Errorf("Expected status failed, got %s", repo.status["job-1"])
	}
	if !strings.Contains(repo.errMsg["job-1"], "template fetch failed") {
		t.Errorf("Expected renderer message on job, got %q", repo.errMsg["job-1"])
	}
	if printer.calls != 0 {
		t.Error("PDF stage must not run after DOCX failure")
	}
	if len(store.saved) != 0 {
		t.Errorf("Expected no artifacts, got %d", len(store.saved))
	}
}

func TestProcessor_Process_PdfFailureFailsWholeJob(t *testing.T) {
	repo := newFakeRepo()
	statusCache := newFakeCache()
	store := newFakeStore()
	printer := &fakePrinter{err: errors.New("pdf render failed: launch browser")}

	p := NewProcessor(repo, statusCache, &fakeDocRenderer{}, printer, store, 100, zaptest.NewLogger(t))

	msg := queuedJob(repo, "job-1")
	if err := p.Process(context.Background(), msg); err != nil {
		t.Fatalf("Process should not propagate job errors, got %v", err)
	}

	if repo.status["job-1"] != "failed" {
		t.Errorf("Expected status failed, got %s", repo.status["job-1"])
	}
	// DOCX was already written; only the job record reports failure.
	if len(store.saved) != 1 {
		t.Errorf("Expected only the DOCX artifact, got %d files", len(store.saved))
	}
	if repo.docxURL["job-1"] != "" || repo.pdfURL["job-1"] != "" {
		t.Error("Failed job must not expose artifact URLs")
	}

	// The terminal snapshot keeps the last reached progress so polling
	// clients never see it drop.
	snap, ok := statusCache.last("job-1")
	if !ok {
		t.Fatal("Expected a terminal snapshot cached")
	}
	if snap.Status != "failed" || snap.Progress != 60 {
		t.Errorf("Expected failed snapshot at progress 60, got %+v", snap)
	}
}

func TestProcessor_Process_ShutdownLeavesJobForRedelivery(t *testing.T) {
	repo := newFakeRepo()
	ctx, cancel := context.WithCancel(context.Background())
	docs := &fakeDocRenderer{fn: func(string) ([]byte, error) {
		cancel()
		return nil, ctx.Err()
	}}

	p := NewProcessor(repo, newFakeCache(), docs, &fakePrinter{}, newFakeStore(), 100, zaptest.NewLogger(t))

	msg := queuedJob(repo, "job-1")
	if err := p.Process(ctx, msg); err == nil {
		t.Fatal("Expected error for interrupted render")
	}

	if repo.status["job-1"] != "processing" {
		t.Errorf("Interrupted job must stay claimable, got status %s", repo.status["job-1"])
	}
	if repo.errMsg["job-1"] != "" {
		t.Errorf("Interrupted job must not record a failure, got %q", repo.errMsg["job-1"])
	}
}

func TestProcessor_Process_ReclaimsInterruptedJob(t *testing.T) {
	repo := newFakeRepo()
	repo.status["job-1"] = "processing"

	p := NewProcessor(repo, newFakeCache(), &fakeDocRenderer{}, &fakePrinter{}, newFakeStore(), 100, zaptest.NewLogger(t))

	msg := &kafka.JobMessage{JobID: "job-1", ContentText: "text"}
	if err := p.Process(context.Background(), msg); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if repo.status["job-1"] != "succeeded" {
		t.Errorf("Expected re-delivered job to finish, got status %s", repo.status["job-1"])
	}
}

func TestProcessor_Process_CacheErrorDoesNotFailJob(t *testing.T) {
	repo := newFakeRepo()
	statusCache := newFakeCache()
	statusCache.setErr = errors.New("redis unavailable")

	p := NewProcessor(repo, statusCache, &fakeDocRenderer{}, &fakePrinter{}, newFakeStore(), 100, zaptest.NewLogger(t))

	msg := queuedJob(repo, "job-1")
	if err := p.Process(context.Background(), msg); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if repo.status["job-1"] != "succeeded" {
		t.Errorf("Expected status succeeded despite cache errors, got %s", repo.status["job-1"])
	}
}

func TestProcessor_Process_RedeliverySkipsTerminalJob(t *testing.T) {
	repo := newFakeRepo()
	repo.status["job-1"] = "succeeded"
	docs := &fakeDocRenderer{}

	p := NewProcessor(repo, newFakeCache(), docs, &fakePrinter{}, newFakeStore(), 100, zaptest.NewLogger(t))

	msg := &kafka.JobMessage{JobID: "job-1", ContentText: "text"}
	if err := p.Process(context.Background(), msg); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if docs.calls != 0 {
		t.Error("Terminal job must not be re-rendered")
	}
	if repo.status["job-1"] != "succeeded" {
		t.Errorf("Terminal state changed to %s", repo.status["job-1"])
	}
}

func TestProcessor_Process_JobsAreIndependent(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStore()
	docs := &fakeDocRenderer{fn: func(templateURL string) ([]byte, error) {
		if templateURL != "" {
			return nil, errors.New("template fetch failed")
		}
		return []byte("docx-bytes"), nil
	}}

	p := NewProcessor(repo, newFakeCache(), docs, &fakePrinter{}, store, 100, zaptest.NewLogger(t))

	bad := queuedJob(repo, "job-bad")
	bad.TemplateURL = "http://example.com/missing.docx"
	good := queuedJob(repo, "job-good")

	if err := p.Process(context.Background(), bad); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if err := p.Process(context.Background(), good); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if repo.status["job-bad"] != "failed" {
		t.Errorf("Expected job-bad failed, got %s", repo.status["job-bad"])
	}
	if repo.status["job-good"] != "succeeded" {
		t.Errorf("Expected job-good succeeded, got %s", repo.status["job-good"])
	}
}
