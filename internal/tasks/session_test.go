package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/simsa/internal/catalog"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/services"
	"github.com/desertthunder/simsa/internal/shared"
)

// mockBackend serves the catalog and result fetches. A non-nil gate blocks the call until closed.
type mockBackend struct {
	mu           sync.Mutex
	entries      []models.CatalogEntry
	catalogErrs  []error // consumed one per call; nil entries succeed
	catalogGate  chan struct{}
	catalogCalls int
	result       *services.ResultPayload
	resultErr    error
	resultGate   chan struct{}
	resultCalls  int
}

func (m *mockBackend) FetchCatalog(ctx context.Context) ([]models.CatalogEntry, error) {
	m.mu.Lock()
	gate := m.catalogGate
	m.catalogCalls++
	var err error
	if len(m.catalogErrs) > 0 {
		err = m.catalogErrs[0]
		m.catalogErrs = m.catalogErrs[1:]
	}
	entries := m.entries
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return entries, err
}

func (m *mockBackend) FetchResult(ctx context.Context, flow models.Flow) (*services.ResultPayload, error) {
	m.mu.Lock()
	gate := m.resultGate
	m.resultCalls++
	result, err := m.result, m.resultErr
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return result, err
}

func (m *mockBackend) counts() (catalogCalls, resultCalls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalogCalls, m.resultCalls
}

type mockRecorder struct {
	mu      sync.Mutex
	records []string
}

func (m *mockRecorder) RecordSearch(flow models.Flow, result *models.SearchResult, match *models.CatalogEntry, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case err != nil:
		m.records = append(m.records, "failed")
	case match == nil:
		m.records = append(m.records, "unmatched")
	default:
		m.records = append(m.records, match.Name)
	}
	return nil
}

func songs() []models.CatalogEntry {
	return []models.CatalogEntry{
		{Name: "song1", Singer: "A", Img: "/datasets/cover/song1.png", Music: "datasets/audio/song1.mid"},
		{Name: "song2", Singer: "B", Img: "/datasets/cover/song2.png", Music: "datasets/audio/song2.mid"},
		{Name: "song3", Singer: "C", Img: "/datasets/cover/song3.png", Music: "datasets/audio/song3.mid"},
	}
}

func newTestSession(flow models.Flow, backend *mockBackend) *Session {
	return NewSession(SessionOpts{
		Flow:    flow,
		Cache:   catalog.NewCache(backend, nil),
		Results: backend,
	})
}

func waitSettled(t *testing.T, s *Session) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	snap, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("session did not settle: %v", err)
	}
	return snap
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSession(t *testing.T) {
	t.Run("Sound Flow Resolves By Substring", func(t *testing.T) {
		backend := &mockBackend{
			entries: songs(),
			result:  &services.ResultPayload{MatchedRef: "song2.mid", Similarity: 93.25},
		}
		rec := &mockRecorder{}
		s := NewSession(SessionOpts{
			Flow:     models.SoundFlow,
			Cache:    catalog.NewCache(backend, nil),
			Results:  backend,
			Recorder: rec,
			Logger:   shared.NewLogger(nil),
		})

		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("failed to start: %v", err)
		}
		snap := waitSettled(t, s)

		if snap.State != Resolved {
			t.Fatalf("expected Resolved, got %s", snap.State)
		}
		if snap.Match == nil || snap.Match.Name != "song2" {
			t.Errorf("expected match song2, got %+v", snap.Match)
		}
		if snap.Result.Similarity != 93.25 {
			t.Errorf("expected similarity 93.25, got %.2f", snap.Result.Similarity)
		}
		if snap.Message() != "song2 - B" {
			t.Errorf("unexpected message %q", snap.Message())
		}
		if len(rec.records) != 1 || rec.records[0] != "song2" {
			t.Errorf("expected one recorded match, got %v", rec.records)
		}
	})

	t.Run("Cover Flow Resolves By Equality", func(t *testing.T) {
		backend := &mockBackend{
			entries: songs(),
			result:  &services.ResultPayload{MatchedRef: "song3.png", Similarity: 71},
		}
		s := newTestSession(models.CoverFlow, backend)
		s.Start(context.Background())

		snap := waitSettled(t, s)
		if snap.Match == nil || snap.Match.Name != "song3" {
			t.Errorf("expected match song3, got %+v", snap.Match)
		}
	})

	t.Run("Unknown Cover Resolves Without Match", func(t *testing.T) {
		backend := &mockBackend{
			entries: songs(),
			result:  &services.ResultPayload{MatchedRef: "unknown.png", Similarity: 12},
		}
		s := newTestSession(models.CoverFlow, backend)
		s.Start(context.Background())

		snap := waitSettled(t, s)
		if snap.State != Resolved {
			t.Fatalf("expected Resolved, got %s", snap.State)
		}
		if snap.Match != nil {
			t.Errorf("expected nil match, got %+v", snap.Match)
		}
		if snap.Err != nil {
			t.Errorf("expected no error, got %v", snap.Err)
		}
		if snap.Message() != models.NoMatchLabel {
			t.Errorf("expected %q, got %q", models.NoMatchLabel, snap.Message())
		}
	})

	t.Run("Result Before Catalog Is Buffered", func(t *testing.T) {
		backend := &mockBackend{
			entries:     songs(),
			catalogGate: make(chan struct{}),
			result:      &services.ResultPayload{MatchedRef: "song1.mid", Similarity: 50},
		}
		s := newTestSession(models.SoundFlow, backend)
		s.Start(context.Background())

		eventually(t, func() bool { return s.Snapshot().Result != nil })
		if got := s.Snapshot().State; got != FetchingCatalog {
			t.Fatalf("expected FetchingCatalog while catalog is pending, got %s", got)
		}

		close(backend.catalogGate)
		snap := waitSettled(t, s)
		if snap.State != Resolved || snap.Match == nil || snap.Match.Name != "song1" {
			t.Errorf("expected Resolved with song1, got %s %+v", snap.State, snap.Match)
		}
	})

	t.Run("Catalog Before Result Awaits", func(t *testing.T) {
		backend := &mockBackend{
			entries:    songs(),
			resultGate: make(chan struct{}),
			result:     &services.ResultPayload{MatchedRef: "song3.mid"},
		}
		s := newTestSession(models.SoundFlow, backend)
		s.Start(context.Background())

		eventually(t, func() bool { return s.Snapshot().State == AwaitingResult })
		close(backend.resultGate)

		if snap := waitSettled(t, s); snap.State != Resolved {
			t.Errorf("expected Resolved, got %s", snap.State)
		}
	})

	t.Run("Catalog Failure Then Retry Reuses Result", func(t *testing.T) {
		backend := &mockBackend{
			entries:     songs(),
			catalogErrs: []error{fmt.Errorf("%w: connection refused", shared.ErrNetwork)},
			resultGate:  make(chan struct{}),
			result:      &services.ResultPayload{MatchedRef: "song3.mid", Similarity: 88},
		}
		rec := &mockRecorder{}
		s := NewSession(SessionOpts{
			Flow:     models.SoundFlow,
			Cache:    catalog.NewCache(backend, nil),
			Results:  backend,
			Recorder: rec,
		})
		s.Start(context.Background())

		snap := waitSettled(t, s)
		if snap.State != Failed {
			t.Fatalf("expected Failed, got %s", snap.State)
		}
		if !errors.Is(snap.Err, shared.ErrNetwork) {
			t.Errorf("expected network error, got %v", snap.Err)
		}
		if snap.Message() != "An unexpected error occurred. Please try again." {
			t.Errorf("unexpected message %q", snap.Message())
		}

		close(backend.resultGate)
		eventually(t, func() bool { return s.Snapshot().Result != nil })

		if err := s.Retry(context.Background()); err != nil {
			t.Fatalf("failed to retry: %v", err)
		}
		snap = waitSettled(t, s)

		if snap.State != Resolved {
			t.Fatalf("expected Resolved after retry, got %s (%v)", snap.State, snap.Err)
		}
		if snap.Match == nil || snap.Match.Music != "datasets/audio/song3.mid" {
			t.Errorf("expected song3 match, got %+v", snap.Match)
		}

		catalogCalls, resultCalls := backend.counts()
		if catalogCalls != 2 || resultCalls != 1 {
			t.Errorf("expected 2 catalog and 1 result fetch, got %d and %d", catalogCalls, resultCalls)
		}
		if len(rec.records) != 2 || rec.records[0] != "failed" || rec.records[1] != "song3" {
			t.Errorf("unexpected recorded history %v", rec.records)
		}
	})

	t.Run("Result Failure Then Retry Refetches", func(t *testing.T) {
		backend := &mockBackend{
			entries:   songs(),
			resultErr: &shared.ResponseError{Endpoint: "audio-search-result/", StatusCode: 404, Message: "No result yet"},
		}
		s := newTestSession(models.SoundFlow, backend)
		s.Start(context.Background())

		snap := waitSettled(t, s)
		if snap.State != Failed || snap.Message() != "Error: No result yet" {
			t.Fatalf("expected Failed with server message, got %s %q", snap.State, snap.Message())
		}

		backend.mu.Lock()
		backend.resultErr = nil
		backend.result = &services.ResultPayload{MatchedRef: "song1.mid"}
		backend.mu.Unlock()

		s.Retry(context.Background())
		if snap := waitSettled(t, s); snap.State != Resolved {
			t.Errorf("expected Resolved, got %s", snap.State)
		}
		if _, resultCalls := backend.counts(); resultCalls != 2 {
			t.Errorf("expected result to be refetched, got %d calls", resultCalls)
		}
	})

	t.Run("Elapsed Measures Result Fetch Only", func(t *testing.T) {
		backend := &mockBackend{
			entries: songs(),
			result:  &services.ResultPayload{MatchedRef: "song1.mid"},
		}
		s := newTestSession(models.SoundFlow, backend)

		var mu sync.Mutex
		clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		s.now = func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(1234 * time.Millisecond)
			return clock
		}

		s.Start(context.Background())
		snap := waitSettled(t, s)
		if snap.Result.Elapsed != 1234*time.Millisecond {
			t.Errorf("expected elapsed 1.234s, got %v", snap.Result.Elapsed)
		}
		if snap.Result.ElapsedSeconds() != 1.23 {
			t.Errorf("expected 1.23 seconds, got %v", snap.Result.ElapsedSeconds())
		}
	})

	t.Run("Close Discards Late Responses", func(t *testing.T) {
		backend := &mockBackend{
			entries:     songs(),
			catalogGate: make(chan struct{}),
			result:      &services.ResultPayload{MatchedRef: "song1.mid"},
		}
		rec := &mockRecorder{}
		s := NewSession(SessionOpts{
			Flow:     models.SoundFlow,
			Cache:    catalog.NewCache(backend, nil),
			Results:  backend,
			Recorder: rec,
		})
		s.Start(context.Background())
		s.Close()

		if _, err := s.Wait(context.Background()); !errors.Is(err, ErrSessionClosed) {
			t.Errorf("expected ErrSessionClosed from Wait, got %v", err)
		}

		close(backend.catalogGate)
		time.Sleep(20 * time.Millisecond)

		if got := s.Snapshot().State; got != FetchingCatalog {
			t.Errorf("expected state to stay FetchingCatalog after close, got %s", got)
		}
		if len(rec.records) != 0 {
			t.Errorf("expected nothing recorded after close, got %v", rec.records)
		}
		if err := s.Retry(context.Background()); !errors.Is(err, ErrSessionClosed) {
			t.Errorf("expected ErrSessionClosed, got %v", err)
		}
	})

	t.Run("Start Twice", func(t *testing.T) {
		backend := &mockBackend{entries: songs(), result: &services.ResultPayload{MatchedRef: "x"}}
		s := newTestSession(models.SoundFlow, backend)
		s.Start(context.Background())
		if err := s.Start(context.Background()); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		waitSettled(t, s)
		if err := s.Retry(context.Background()); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected retry of a resolved session to fail, got %v", err)
		}
	})

	t.Run("Wait Before Start", func(t *testing.T) {
		s := newTestSession(models.SoundFlow, &mockBackend{})
		if _, err := s.Wait(context.Background()); err == nil {
			t.Error("expected error waiting on an idle session")
		}
	})
}

func TestMatch(t *testing.T) {
	entries := []models.CatalogEntry{
		{Name: "first", Img: "/datasets/cover/dup.png", Music: "datasets/audio/a/song.mid"},
		{Name: "second", Img: "/datasets/cover/dup.png", Music: "datasets/audio/b/song.mid"},
		{Name: "third", Img: "/datasets/cover/other.png", Music: "datasets/audio/other.mid"},
	}

	tests := []struct {
		name string
		flow models.Flow
		ref  string
		want string
	}{
		{"cover first match wins", models.CoverFlow, "dup.png", "first"},
		{"cover absolute reference", models.CoverFlow, "/datasets/cover/other.png", "third"},
		{"cover substring does not match", models.CoverFlow, "other", ""},
		{"sound first match wins", models.SoundFlow, "song.mid", "first"},
		{"sound substring", models.SoundFlow, "b/song", "second"},
		{"sound unknown", models.SoundFlow, "missing.mid", ""},
		{"empty reference", models.SoundFlow, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.flow, entries, tt.ref, DefaultCoverPrefix)
			if tt.want == "" {
				if got != nil {
					t.Errorf("expected no match, got %s", got.Name)
				}
				return
			}
			if got == nil || got.Name != tt.want {
				t.Errorf("expected %s, got %+v", tt.want, got)
			}
		})
	}
}
