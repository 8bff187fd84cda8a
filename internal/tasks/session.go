package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/simsa/internal/catalog"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/services"
	"github.com/desertthunder/simsa/internal/shared"
)

// DefaultCoverPrefix is where the backend serves cover images from.
const DefaultCoverPrefix = "/datasets/cover/"

// ErrSessionClosed is returned by operations on a closed [Session].
var ErrSessionClosed = errors.New("search session closed")

// State of a [Session].
type State int

const (
	Idle State = iota
	FetchingCatalog
	AwaitingResult
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingCatalog:
		return "fetching_catalog"
	case AwaitingResult:
		return "awaiting_result"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Settled reports whether the attempt is finished.
func (s State) Settled() bool { return s == Resolved || s == Failed }

// Recorder stores settled searches. Errors are logged and otherwise ignored.
type Recorder interface {
	RecordSearch(flow models.Flow, result *models.SearchResult, match *models.CatalogEntry, err error) error
}

// SessionOpts configures a [Session].
type SessionOpts struct {
	Flow        models.Flow
	Cache       *catalog.Cache
	Results     services.ResultFetcher
	CoverPrefix string      // defaults to [DefaultCoverPrefix]
	Recorder    Recorder    // optional
	Logger      *log.Logger // optional
	Progress    chan<- ProgressUpdate
}

// Snapshot is a consistent view of a [Session].
type Snapshot struct {
	State  State
	Flow   models.Flow
	Result *models.SearchResult // nil until the result fetch succeeds
	Match  *models.CatalogEntry // nil when Resolved without a catalog match
	Err    error                // set in Failed
}

// Message is the status line for the snapshot.
func (s Snapshot) Message() string {
	switch s.State {
	case Failed:
		return shared.UserMessage(s.Err)
	case Resolved:
		if s.Match == nil {
			return models.NoMatchLabel
		}
		return s.Match.Title()
	case Idle:
		return ""
	default:
		return "Loading..."
	}
}

// Session resolves the latest similarity-search result against the catalog.
type Session struct {
	flow        models.Flow
	cache       *catalog.Cache
	results     services.ResultFetcher
	coverPrefix string
	recorder    Recorder
	logger      *log.Logger
	progress    chan<- ProgressUpdate
	now         func() time.Time

	mu           sync.Mutex
	state        State
	gen          uint64
	catalogReady bool
	result       *models.SearchResult
	match        *models.CatalogEntry
	err          error
	closed       bool
	done         chan struct{}
}

// NewSession creates an Idle session.
func NewSession(opts SessionOpts) *Session {
	prefix := opts.CoverPrefix
	if prefix == "" {
		prefix = DefaultCoverPrefix
	}
	return &Session{
		flow:        opts.Flow,
		cache:       opts.Cache,
		results:     opts.Results,
		coverPrefix: prefix,
		recorder:    opts.Recorder,
		logger:      opts.Logger,
		progress:    opts.Progress,
		now:         time.Now,
		done:        make(chan struct{}),
	}
}

// Start moves Idle -> FetchingCatalog and launches the catalog and result fetches concurrently.
func (s *Session) Start(ctx context.Context) error {
	if s.cache == nil || s.results == nil {
		return fmt.Errorf("%w: search session requires a catalog cache and result fetcher", shared.ErrServiceUnavailable)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != Idle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: session already %s", shared.ErrInvalidArgument, state)
	}
	s.begin(ctx)
	return nil
}

// Retry re-enters Idle from Failed and starts again.
//
// A result buffered by an earlier attempt is reused, so only the catalog is
// refetched in that case.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != Failed {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot retry a session that is %s", shared.ErrInvalidArgument, state)
	}
	s.state = Idle
	s.begin(ctx)
	return nil
}

// begin must be called with s.mu held; it releases it.
func (s *Session) begin(ctx context.Context) {
	s.gen++
	gen := s.gen
	s.state = FetchingCatalog
	s.catalogReady = false
	s.match = nil
	s.err = nil
	s.done = make(chan struct{})
	needResult := s.result == nil
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Debug("search session started", "flow", s.flow, "attempt", gen, "buffered_result", !needResult)
	}
	sendProgress(s.progress, ProgressUpdate{Phase: FetchCatalog, Step: 1, Total: 1, Message: "Fetching catalog..."})

	go func() {
		_, err := s.cache.Fetch(ctx)
		s.catalogSettled(gen, err)
	}()

	if needResult {
		sendProgress(s.progress, ProgressUpdate{Phase: FetchResult, Step: 1, Total: 1, Message: "Fetching search result..."})
		go func() {
			start := s.now()
			payload, err := s.results.FetchResult(ctx, s.flow)
			elapsed := s.now().Sub(start)
			s.resultSettled(gen, payload, elapsed, err)
		}()
	}
}

// catalogSettled records the outcome of the catalog fetch of attempt gen.
func (s *Session) catalogSettled(gen uint64, err error) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.state.Settled() {
		s.mu.Unlock()
		return
	}

	if err != nil {
		s.fail(err)
		return
	}

	s.catalogReady = true
	if s.state == FetchingCatalog {
		s.state = AwaitingResult
	}
	s.tryResolve()
}

// resultSettled records the outcome of a result fetch.
//
// A successful result is buffered even when its attempt already failed or was
// superseded so a retry can reuse it.
func (s *Session) resultSettled(gen uint64, payload *services.ResultPayload, elapsed time.Duration, err error) {
	if err == nil && payload == nil {
		err = fmt.Errorf("%w: empty search result", shared.ErrParse)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if err == nil && s.result == nil {
		s.result = &models.SearchResult{
			MatchedRef: payload.MatchedRef,
			Similarity: payload.Similarity,
			Elapsed:    elapsed,
		}
	}

	if gen != s.gen || s.state.Settled() {
		s.mu.Unlock()
		return
	}

	if err != nil {
		if s.logger != nil {
			s.logger.Warn("result fetch failed", "flow", s.flow, "elapsed", elapsed, "error", err)
		}
		s.fail(err)
		return
	}

	s.tryResolve()
}

// tryResolve matches the buffered result once the catalog is ready. Must be called with s.mu held; it releases it.
func (s *Session) tryResolve() {
	if !s.catalogReady || s.result == nil {
		s.mu.Unlock()
		return
	}

	s.match = Match(s.flow, s.cache.Entries(), s.result.MatchedRef, s.coverPrefix)
	s.state = Resolved
	snap, done := s.snapshot(), s.done
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("search resolved", "flow", s.flow, "ref", snap.Result.MatchedRef, "similarity", snap.Result.Similarity, "matched", snap.Match != nil)
	}
	s.record(snap)
	sendProgress(s.progress, ProgressUpdate{Phase: MatchResult, Step: 1, Total: 1, Message: snap.Message(), Data: snap})
	close(done)
}

// fail moves the session to Failed. Must be called with s.mu held; it releases it.
//
// Only the goroutine that settles an attempt closes its done channel.
func (s *Session) fail(err error) {
	s.err = err
	s.state = Failed
	snap, done := s.snapshot(), s.done
	s.mu.Unlock()

	s.record(snap)
	close(done)
}

func (s *Session) record(snap Snapshot) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordSearch(snap.Flow, snap.Result, snap.Match, snap.Err); err != nil && s.logger != nil {
		s.logger.Warn("failed to record search", "error", err)
	}
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{State: s.state, Flow: s.flow, Err: s.err}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	if s.match != nil {
		m := *s.match
		snap.Match = &m
	}
	return snap
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Wait blocks until the current attempt settles, the session is closed, or ctx is done.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.state == Idle {
		s.mu.Unlock()
		return s.Snapshot(), fmt.Errorf("%w: session not started", shared.ErrInvalidArgument)
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		snap := s.Snapshot()
		if s.isClosed() && !snap.State.Settled() {
			return snap, ErrSessionClosed
		}
		return snap, nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close discards any response that settles afterwards and releases waiters.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if !s.state.Settled() && s.state != Idle {
		close(s.done)
	}
}

// Match returns the first entry matching ref for flow, or nil.
//
// Cover results match an entry whose Img equals ref resolved under coverPrefix.
// Sound results match an entry whose Music contains ref.
func Match(flow models.Flow, entries []models.CatalogEntry, ref, coverPrefix string) *models.CatalogEntry {
	if ref == "" {
		return nil
	}

	target := ref
	if flow == models.CoverFlow && !strings.HasPrefix(ref, "/") {
		target = strings.TrimRight(coverPrefix, "/") + "/" + ref
	}

	for i := range entries {
		var ok bool
		switch flow {
		case models.CoverFlow:
			ok = entries[i].Img == target
		case models.SoundFlow:
			ok = strings.Contains(entries[i].Music, ref)
		}
		if ok {
			e := entries[i]
			return &e
		}
	}
	return nil
}
