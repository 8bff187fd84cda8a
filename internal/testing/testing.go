// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

// FakeEngine is a test double for playback.Engine
type FakeEngine struct {
	mu      sync.Mutex
	plays   []string
	stops   int
	PlayErr error
}

func (f *FakeEngine) Play(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PlayErr != nil {
		return f.PlayErr
	}
	f.plays = append(f.plays, ref)
	return nil
}

func (f *FakeEngine) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

// Plays returns every reference passed to Play, in order
func (f *FakeEngine) Plays() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.plays...)
}

func (f *FakeEngine) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// FakeTicker is a manually driven playback.Ticker
type FakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func NewFakeTicker() *FakeTicker {
	return &FakeTicker{ch: make(chan time.Time)}
}

func (f *FakeTicker) C() <-chan time.Time { return f.ch }

func (f *FakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *FakeTicker) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// Tick delivers one tick and blocks until the consumer has received it
func (f *FakeTicker) Tick() {
	f.ch <- time.Now()
}

// FakeTickers records every ticker created through New
type FakeTickers struct {
	mu      sync.Mutex
	tickers []*FakeTicker
}

// New has the playback.TickerFactory signature
func (f *FakeTickers) New(d time.Duration) *FakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := NewFakeTicker()
	f.tickers = append(f.tickers, t)
	return t
}

// Created returns how many tickers were made
func (f *FakeTickers) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// Live returns the tickers that were not stopped
func (f *FakeTickers) Live() []*FakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	var live []*FakeTicker
	for _, t := range f.tickers {
		if !t.Stopped() {
			live = append(live, t)
		}
	}
	return live
}

// Last returns the most recently created ticker, or nil
func (f *FakeTickers) Last() *FakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}

// FakeAssets serves static asset bodies by reference
type FakeAssets struct {
	Files map[string]string
}

func (f *FakeAssets) DownloadAsset(ctx context.Context, ref string, w io.Writer) (int64, error) {
	body, ok := f.Files[ref]
	if !ok {
		return 0, errors.New("asset not found: " + ref)
	}
	return io.Copy(w, strings.NewReader(body))
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if err == nil && !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}
