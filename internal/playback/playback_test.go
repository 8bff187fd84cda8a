package playback

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/shared"
	tu "github.com/desertthunder/simsa/internal/testing"
)

var (
	trackA = models.CatalogEntry{Name: "A", Music: "datasets/audio/a.mid"}
	trackB = models.CatalogEntry{Name: "B", Music: "datasets/audio/b.mid"}
	trackC = models.CatalogEntry{Name: "C", Music: "datasets/audio/c.mid"}
)

func newTestController(t *testing.T, engine *tu.FakeEngine, tickers *tu.FakeTickers) *Controller {
	t.Helper()
	c := NewController(ControllerOpts{
		Gate:      ReadyGate(engine),
		Entries:   func() []models.CatalogEntry { return []models.CatalogEntry{trackA, trackB, trackC} },
		NewTicker: func(d time.Duration) Ticker { return tickers.New(d) },
	})
	t.Cleanup(func() { c.Close() })
	return c
}

// blockingEngine holds Play for block until release is closed.
type blockingEngine struct {
	block     string
	ignoreCtx bool
	started   chan string
	release   chan struct{}

	mu    sync.Mutex
	plays []string
	stops int
}

func newBlockingEngine(block string, ignoreCtx bool) *blockingEngine {
	return &blockingEngine{
		block:     block,
		ignoreCtx: ignoreCtx,
		started:   make(chan string, 4),
		release:   make(chan struct{}),
	}
}

func (b *blockingEngine) Play(ctx context.Context, ref string) error {
	b.started <- ref
	if ref == b.block {
		if b.ignoreCtx {
			<-b.release
		} else {
			select {
			case <-b.release:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.plays = append(b.plays, ref)
	return nil
}

func (b *blockingEngine) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	return nil
}

func (b *blockingEngine) Stops() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stops
}

// returnsWithin fails the test if fn does not return within d.
func returnsWithin(t *testing.T, d time.Duration, name string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s blocked for more than %v", name, d)
	}
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

func TestController(t *testing.T) {
	ctx := context.Background()

	t.Run("Play", func(t *testing.T) {
		engine, tickers := &tu.FakeEngine{}, &tu.FakeTickers{}
		c := newTestController(t, engine, tickers)

		if err := c.Play(ctx, trackA); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		s := c.State()
		if s.Status != Playing || s.Track.Name != "A" || s.Progress != 0 {
			t.Errorf("unexpected state %+v", s)
		}
		if plays := engine.Plays(); len(plays) != 1 || plays[0] != trackA.Music {
			t.Errorf("expected engine to play %s, got %v", trackA.Music, plays)
		}
		if tickers.Created() != 1 {
			t.Errorf("expected one ticker, got %d", tickers.Created())
		}
	})

	t.Run("Play Then Play Keeps One Ticker", func(t *testing.T) {
		engine, tickers := &tu.FakeEngine{}, &tu.FakeTickers{}
		c := newTestController(t, engine, tickers)

		c.Play(ctx, trackA)
		c.tick()
		c.Play(ctx, trackB)

		if live := tickers.Live(); len(live) != 1 || live[0] != tickers.Last() {
			t.Fatalf("expected exactly the newest ticker live, got %d live", len(live))
		}
		if engine.Stops() != 1 {
			t.Errorf("expected exactly one stop before the second start, got %d", engine.Stops())
		}
		if s := c.State(); s.Track.Name != "B" || s.Progress != 0 {
			t.Errorf("expected B with reset progress, got %+v", s)
		}
	})

	t.Run("Superseded Ticker Is Ignored", func(t *testing.T) {
		engine, tickers := &tu.FakeEngine{}, &tu.FakeTickers{}
		c := newTestController(t, engine, tickers)

		c.Play(ctx, trackA)
		first := tickers.Last()
		c.Play(ctx, trackB)

		c.advance(0)
		if p := c.State().Progress; p != 0 {
			t.Errorf("expected stale tick to be ignored, got progress %v", p)
		}

		tickers.Last().Tick()
		eventually(t, func() bool { return c.State().Progress > 0 })
		if !first.Stopped() {
			t.Error("expected first ticker to be stopped")
		}
	})

	t.Run("Progress Auto Stops At 100", func(t *testing.T) {
		engine, tickers := &tu.FakeEngine{}, &tu.FakeTickers{}
		c := newTestController(t, engine, tickers)
		c.Play(ctx, trackA)

		for range 119 {
			c.tick()
		}
		if s := c.State(); s.Status != Playing || s.Progress >= 100 {
			t.Fatalf("expected to still be playing below 100, got %+v", s)
		}

		c.tick()
		s := c.State()
		if s.Status != Stopped || s.Progress != 100 {
			t.Errorf("expected Stopped at 100, got %s at %v", s.Status, s.Progress)
		}
		if len(tickers.Live()) != 0 {
			t.Error("expected ticker to be cleared after auto-stop")
		}

		c.tick()
		if c.State().Progress != 100 {
			t.Error("expected no progress after stop")
		}
	})

	t.Run("Custom Duration", func(t *testing.T) {
		engine, tickers := &tu.FakeEngine{}, &tu.FakeTickers{}
		c := NewController(ControllerOpts{
			Gate:              ReadyGate(engine),
			EstimatedDuration: 4 * time.Second,
			NewTicker:         func(d time.Duration) Ticker { return tickers.New(d) },
		})
		defer c.Close()

		c.Play(ctx, trackA)
		c.tick()
		if p := c.State().Progress; p != 25 {
			t.Errorf("expected 25%% after one of four ticks, got %v", p)
		}
	})

	t.Run("Stop Freezes Progress", func(t *testing.T) {
		engine, tickers := &tu.FakeEngine{}, &tu.FakeTickers{}
		c := newTestController(t, engine, tickers)

		c.Play(ctx, trackA)
		c.tick()
		c.tick()
		want := c.State().Progress

		if err := c.Stop(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		s := c.State()
		if s.Status != Stopped || s.Progress != want {
			t.Errorf("expected Stopped at %v, got %s at %v", want, s.Status, s.Progress)
		}
		if err := c.Stop(); err != nil || engine.Stops() != 1 {
			t.Errorf("expected second stop to be a no-op, got err=%v stops=%d", err, engine.Stops())
		}
	})

	t.Run("Toggle", func(t *testing.T) {
		engine, tickers := &tu.FakeEngine{}, &tu.FakeTickers{}
		c := newTestController(t, engine, tickers)

		c.Toggle(ctx, trackA)
		if c.State().Status != Playing {
			t.Fatal("expected toggle to start playback")
		}

		c.Toggle(ctx, trackB)
		if s := c.State(); s.Status != Playing || s.Track.Name != "B" {
			t.Fatalf("expected toggle on another track to switch, got %+v", s)
		}

		c.Toggle(ctx, trackB)
		if c.State().Status != Stopped {
			t.Error("expected toggle on the active track to stop it")
		}
	})

	t.Run("Next And Previous Wrap", func(t *testing.T) {
		tests := []struct {
			name  string
			start models.CatalogEntry
			next  bool
			want  string
		}{
			{"next from A", trackA, true, "B"},
			{"next from C wraps", trackC, true, "A"},
			{"previous from B", trackB, false, "A"},
			{"previous from A wraps", trackA, false, "C"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c := newTestController(t, &tu.FakeEngine{}, &tu.FakeTickers{})
				c.Play(ctx, tt.start)

				var err error
				if tt.next {
					err = c.Next(ctx)
				} else {
					err = c.Previous(ctx)
				}
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if got := c.State().Track.Name; got != tt.want {
					t.Errorf("expected %s, got %s", tt.want, got)
				}
			})
		}
	})

	t.Run("Next Without Active Track Is A No-op", func(t *testing.T) {
		engine, tickers := &tu.FakeEngine{}, &tu.FakeTickers{}
		c := newTestController(t, engine, tickers)

		if err := c.Next(ctx); !errors.Is(err, shared.ErrNoActiveTrack) {
			t.Errorf("expected ErrNoActiveTrack, got %v", err)
		}
		if c.State().Status != Idle || len(engine.Plays()) != 0 {
			t.Error("expected no state change")
		}
	})

	t.Run("Engine Not Loaded", func(t *testing.T) {
		c := NewController(ControllerOpts{Gate: NewGate()})
		defer c.Close()

		err := c.Play(ctx, trackA)
		if !errors.Is(err, shared.ErrEngineNotLoaded) || !errors.Is(err, shared.ErrPlaybackPrecondition) {
			t.Errorf("expected engine precondition error, got %v", err)
		}
		if c.State().Status != Idle {
			t.Error("expected state to stay idle")
		}
	})

	t.Run("Engine Play Failure", func(t *testing.T) {
		engine := &tu.FakeEngine{PlayErr: errors.New("no such file")}
		tickers := &tu.FakeTickers{}
		c := newTestController(t, engine, tickers)

		if err := c.Play(ctx, trackA); err == nil {
			t.Fatal("expected error")
		}
		if c.State().Status == Playing || tickers.Created() != 0 {
			t.Error("expected no playback and no ticker after a failed start")
		}
	})

	t.Run("OnChange", func(t *testing.T) {
		var mu sync.Mutex
		var statuses []Status
		c := NewController(ControllerOpts{
			Gate:      ReadyGate(&tu.FakeEngine{}),
			NewTicker: func(d time.Duration) Ticker { return tu.NewFakeTicker() },
			OnChange: func(s State) {
				mu.Lock()
				defer mu.Unlock()
				statuses = append(statuses, s.Status)
			},
		})

		c.Play(ctx, trackA)
		c.Stop()
		c.Close()

		mu.Lock()
		defer mu.Unlock()
		if len(statuses) != 2 || statuses[0] != Playing || statuses[1] != Stopped {
			t.Errorf("unexpected transitions %v", statuses)
		}
	})

	t.Run("Slow Engine Start Does Not Block", func(t *testing.T) {
		engine, tickers := newBlockingEngine(trackA.Music, true), &tu.FakeTickers{}
		c := NewController(ControllerOpts{
			Gate:      ReadyGate(engine),
			NewTicker: func(d time.Duration) Ticker { return tickers.New(d) },
		})
		defer c.Close()

		played := make(chan error, 1)
		go func() { played <- c.Play(ctx, trackA) }()
		<-engine.started

		returnsWithin(t, 500*time.Millisecond, "State", func() {
			if s := c.State(); s.Status == Playing {
				t.Errorf("expected not playing while the engine starts, got %+v", s)
			}
		})
		returnsWithin(t, 500*time.Millisecond, "Stop", func() {
			if err := c.Stop(); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		close(engine.release)
		if err := <-played; err != nil {
			t.Fatalf("expected abandoned start to return nil, got %v", err)
		}
		if s := c.State(); s.Status == Playing {
			t.Errorf("expected stop to win over the pending start, got %+v", s)
		}
		if tickers.Created() != 0 {
			t.Errorf("expected no ticker for an abandoned start, got %d", tickers.Created())
		}
		if engine.Stops() != 1 {
			t.Errorf("expected the late engine start to be stopped, got %d stops", engine.Stops())
		}
	})

	t.Run("Close During Play", func(t *testing.T) {
		engine, tickers := newBlockingEngine(trackA.Music, true), &tu.FakeTickers{}
		c := NewController(ControllerOpts{
			Gate:      ReadyGate(engine),
			NewTicker: func(d time.Duration) Ticker { return tickers.New(d) },
		})

		played := make(chan error, 1)
		go func() { played <- c.Play(ctx, trackA) }()
		<-engine.started

		returnsWithin(t, 500*time.Millisecond, "Close", func() {
			if err := c.Close(); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		close(engine.release)
		<-played
		if len(tickers.Live()) != 0 || tickers.Created() != 0 {
			t.Error("expected no ticker after close")
		}
		if engine.Stops() != 1 {
			t.Errorf("expected engine to be stopped, got %d stops", engine.Stops())
		}
		if c.State().Status == Playing {
			t.Error("expected closed controller not to be playing")
		}
	})

	t.Run("Newer Play Cancels Pending Start", func(t *testing.T) {
		engine, tickers := newBlockingEngine(trackA.Music, false), &tu.FakeTickers{}
		c := NewController(ControllerOpts{
			Gate:      ReadyGate(engine),
			NewTicker: func(d time.Duration) Ticker { return tickers.New(d) },
		})
		defer c.Close()

		played := make(chan error, 1)
		go func() { played <- c.Play(ctx, trackA) }()
		<-engine.started

		if err := c.Play(ctx, trackB); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := <-played; err != nil {
			t.Errorf("expected superseded start to return nil, got %v", err)
		}

		s := c.State()
		if s.Status != Playing || s.Track.Name != "B" {
			t.Errorf("expected B playing, got %+v", s)
		}
		if len(tickers.Live()) != 1 {
			t.Errorf("expected one live ticker, got %d", len(tickers.Live()))
		}
		if engine.Stops() != 0 {
			t.Errorf("expected the canceled start not to stop B, got %d stops", engine.Stops())
		}
	})

	t.Run("Close", func(t *testing.T) {
		engine, tickers := &tu.FakeEngine{}, &tu.FakeTickers{}
		c := NewController(ControllerOpts{
			Gate:      ReadyGate(engine),
			NewTicker: func(d time.Duration) Ticker { return tickers.New(d) },
		})
		c.Play(ctx, trackA)

		if err := c.Close(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tickers.Live()) != 0 {
			t.Error("expected ticker to be cleared on close")
		}
		if engine.Stops() != 1 {
			t.Errorf("expected engine to be stopped, got %d", engine.Stops())
		}
		if err := c.Play(ctx, trackB); !errors.Is(err, shared.ErrPlaybackPrecondition) {
			t.Errorf("expected precondition error after close, got %v", err)
		}
	})
}

func TestGate(t *testing.T) {
	t.Run("Loads Once", func(t *testing.T) {
		g := NewGate()
		if g.Ready() {
			t.Fatal("expected new gate not to be ready")
		}

		var calls int
		var mu sync.Mutex
		loaded := make(chan error, 2)
		loader := func(ctx context.Context) (Engine, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return &tu.FakeEngine{}, nil
		}

		g.Load(context.Background(), loader, func(err error) { loaded <- err })
		g.Load(context.Background(), loader, func(err error) { loaded <- err })

		if err := <-loaded; err != nil {
			t.Fatalf("expected load to succeed, got %v", err)
		}
		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !g.Ready() {
			t.Error("expected gate to be ready")
		}
		mu.Lock()
		defer mu.Unlock()
		if calls != 1 {
			t.Errorf("expected loader to run once, got %d", calls)
		}
	})

	t.Run("Load Failure", func(t *testing.T) {
		g := NewGate()
		g.Load(context.Background(), func(ctx context.Context) (Engine, error) {
			return nil, errors.New("player missing")
		}, nil)

		err := g.Wait(context.Background())
		if !errors.Is(err, shared.ErrEngineNotLoaded) {
			t.Errorf("expected ErrEngineNotLoaded, got %v", err)
		}
		if g.Ready() {
			t.Error("expected gate not to be ready")
		}
	})

	t.Run("Wait Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := NewGate().Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestProcessEngine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	t.Run("Downloads And Launches", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "played.mid")
		assets := &tu.FakeAssets{Files: map[string]string{"datasets/audio/my song.mid": "MThd"}}
		engine := NewProcessEngine(sh, []string{"-c", `cp "$1" "$0"`, out}, assets, nil)

		if err := engine.Play(context.Background(), "datasets/audio/my song.mid"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		eventually(t, func() bool {
			b, err := os.ReadFile(out)
			return err == nil && string(b) == "MThd"
		})
		if err := engine.Stop(); err != nil {
			t.Errorf("expected stop to succeed, got %v", err)
		}
	})

	t.Run("Stop Kills Running Player", func(t *testing.T) {
		assets := &tu.FakeAssets{Files: map[string]string{"a.mid": "MThd"}}
		engine := NewProcessEngine(sh, []string{"-c", "sleep 30"}, assets, nil)

		if err := engine.Play(context.Background(), "a.mid"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := engine.Stop(); err != nil {
			t.Errorf("expected stop to succeed, got %v", err)
		}
		if err := engine.Stop(); err != nil {
			t.Errorf("expected second stop to be a no-op, got %v", err)
		}
	})

	t.Run("Canceled Context Launches Nothing", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "played.mid")
		assets := &tu.FakeAssets{Files: map[string]string{"a.mid": "MThd"}}
		engine := NewProcessEngine(sh, []string{"-c", `cp "$1" "$0"`, out}, assets, nil)

		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := engine.Play(cctx, "a.mid"); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		time.Sleep(50 * time.Millisecond)
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Error("expected the player not to be launched")
		}
	})

	t.Run("Missing Asset", func(t *testing.T) {
		engine := NewProcessEngine(sh, nil, &tu.FakeAssets{}, nil)
		if err := engine.Play(context.Background(), "missing.mid"); err == nil {
			t.Error("expected error for missing asset")
		}
	})

	t.Run("Loader", func(t *testing.T) {
		loader := ProcessLoader(shared.PlayerConfig{Command: "sh"}, &tu.FakeAssets{}, nil)
		if _, err := loader(context.Background()); err != nil {
			t.Errorf("expected sh to resolve, got %v", err)
		}

		loader = ProcessLoader(shared.PlayerConfig{Command: "definitely-not-a-player-binary"}, &tu.FakeAssets{}, nil)
		if _, err := loader(context.Background()); err == nil {
			t.Error("expected missing player to fail")
		}
	})
}
