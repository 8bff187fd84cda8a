package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/shared"
)

const (
	DefaultEstimatedDuration = 120 * time.Second
	DefaultTickInterval      = time.Second
)

// Status of the transport.
type Status int

const (
	Idle Status = iota
	Playing
	Stopped
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Stopped:
		return "stopped"
	default:
		return ""
	}
}

// State is a copy of the transport state.
//
// Progress resets to 0 on every Play and is left where it was on Stop.
type State struct {
	Status   Status
	Track    *models.CatalogEntry
	Progress float64 // 0-100
}

// Active reports whether track is the current track and is playing.
func (s State) Active(track models.CatalogEntry) bool {
	return s.Status == Playing && s.Track != nil && s.Track.SameTrack(track)
}

// ControllerOpts configures a [Controller].
type ControllerOpts struct {
	Gate              *Gate
	Entries           func() []models.CatalogEntry // full catalog order used by Next and Previous
	EstimatedDuration time.Duration                // defaults to [DefaultEstimatedDuration]
	TickInterval      time.Duration                // defaults to [DefaultTickInterval]
	NewTicker         TickerFactory                // defaults to [NewTicker]
	OnChange          func(State)                  // called outside the lock after every transition
	Logger            *log.Logger
}

// Controller owns one view's transport state and its progress ticker.
type Controller struct {
	gate      *Gate
	entries   func() []models.CatalogEntry
	steps     int
	interval  time.Duration
	newTicker TickerFactory
	onChange  func(State)
	logger    *log.Logger

	mu       sync.Mutex
	state    State
	engine   Engine
	ticks    int
	gen      uint64
	ticker   Ticker
	stopTick chan struct{}
	closed   bool

	plays      uint64
	cancelPlay context.CancelFunc // set while an engine start is in flight
}

// NewController creates an idle controller.
func NewController(opts ControllerOpts) *Controller {
	if opts.EstimatedDuration <= 0 {
		opts.EstimatedDuration = DefaultEstimatedDuration
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTicker
	}
	if opts.Gate == nil {
		opts.Gate = NewGate()
	}
	if opts.Entries == nil {
		opts.Entries = func() []models.CatalogEntry { return nil }
	}

	steps := int(opts.EstimatedDuration / opts.TickInterval)
	if steps < 1 {
		steps = 1
	}

	return &Controller{
		gate:      opts.Gate,
		entries:   opts.Entries,
		steps:     steps,
		interval:  opts.TickInterval,
		newTicker: opts.NewTicker,
		onChange:  opts.OnChange,
		logger:    opts.Logger,
	}
}

// State returns a copy of the current transport state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyState()
}

func (c *Controller) copyState() State {
	s := c.state
	if s.Track != nil {
		t := *s.Track
		s.Track = &t
	}
	return s
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

// Play stops any active track, starts track and restarts progress from 0.
//
// The engine is started without holding the controller lock, so State, Stop
// and Close stay responsive while the engine fetches the asset. A later Play,
// Stop or Close cancels a start that is still in flight and its outcome is
// discarded.
func (c *Controller) Play(ctx context.Context, track models.CatalogEntry) error {
	engine, err := c.gate.Engine()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: controller closed", shared.ErrPlaybackPrecondition)
	}

	if c.state.Status == Playing {
		c.haltLocked()
	}
	c.cancelPendingLocked()
	c.engine = engine
	c.state = State{Status: Stopped, Track: &track}

	c.plays++
	play := c.plays
	playCtx, cancel := context.WithCancel(ctx)
	c.cancelPlay = cancel
	c.mu.Unlock()

	err = engine.Play(playCtx, track.Music)
	cancel()

	c.mu.Lock()
	if play != c.plays || c.closed {
		// Stop or Close won while the engine was starting.
		if err == nil && c.cancelPlay == nil && c.state.Status != Playing {
			if stopErr := engine.Stop(); stopErr != nil && c.logger != nil {
				c.logger.Warn("failed to stop engine", "error", stopErr)
			}
		}
		c.mu.Unlock()

		if c.logger != nil {
			c.logger.Debug("playback start superseded", "track", track.Title())
		}
		return nil
	}
	c.cancelPlay = nil

	if err != nil {
		s := c.copyState()
		c.mu.Unlock()

		if c.logger != nil {
			c.logger.Error("playback failed", "track", track.Title(), "error", err)
		}
		c.notify(s)
		return fmt.Errorf("failed to play %s: %w", track.Title(), err)
	}

	c.state = State{Status: Playing, Track: &track}
	c.ticks = 0
	c.startTickerLocked()
	s := c.copyState()
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Debug("playing", "track", track.Title(), "ref", track.Music)
	}
	c.notify(s)
	return nil
}

// cancelPendingLocked abandons an engine start that is still in flight.
func (c *Controller) cancelPendingLocked() {
	if c.cancelPlay == nil {
		return
	}
	c.cancelPlay()
	c.cancelPlay = nil
	c.plays++
}

// Toggle stops track if it is the one playing; otherwise it plays track.
func (c *Controller) Toggle(ctx context.Context, track models.CatalogEntry) error {
	if c.State().Active(track) {
		return c.Stop()
	}
	return c.Play(ctx, track)
}

// Next plays the entry after the active track, wrapping to the first.
func (c *Controller) Next(ctx context.Context) error {
	return c.step(ctx, 1)
}

// Previous plays the entry before the active track, wrapping to the last.
func (c *Controller) Previous(ctx context.Context) error {
	return c.step(ctx, -1)
}

// step leaves the state untouched and returns [shared.ErrNoActiveTrack] when no track is active.
func (c *Controller) step(ctx context.Context, delta int) error {
	if _, err := c.gate.Engine(); err != nil {
		return err
	}

	current := c.State().Track
	if current == nil {
		return shared.ErrNoActiveTrack
	}

	entries := c.entries()
	n := len(entries)
	if n == 0 {
		return shared.ErrNoActiveTrack
	}

	idx := -1
	for i := range entries {
		if entries[i].SameTrack(*current) {
			idx = i
			break
		}
	}

	var target int
	switch {
	case idx >= 0:
		target = ((idx+delta)%n + n) % n
	case delta > 0:
		target = 0
	default:
		target = n - 1
	}
	return c.Play(ctx, entries[target])
}

// Stop halts playback and the ticker and abandons a pending start. Progress
// is kept. It is a no-op unless playing or starting.
func (c *Controller) Stop() error {
	c.mu.Lock()
	c.cancelPendingLocked()
	if c.state.Status != Playing {
		c.mu.Unlock()
		return nil
	}
	err := c.haltLocked()
	s := c.copyState()
	c.mu.Unlock()

	c.notify(s)
	return err
}

// Close stops playback and clears the ticker. Further Play calls fail.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancelPendingLocked()

	var err error
	if c.state.Status == Playing {
		err = c.haltLocked()
	}
	c.stopTickerLocked()
	c.mu.Unlock()
	return err
}

// tick applies one progress tick to the current ticker generation.
func (c *Controller) tick() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.advance(gen)
}

// advance ignores ticks from superseded tickers.
func (c *Controller) advance(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state.Status != Playing {
		c.mu.Unlock()
		return
	}

	c.ticks++
	if c.ticks >= c.steps {
		c.state.Progress = 100
		c.haltLocked()
		if c.logger != nil && c.state.Track != nil {
			c.logger.Debug("track finished", "track", c.state.Track.Title())
		}
	} else {
		c.state.Progress = float64(c.ticks) * 100 / float64(c.steps)
	}
	s := c.copyState()
	c.mu.Unlock()

	c.notify(s)
}

// haltLocked stops the engine and the ticker and marks the transport Stopped.
func (c *Controller) haltLocked() error {
	c.stopTickerLocked()
	c.state.Status = Stopped

	if c.engine == nil {
		return nil
	}
	if err := c.engine.Stop(); err != nil {
		if c.logger != nil {
			c.logger.Warn("failed to stop engine", "error", err)
		}
		return err
	}
	return nil
}

// startTickerLocked replaces any running ticker with a new one.
func (c *Controller) startTickerLocked() {
	c.stopTickerLocked()

	c.gen++
	gen := c.gen
	t := c.newTicker(c.interval)
	stop := make(chan struct{})
	c.ticker, c.stopTick = t, stop

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-t.C():
				c.advance(gen)
			}
		}
	}()
}

func (c *Controller) stopTickerLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.stopTick)
	c.ticker, c.stopTick = nil, nil
	c.gen++
}
