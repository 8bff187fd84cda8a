package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/simsa/internal/shared"
)

// Engine renders audio for a catalog reference.
type Engine interface {
	Play(ctx context.Context, ref string) error
	Stop() error
}

// Loader prepares an [Engine]. It runs at most once per [Gate].
type Loader func(ctx context.Context) (Engine, error)

// Gate loads the engine asynchronously once and reports when it is usable.
type Gate struct {
	once sync.Once
	done chan struct{}

	mu     sync.RWMutex
	engine Engine
	err    error
}

// NewGate returns a gate that is not ready until [Gate.Load] completes.
func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// ReadyGate returns a gate that already holds engine.
func ReadyGate(engine Engine) *Gate {
	g := NewGate()
	g.once.Do(func() {
		g.engine = engine
		close(g.done)
	})
	return g
}

// Load starts loader in the background. onLoad, if set, is called with the
// load error (nil on success) once it finishes. Later calls are no-ops.
func (g *Gate) Load(ctx context.Context, loader Loader, onLoad func(error)) {
	g.once.Do(func() {
		go func() {
			engine, err := loader(ctx)

			g.mu.Lock()
			g.engine, g.err = engine, err
			g.mu.Unlock()
			close(g.done)

			if onLoad != nil {
				onLoad(err)
			}
		}()
	})
}

// Ready reports whether the engine loaded successfully.
func (g *Gate) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.engine != nil && g.err == nil
}

// Engine returns the loaded engine or a precondition error.
func (g *Gate) Engine() (Engine, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrEngineNotLoaded, g.err)
	}
	if g.engine == nil {
		return nil, shared.ErrEngineNotLoaded
	}
	return g.engine, nil
}

// Wait blocks until loading finishes or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		_, err := g.Engine()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
