package playback

import "time"

// Ticker delivers progress ticks. Stop must release its resources.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a running [Ticker] with interval d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

// NewTicker wraps a [time.Ticker].
func NewTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }
