// Package playback drives the audio transport for catalog tracks.
//
// The [Controller] owns the transport state (idle, playing, stopped), a single
// progress ticker and track-to-track navigation over the full catalog order.
// Progress is simulated from an estimated duration, not read from the audio.
//
// The rendering [Engine] is an external player process loaded once through a
// [Gate]. Until the gate is ready every transport call fails with
// [shared.ErrEngineNotLoaded] instead of panicking.
package playback
