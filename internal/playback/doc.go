// Package playback implements the realtime audio playback pipeline: a
// thread-safe frame FIFO, a single lazily-spawned worker that paces output
// at the fixed frame cadence, and a deadline-based pause gate consulted
// before every frame and during pacing sleeps.
package playback
