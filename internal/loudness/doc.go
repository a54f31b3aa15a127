// Package loudness implements the auto-pause heuristic over inbound mixed
// meeting audio. When other participants exceed an amplitude threshold the
// monitor suspends playback through the pause gate for a fixed window.
package loudness
