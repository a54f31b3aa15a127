// Package sink provides output destinations for played audio frames: a UDP
// sender for the downstream consumer, a WAV file recorder, and a tee that
// fans frames out to several destinations.
package sink
