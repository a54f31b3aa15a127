// Package protocol implements the binary packet format used on the UDP and
// WebSocket ingest paths. It covers header parsing, audio and control
// payload extraction, and the symmetric encoders used by the outbound sink.
package protocol
