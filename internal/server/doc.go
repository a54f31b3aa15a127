// Package server implements the ingest surfaces of the playback service:
// the UDP packet receiver, the WebSocket control channel, the HTTP API, and
// the dispatcher that routes parsed packets into the playback pipeline.
package server
