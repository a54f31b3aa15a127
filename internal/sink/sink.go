package sink

// Sink is an audio output destination for converted playback frames
type Sink interface {
	// Write delivers one frame of 16-bit LE mono PCM at the given rate.
	Write(pcm []byte, sampleRate int) error

	// Close releases the destination. Write must not be called after Close.
	Close() error
}

// Tee fans a frame out to every destination. Write returns the first error
// but still attempts the remaining destinations.
type Tee struct {
	sinks []Sink
}

// NewTee creates a sink that duplicates frames across all destinations
func NewTee(sinks ...Sink) *Tee {
	return &Tee{sinks: sinks}
}

// Write delivers the frame to every destination
func (t *Tee) Write(pcm []byte, sampleRate int) error {
	var firstErr error
	for _, s := range t.sinks {
		if err := s.Write(pcm, sampleRate); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every destination, returning the first error
func (t *Tee) Close() error {
	var firstErr error
	for _, s := range t.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
