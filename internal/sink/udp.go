package sink

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/meetbotics/realtime-playback/internal/protocol"
)

// UDPSink sends played frames to a downstream consumer as audio packets
// over UDP
type UDPSink struct {
	logger *slog.Logger
	conn   *net.UDPConn

	mu     sync.Mutex
	closed bool

	framesSent atomic.Uint64
	bytesSent  atomic.Uint64
	sendErrors atomic.Uint64
}

// UDPSinkStats represents UDP sink statistics
type UDPSinkStats struct {
	Target     string `json:"target"`
	FramesSent uint64 `json:"frames_sent"`
	BytesSent  uint64 `json:"bytes_sent"`
	SendErrors uint64 `json:"send_errors"`
}

// NewUDPSink dials the target address and returns a ready sink
func NewUDPSink(logger *slog.Logger, target string) (*UDPSink, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target address %s: %w", target, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial target %s: %w", target, err)
	}

	logger.Info("UDP sink connected",
		slog.String("target", addr.String()),
	)

	return &UDPSink{
		logger: logger,
		conn:   conn,
	}, nil
}

// Write wraps the frame in an audio packet and sends it to the target
func (s *UDPSink) Write(pcm []byte, sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("udp sink is closed")
	}

	packet, err := protocol.EncodeAudioPacket(protocol.PacketTypeAudio, sampleRate, pcm)
	if err != nil {
		return fmt.Errorf("failed to encode audio packet: %w", err)
	}

	n, err := s.conn.Write(packet)
	if err != nil {
		s.sendErrors.Add(1)
		return fmt.Errorf("failed to send audio packet: %w", err)
	}

	s.framesSent.Add(1)
	s.bytesSent.Add(uint64(n))

	return nil
}

// Close closes the underlying connection
func (s *UDPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.logger.Info("UDP sink closed",
		slog.Uint64("frames_sent", s.framesSent.Load()),
		slog.Uint64("bytes_sent", s.bytesSent.Load()),
		slog.Uint64("send_errors", s.sendErrors.Load()),
	)

	return s.conn.Close()
}

// GetStats returns current sink statistics
func (s *UDPSink) GetStats() UDPSinkStats {
	return UDPSinkStats{
		Target:     s.conn.RemoteAddr().String(),
		FramesSent: s.framesSent.Load(),
		BytesSent:  s.bytesSent.Load(),
		SendErrors: s.sendErrors.Load(),
	}
}
