package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meetbotics/realtime-playback/internal/config"
	"github.com/meetbotics/realtime-playback/internal/metrics"
)

// UDPServer receives wire packets from the bot controller
type UDPServer struct {
	conn       *net.UDPConn
	config     *config.ServerConfig
	logger     *slog.Logger
	dispatcher *Dispatcher
	metrics    *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Packet processing. A single processor goroutine preserves arrival
	// order; audio frames must reach the playback queue in sequence.
	packetChan chan []byte

	// Closed when receiveLoop exits; Stop must not close packetChan while
	// the receiver may still send on it.
	receiverDone chan struct{}

	packetsReceived atomic.Uint64
	packetsDropped  atomic.Uint64
}

// NewUDPServer creates a new UDP server instance. Metrics may be nil.
func NewUDPServer(cfg *config.ServerConfig, logger *slog.Logger,
	dispatcher *Dispatcher, m *metrics.Metrics) *UDPServer {

	ctx, cancel := context.WithCancel(context.Background())

	return &UDPServer{
		config:     cfg,
		logger:     logger,
		dispatcher: dispatcher,
		metrics:    m,
		ctx:          ctx,
		cancel:       cancel,
		packetChan:   make(chan []byte, 1000),
		receiverDone: make(chan struct{}),
	}
}

// Start begins listening for UDP packets
func (s *UDPServer) Start() error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.config.BindAddress, s.config.UDPPort))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	s.conn = conn

	if err := s.conn.SetReadBuffer(s.config.BufferSize); err != nil {
		s.logger.Warn("Failed to set UDP read buffer size",
			slog.Int("buffer_size", s.config.BufferSize),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("UDP server started",
		slog.String("address", addr.String()),
		slog.Int("buffer_size", s.config.BufferSize),
	)

	s.wg.Add(1)
	go s.packetProcessor()

	s.wg.Add(1)
	go s.receiveLoop()

	return nil
}

// Stop gracefully stops the UDP server
func (s *UDPServer) Stop() error {
	s.logger.Info("Stopping UDP server...")

	s.cancel()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("Error closing UDP connection", slog.String("error", err.Error()))
		}

		// The receiver must be gone before packetChan closes, or a datagram
		// read just before conn.Close would be sent on a closed channel.
		<-s.receiverDone
	}

	close(s.packetChan)
	s.wg.Wait()

	s.logger.Info("UDP server stopped",
		slog.Uint64("packets_received", s.packetsReceived.Load()),
		slog.Uint64("packets_dropped", s.packetsDropped.Load()),
	)

	return nil
}

// receiveLoop is the main packet receiving loop
func (s *UDPServer) receiveLoop() {
	defer s.wg.Done()
	defer close(s.receiverDone)

	buffer := make([]byte, s.config.BufferSize)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Receive loop stopping due to context cancellation")
			return
		default:
		}

		// Read deadline lets the loop notice cancellation periodically.
		if err := s.conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			s.logger.Error("Failed to set read deadline", slog.String("error", err.Error()))
			continue
		}

		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}

			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Error("Failed to read UDP packet", slog.String("error", err.Error()))
				continue
			}
		}

		s.packetsReceived.Add(1)
		if s.metrics != nil {
			s.metrics.RecordPacketReceived()
		}

		// Buffer is reused, copy out the packet.
		packetData := make([]byte, n)
		copy(packetData, buffer[:n])

		select {
		case s.packetChan <- packetData:
			if s.metrics != nil {
				s.metrics.SetQueueSize(len(s.packetChan))
			}
		default:
			s.packetsDropped.Add(1)
			s.logger.Warn("Packet processing queue full, dropping packet",
				slog.String("remote_addr", remoteAddr.String()),
				slog.Int("packet_size", n),
			)
		}
	}
}

// packetProcessor drains the packet channel in arrival order
func (s *UDPServer) packetProcessor() {
	defer s.wg.Done()

	s.logger.Debug("Packet processor started")

	for data := range s.packetChan {
		s.dispatcher.HandleRaw(data)
		if s.metrics != nil {
			s.metrics.SetQueueSize(len(s.packetChan))
		}
	}

	s.logger.Debug("Packet processor stopped")
}

// GetStatistics returns current server statistics
func (s *UDPServer) GetStatistics() ServerStatistics {
	return ServerStatistics{
		PacketsReceived: s.packetsReceived.Load(),
		PacketsDropped:  s.packetsDropped.Load(),
		QueueSize:       uint64(len(s.packetChan)),
		QueueCapacity:   uint64(cap(s.packetChan)),
	}
}

// ServerStatistics represents server performance metrics
type ServerStatistics struct {
	PacketsReceived uint64 `json:"packets_received"`
	PacketsDropped  uint64 `json:"packets_dropped"`
	QueueSize       uint64 `json:"queue_size"`
	QueueCapacity   uint64 `json:"queue_capacity"`
}
