package protocol

import (
	"encoding/binary"
	"fmt"
)

// Wire format constants
const (
	// Packet types
	PacketTypeAudio   = 0x01 // PCM audio to inject into the call
	PacketTypeControl = 0x02 // control command
	PacketTypeMonitor = 0x03 // mixed meeting audio for the loudness monitor

	// Control commands
	CommandPause = 0x01

	// Packet structure sizes
	HeaderSize         = 4 // 1 + 2 + 1 bytes
	AudioHeaderSize    = 4 // sample rate (4 bytes)
	ControlPayloadSize = 5 // command (1 byte) + duration ms (4 bytes)

	// MaxPacketLen bounds a single packet; audio larger than this must be
	// split across packets before sending.
	MaxPacketLen = 65535
)

// Header represents the 4-byte packet header
// Layout: [PacketType:1][PacketLen:2][Flags:1]
type Header struct {
	PacketType uint8  // 0x01=Audio, 0x02=Control, 0x03=Monitor
	PacketLen  uint16 // Total packet size (header + payload)
	Flags      uint8  // Reserved, must be zero
}

// AudioPayload represents audio and monitor packet payloads
// Layout: [SampleRate:4][PCM:N]
type AudioPayload struct {
	SampleRate uint32 // Source sample rate in Hz
	PCM        []byte // 16-bit LE mono PCM (variable length)
}

// ControlPayload represents the control packet payload
// Layout: [Command:1][DurationMs:4]
type ControlPayload struct {
	Command    uint8  // 0x01=Pause
	DurationMs uint32 // Pause duration in milliseconds
}

// Packet represents a fully parsed packet
type Packet struct {
	Header  *Header
	Audio   *AudioPayload   // Set for audio and monitor packets
	Control *ControlPayload // Set for control packets
}

// ParseHeader parses the 4-byte packet header
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("header too short: expected %d bytes, got %d", HeaderSize, len(data))
	}

	return &Header{
		PacketType: data[0],
		PacketLen:  binary.BigEndian.Uint16(data[1:3]),
		Flags:      data[3],
	}, nil
}

// ParseAudioPayload parses an audio or monitor packet payload
func ParseAudioPayload(data []byte) (*AudioPayload, error) {
	if len(data) < AudioHeaderSize {
		return nil, fmt.Errorf("audio payload too short: expected at least %d bytes, got %d",
			AudioHeaderSize, len(data))
	}

	payload := &AudioPayload{
		SampleRate: binary.BigEndian.Uint32(data[0:4]),
	}

	if len(data) > AudioHeaderSize {
		payload.PCM = make([]byte, len(data)-AudioHeaderSize)
		copy(payload.PCM, data[AudioHeaderSize:])
	}

	return payload, nil
}

// ParseControlPayload parses the 5-byte control packet payload
func ParseControlPayload(data []byte) (*ControlPayload, error) {
	if len(data) < ControlPayloadSize {
		return nil, fmt.Errorf("control payload too short: expected %d bytes, got %d",
			ControlPayloadSize, len(data))
	}

	return &ControlPayload{
		Command:    data[0],
		DurationMs: binary.BigEndian.Uint32(data[1:5]),
	}, nil
}

// ParsePacket parses a complete packet (header + payload)
func ParsePacket(data []byte) (*Packet, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if int(header.PacketLen) != len(data) {
		return nil, fmt.Errorf("packet length mismatch: header says %d bytes, got %d bytes",
			header.PacketLen, len(data))
	}

	if err := ValidateHeader(header); err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	packet := &Packet{Header: header}
	payloadData := data[HeaderSize:]

	switch header.PacketType {
	case PacketTypeAudio, PacketTypeMonitor:
		payload, err := ParseAudioPayload(payloadData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse audio payload: %w", err)
		}
		packet.Audio = payload

	case PacketTypeControl:
		payload, err := ParseControlPayload(payloadData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse control payload: %w", err)
		}
		packet.Control = payload

	default:
		return nil, fmt.Errorf("unknown packet type: 0x%02x", header.PacketType)
	}

	return packet, nil
}

// ValidateHeader validates the packet header fields
func ValidateHeader(header *Header) error {
	if !IsValidPacketType(header.PacketType) {
		return fmt.Errorf("invalid packet type: 0x%02x", header.PacketType)
	}

	if header.Flags != 0 {
		return fmt.Errorf("reserved flags must be zero, got 0x%02x", header.Flags)
	}

	if header.PacketLen < HeaderSize {
		return fmt.Errorf("packet length too small: %d (minimum %d)", header.PacketLen, HeaderSize)
	}

	payloadSize := int(header.PacketLen) - HeaderSize
	switch header.PacketType {
	case PacketTypeAudio, PacketTypeMonitor:
		if payloadSize < AudioHeaderSize {
			return fmt.Errorf("audio packet payload too small: expected at least %d, got %d",
				AudioHeaderSize, payloadSize)
		}
	case PacketTypeControl:
		if payloadSize != ControlPayloadSize {
			return fmt.Errorf("control packet payload size mismatch: expected %d, got %d",
				ControlPayloadSize, payloadSize)
		}
	}

	return nil
}

// IsValidPacketType checks if the packet type is valid
func IsValidPacketType(ptype uint8) bool {
	return ptype == PacketTypeAudio || ptype == PacketTypeControl || ptype == PacketTypeMonitor
}

// EncodeAudioPacket builds an audio or monitor packet around raw PCM
func EncodeAudioPacket(ptype uint8, sampleRate int, pcm []byte) ([]byte, error) {
	if ptype != PacketTypeAudio && ptype != PacketTypeMonitor {
		return nil, fmt.Errorf("invalid audio packet type: 0x%02x", ptype)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	total := HeaderSize + AudioHeaderSize + len(pcm)
	if total > MaxPacketLen {
		return nil, fmt.Errorf("packet too large: %d bytes (maximum %d)", total, MaxPacketLen)
	}

	buf := make([]byte, total)
	buf[0] = ptype
	binary.BigEndian.PutUint16(buf[1:3], uint16(total))
	buf[3] = 0
	binary.BigEndian.PutUint32(buf[HeaderSize:HeaderSize+4], uint32(sampleRate))
	copy(buf[HeaderSize+AudioHeaderSize:], pcm)

	return buf, nil
}

// EncodeControlPacket builds a control packet
func EncodeControlPacket(command uint8, durationMs uint32) []byte {
	buf := make([]byte, HeaderSize+ControlPayloadSize)
	buf[0] = PacketTypeControl
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(buf)))
	buf[3] = 0
	buf[HeaderSize] = command
	binary.BigEndian.PutUint32(buf[HeaderSize+1:], durationMs)

	return buf
}

// String returns a human-readable representation of the header
func (h *Header) String() string {
	var packetType string
	switch h.PacketType {
	case PacketTypeAudio:
		packetType = "Audio"
	case PacketTypeControl:
		packetType = "Control"
	case PacketTypeMonitor:
		packetType = "Monitor"
	default:
		packetType = fmt.Sprintf("Unknown(0x%02x)", h.PacketType)
	}

	return fmt.Sprintf("Header{Type:%s, Len:%d}", packetType, h.PacketLen)
}

// String returns a human-readable representation of the audio payload
func (a *AudioPayload) String() string {
	return fmt.Sprintf("AudioPayload{SampleRate:%d, PCMLen:%d}", a.SampleRate, len(a.PCM))
}

// String returns a human-readable representation of the control payload
func (c *ControlPayload) String() string {
	return fmt.Sprintf("ControlPayload{Command:0x%02x, DurationMs:%d}", c.Command, c.DurationMs)
}
