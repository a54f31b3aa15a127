package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wavHeader is the canonical 44-byte PCM WAV header
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// EncodeWAV wraps raw PCM-16 mono bytes in a WAV container. Used by the
// file recorder sink; nothing on the realtime path touches WAV.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio data")
	}

	if len(pcm)%BytesPerSample != 0 {
		return nil, fmt.Errorf("audio data length must be even (got %d bytes)", len(pcm))
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	bitsPerSample := uint16(BytesPerSample * 8)
	dataSize := uint32(len(pcm))

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   Channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * Channels * uint32(bitsPerSample) / 8,
		BlockAlign:    Channels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// DecodeWAV extracts the raw PCM-16 mono bytes and sample rate from a WAV
// container produced by EncodeWAV
func DecodeWAV(data []byte) ([]byte, int, error) {
	if len(data) < 44 {
		return nil, 0, fmt.Errorf("WAV data too short: need at least 44 bytes, got %d", len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("invalid WAV file: missing RIFF/WAVE markers")
	}

	if string(header.Subchunk1ID[:]) != "fmt " || string(header.Subchunk2ID[:]) != "data" {
		return nil, 0, fmt.Errorf("invalid WAV file: missing fmt/data chunks")
	}

	if header.AudioFormat != 1 {
		return nil, 0, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	}

	if header.BitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", header.BitsPerSample)
	}

	if header.NumChannels != Channels {
		return nil, 0, fmt.Errorf("unsupported channel count: %d (only mono is supported)", header.NumChannels)
	}

	if int(header.Subchunk2Size) > len(data)-44 {
		return nil, 0, fmt.Errorf("WAV data truncated: header says %d bytes, got %d",
			header.Subchunk2Size, len(data)-44)
	}

	pcm := make([]byte, header.Subchunk2Size)
	copy(pcm, data[44:44+header.Subchunk2Size])

	return pcm, int(header.SampleRate), nil
}
