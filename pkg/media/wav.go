package media

import (
	"encoding/binary"
	"fmt"
	"os"
)

const wavHeaderSize = 44

// Silence produces 16-bit PCM silence of the given duration in seconds.
func Silence(seconds float64, sampleRate int) []byte {
	if seconds <= 0 || sampleRate <= 0 {
		return nil
	}
	samples := int(seconds * float64(sampleRate))
	return make([]byte, samples*2)
}

// CombineSegments concatenates PCM segments in order into one buffer.
func CombineSegments(segments [][]byte) []byte {
	total := 0
	for _, seg := range segments {
		total += len(seg)
	}

	combined := make([]byte, 0, total)
	for _, seg := range segments {
		combined = append(combined, seg...)
	}
	return combined
}

// WriteWAV writes mono 16-bit PCM samples into a WAV container at path.
func WriteWAV(path string, pcm []byte, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = 8000
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	defer file.Close()

	header := make([]byte, wavHeaderSize)

	// ChunkID "RIFF"
	copy(header[0:], []byte("RIFF"))
	// ChunkSize
	binary.LittleEndian.PutUint32(header[4:], uint32(36+len(pcm)))
	// Format "WAVE"
	copy(header[8:], []byte("WAVE"))
	// Subchunk1ID "fmt "
	copy(header[12:], []byte("fmt "))
	// Subchunk1Size (16 for PCM)
	binary.LittleEndian.PutUint32(header[16:], 16)
	// AudioFormat (1 = PCM)
	binary.LittleEndian.PutUint16(header[20:], 1)
	// NumChannels (mono)
	binary.LittleEndian.PutUint16(header[22:], 1)
	// SampleRate
	binary.LittleEndian.PutUint32(header[24:], uint32(sampleRate))
	// ByteRate = SampleRate * NumChannels * BitsPerSample/8
	binary.LittleEndian.PutUint32(header[28:], uint32(sampleRate*2))
	// BlockAlign = NumChannels * BitsPerSample/8
	binary.LittleEndian.PutUint16(header[32:], 2)
	// BitsPerSample
	binary.LittleEndian.PutUint16(header[34:], 16)
	// Subchunk2ID "data"
	copy(header[36:], []byte("data"))
	// Subchunk2Size
	binary.LittleEndian.PutUint32(header[40:], uint32(len(pcm)))

	if _, err := file.Write(header); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	if _, err := file.Write(pcm); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	return nil
}

// ExtractPCM strips the container from WAV bytes and returns the raw
// sample data together with the sample rate. Input that does not carry
// a RIFF header is assumed to already be raw PCM at fallbackRate.
func ExtractPCM(data []byte, fallbackRate int) ([]byte, int, error) {
	if len(data) < wavHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return data, fallbackRate, nil
	}

	sampleRate := int(binary.LittleEndian.Uint32(data[24:28]))

	// Walk chunks to find "data"; some encoders insert extra chunks
	// between "fmt " and "data".
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		if chunkID == "data" {
			start := offset + 8
			end := start + chunkSize
			if end > len(data) {
				end = len(data)
			}
			return data[start:end], sampleRate, nil
		}
		offset += 8 + chunkSize
		// Chunks are word-aligned
		if chunkSize%2 == 1 {
			offset++
		}
	}

	return nil, 0, fmt.Errorf("no data chunk found in WAV container")
}

// ProbeWAV inspects a WAV file and returns an Artifact describing it.
func ProbeWAV(path string) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat audio file: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := file.Read(header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%s is not a WAV file", path)
	}

	channels := int(binary.LittleEndian.Uint16(header[22:24]))
	sampleRate := int(binary.LittleEndian.Uint32(header[24:28]))
	bitsPerSample := int(binary.LittleEndian.Uint16(header[34:36]))
	if channels <= 0 || sampleRate <= 0 || bitsPerSample <= 0 {
		return nil, fmt.Errorf("invalid WAV format in %s", path)
	}

	dataBytes := info.Size() - wavHeaderSize
	if dataBytes < 0 {
		dataBytes = 0
	}

	bytesPerSecond := float64(sampleRate * channels * bitsPerSample / 8)
	duration := 0.0
	if bytesPerSecond > 0 {
		duration = float64(dataBytes) / bytesPerSecond
	}

	return &Artifact{
		Path:     path,
		Duration: duration,
		Size:     info.Size(),
		Format:   "wav",
	}, nil
}
