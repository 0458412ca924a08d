package media

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSilence(t *testing.T) {
	pcm := Silence(0.5, 16000)
	assert.Len(t, pcm, 16000) // 8000 samples * 2 bytes

	for _, b := range pcm {
		require.Zero(t, b)
	}

	assert.Nil(t, Silence(0, 16000))
	assert.Nil(t, Silence(-1, 16000))
	assert.Nil(t, Silence(1, 0))
}

func TestCombineSegments(t *testing.T) {
	combined := CombineSegments([][]byte{{1, 2}, nil, {3}, {4, 5}})
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, combined)

	assert.Empty(t, CombineSegments(nil))
}

func TestWriteAndProbeWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	pcm := Silence(1.0, 16000)

	require.NoError(t, WriteWAV(path, pcm, 16000))

	artifact, err := ProbeWAV(path)
	require.NoError(t, err)
	assert.Equal(t, path, artifact.Path)
	assert.Equal(t, int64(wavHeaderSize+len(pcm)), artifact.Size)
	assert.InDelta(t, 1.0, artifact.Duration, 0.001)
	assert.Equal(t, "wav", artifact.Format)
}

func TestWriteWAVHeaderFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "header.wav")
	pcm := []byte{1, 2, 3, 4}

	require.NoError(t, WriteWAV(path, pcm, 16000))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, wavHeaderSize+len(pcm))

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]))     // mono
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(data[24:28])) // sample rate
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]))    // bit depth
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(data[40:44]))
}

func TestExtractPCMRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt.wav")
	pcm := []byte{10, 20, 30, 40, 50, 60}

	require.NoError(t, WriteWAV(path, pcm, 16000))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	extracted, rate, err := ExtractPCM(data, 8000)
	require.NoError(t, err)
	assert.Equal(t, pcm, extracted)
	assert.Equal(t, 16000, rate)
}

func TestExtractPCMRawPassthrough(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	extracted, rate, err := ExtractPCM(raw, 22050)
	require.NoError(t, err)
	assert.Equal(t, raw, extracted)
	assert.Equal(t, 22050, rate)
}

func TestExtractPCMSkipsExtraChunks(t *testing.T) {
	// Build a WAV with a LIST chunk wedged between fmt and data
	pcm := []byte{7, 8, 9, 10}
	listBody := []byte("INFOx")

	header := make([]byte, 0, 128)
	header = append(header, []byte("RIFF")...)
	header = binary.LittleEndian.AppendUint32(header, 0)
	header = append(header, []byte("WAVE")...)
	header = append(header, []byte("fmt ")...)
	header = binary.LittleEndian.AppendUint32(header, 16)
	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], 1)
	binary.LittleEndian.PutUint16(fmtChunk[2:], 1)
	binary.LittleEndian.PutUint32(fmtChunk[4:], 44100)
	header = append(header, fmtChunk...)
	header = append(header, []byte("LIST")...)
	header = binary.LittleEndian.AppendUint32(header, uint32(len(listBody)))
	header = append(header, listBody...)
	header = append(header, 0) // word alignment pad
	header = append(header, []byte("data")...)
	header = binary.LittleEndian.AppendUint32(header, uint32(len(pcm)))
	header = append(header, pcm...)

	extracted, rate, err := ExtractPCM(header, 8000)
	require.NoError(t, err)
	assert.Equal(t, pcm, extracted)
	assert.Equal(t, 44100, rate)
}

func TestProbeWAVRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	_, err := ProbeWAV(path)
	assert.Error(t, err)
}

func TestArtifactWebPath(t *testing.T) {
	artifact := &Artifact{Path: "/var/data/audio/dialogue_abc123.wav"}
	assert.Equal(t, "/storage/audio/dialogue_abc123.wav", artifact.WebPath("/storage/audio"))
}
