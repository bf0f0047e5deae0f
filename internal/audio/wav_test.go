package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// writeTestWAV writes secs seconds of 16-bit mono audio at 8kHz where
// every sample holds its frame's second index, so extracted windows can
// be verified against the original timeline.
func writeTestWAV(t *testing.T, secs int) string {
	t.Helper()

	const rate = 8000
	path := filepath.Join(t.TempDir(), "test.wav")

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: rate},
		SourceBitDepth: 16,
		Data:           make([]int, secs*rate),
	}
	for i := range buf.Data {
		buf.Data[i] = i / rate
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func TestLoadDuration(t *testing.T) {
	path := writeTestWAV(t, 12)

	src, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 12*time.Second, src.Duration())
	require.Equal(t, 8000, src.SampleRate())
	require.Equal(t, 1, src.Channels())
	require.Equal(t, path, src.Path())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.wav"))
	var lerr *LoadError
	require.True(t, errors.As(err, &lerr))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not audio"), 0o600))

	_, err := Load(path)
	var lerr *LoadError
	require.True(t, errors.As(err, &lerr))
	require.Equal(t, path, lerr.Path)
}

func TestWindowExtraction(t *testing.T) {
	src, err := Load(writeTestWAV(t, 12))
	require.NoError(t, err)

	data, err := src.Window(3*time.Second, 7*time.Second)
	require.NoError(t, err)

	// The result must itself decode as a WAV of the window's span.
	dec := wav.NewDecoder(bytes.NewReader(data))
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	require.Len(t, buf.Data, 4*8000)

	// First and last samples carry the second they were cut from.
	require.Equal(t, 3, buf.Data[0])
	require.Equal(t, 6, buf.Data[len(buf.Data)-1])
}

func TestWindowEndClamped(t *testing.T) {
	src, err := Load(writeTestWAV(t, 5))
	require.NoError(t, err)

	data, err := src.Window(4*time.Second, 10*time.Second)
	require.NoError(t, err)

	dataLen := binary.LittleEndian.Uint32(data[40:])
	require.Equal(t, uint32(1*8000*2), dataLen)
}

func TestWindowInvalidSpans(t *testing.T) {
	src, err := Load(writeTestWAV(t, 5))
	require.NoError(t, err)

	_, err = src.Window(5*time.Second, 6*time.Second)
	require.Error(t, err)

	_, err = src.Window(-time.Second, time.Second)
	require.Error(t, err)

	_, err = src.Window(3*time.Second, 3*time.Second)
	require.Error(t, err)
}
