// Package audio loads a WAV recording and exposes it as a duration plus
// per-window byte extraction. Each extracted window is a standalone WAV
// file image holding exactly that span's samples, so a window owns only
// its own byte range and per-window memory stays constant.
package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// LoadError indicates unreadable or corrupt input audio.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load audio %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Source is a fully decoded recording.
type Source struct {
	path     string
	format   *gaudio.Format
	bitDepth int
	samples  []int // interleaved PCM at source bit depth
	duration time.Duration
}

// Load decodes the WAV file at path into memory.
func Load(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("not a valid WAV file")}
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("decode PCM: %w", err)}
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("missing format information")}
	}

	frames := len(buf.Data) / buf.Format.NumChannels
	if frames == 0 {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("no audio frames")}
	}

	return &Source{
		path:     path,
		format:   buf.Format,
		bitDepth: buf.SourceBitDepth,
		samples:  buf.Data,
		duration: time.Duration(frames) * time.Second / time.Duration(buf.Format.SampleRate),
	}, nil
}

// Path returns the file the source was loaded from.
func (s *Source) Path() string {
	return s.path
}

// Duration returns the recording's total length.
func (s *Source) Duration() time.Duration {
	return s.duration
}

// SampleRate returns the recording's sample rate in Hz.
func (s *Source) SampleRate() int {
	return s.format.SampleRate
}

// Channels returns the number of interleaved channels.
func (s *Source) Channels() int {
	return s.format.NumChannels
}

// Window returns the samples in [start, end) re-wrapped as a standalone
// 16-bit PCM WAV image. End is clamped to the recording's duration.
func (s *Source) Window(start, end time.Duration) ([]byte, error) {
	if end > s.duration {
		end = s.duration
	}
	if start < 0 || start >= s.duration || end <= start {
		return nil, fmt.Errorf("invalid window [%v - %v] for %v of audio", start, end, s.duration)
	}

	rate := s.format.SampleRate
	chans := s.format.NumChannels
	startFrame := int(start.Seconds() * float64(rate))
	endFrame := int(end.Seconds() * float64(rate))
	totalFrames := len(s.samples) / chans
	if endFrame > totalFrames {
		endFrame = totalFrames
	}

	span := s.samples[startFrame*chans : endFrame*chans]
	return pcmToWAV(span, s.bitDepth, rate, chans), nil
}

// pcmToWAV wraps interleaved PCM samples in a 16-bit WAV header. Samples
// at other source bit depths are shifted to 16 bits.
func pcmToWAV(samples []int, bitDepth, sampleRate, channels int) []byte {
	const headerLen = 44
	out := make([]byte, headerLen+len(samples)*2)
	pcm := out[headerLen:]

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(len(out)-8))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(out[32:], uint16(channels*2))
	binary.LittleEndian.PutUint16(out[34:], 16)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(len(samples)*2))

	shift := bitDepth - 16
	for i, sample := range samples {
		v := sample
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v)))
	}
	return out
}
