package audio

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// silentWAV is a two-byte mono clip used to prime the output on unlock.
const silentWAV = "UklGRigAAABXQVZFZm10IBIAAAABAAEARKwAAIhYAQACABAAAABkYXRhAgAAAAEA"

// Decode picks a decoder from the leading bytes of data, falling back to the
// extension of name. Some mirrors serve WAV files under an .mp3 URL.
func Decode(name string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	ext := sniff(data)
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(name))
	}
	switch ext {
	case ".wav":
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	case ".mp3":
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case ".ogg":
		streamer, format, err = vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	case ".flac":
		streamer, format, err = flac.Decode(bytes.NewReader(data))
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format: %s (supported: .wav, .mp3, .ogg, .flac)", ext)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return streamer, format, nil
}

func sniff(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return ".wav"
	case bytes.HasPrefix(data, []byte("OggS")):
		return ".ogg"
	case bytes.HasPrefix(data, []byte("fLaC")):
		return ".flac"
	case bytes.HasPrefix(data, []byte("ID3")):
		return ".mp3"
	default:
		return ""
	}
}

func primer() (beep.StreamSeekCloser, beep.Format, error) {
	data, err := base64.StdEncoding.DecodeString(silentWAV)
	if err != nil {
		return nil, beep.Format{}, err
	}
	return Decode("primer.wav", data)
}
