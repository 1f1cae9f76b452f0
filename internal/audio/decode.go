package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/abema/go-mp4"
)

var ErrUndecodable = errors.New("undecodable audio")

// Clip describes a probed recording. The file contents are only held while
// decoding; players stream from Path.
type Clip struct {
	Path       string
	Size       int64
	Duration   time.Duration
	SampleRate int
	Channels   int
	Codec      string
	Brand      string
}

// Decoder turns file contents into a playable Clip.
type Decoder interface {
	Decode(path string, data []byte) (*Clip, error)
}

// Load reads path into memory and decodes it.
func Load(dec Decoder, path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return dec.Decode(path, data)
}

// MP4Decoder accepts MP4/M4A containers holding an AAC audio track.
type MP4Decoder struct{}

func (MP4Decoder) Decode(path string, data []byte) (*Clip, error) {
	if len(data) < 8 || string(data[4:8]) != "ftyp" {
		return nil, fmt.Errorf("%w: %s is not an MP4 container", ErrUndecodable, path)
	}

	info, err := mp4.Probe(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUndecodable, path, err)
	}

	for _, track := range info.Tracks {
		if track.Codec != mp4.CodecMP4A {
			continue
		}

		clip := &Clip{
			Path:       path,
			Size:       int64(len(data)),
			SampleRate: int(track.Timescale),
			Codec:      "aac",
			Brand:      string(info.MajorBrand[:]),
		}
		if track.Timescale > 0 {
			clip.Duration = time.Duration(float64(track.Duration) / float64(track.Timescale) * float64(time.Second))
		}
		if track.MP4A != nil {
			clip.Channels = int(track.MP4A.ChannelCount)
		}
		return clip, nil
	}

	return nil, fmt.Errorf("%w: %s has no audio track", ErrUndecodable, path)
}
