package audio

import "fmt"

// Quality mirrors the encoder quality ladder of mobile voice recorders.
type Quality int

const (
	QualityMin Quality = iota
	QualityLow
	QualityMedium
	QualityHigh
	QualityMax
)

func (q Quality) String() string {
	switch q {
	case QualityMin:
		return "min"
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	case QualityMax:
		return "max"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// Bitrate returns the AAC bitrate per channel in bits per second.
func (q Quality) Bitrate() int {
	switch q {
	case QualityMin:
		return 16000
	case QualityLow:
		return 24000
	case QualityMedium:
		return 32000
	case QualityMax:
		return 64000
	default:
		return 48000
	}
}

// Profile describes how captured audio is encoded.
type Profile struct {
	SampleRate int
	Channels   int
	Codec      string
	Container  string
	Quality    Quality
}

// VoiceMemo is the only profile QuickRec records with.
var VoiceMemo = Profile{
	SampleRate: 12000,
	Channels:   1,
	Codec:      "aac",
	Container:  "mp4",
	Quality:    QualityHigh,
}

// OutputArgs returns the ffmpeg output options for the profile.
func (p Profile) OutputArgs() []string {
	return []string{
		"-ac", fmt.Sprintf("%d", p.Channels),
		"-ar", fmt.Sprintf("%d", p.SampleRate),
		"-c:a", p.Codec,
		"-b:a", fmt.Sprintf("%d", p.Quality.Bitrate()*p.Channels),
		"-f", p.Container,
		"-movflags", "+faststart",
	}
}
