package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoMetadata contains metadata about a video file
type VideoMetadata struct {
	Duration  time.Duration
	Width     int
	Height    int
	Codec     string
	FrameRate float64
	HasAudio  bool
}

// Processor wraps FFmpeg functionality
type Processor struct {
	log zerolog.Logger

	mu       sync.Mutex
	support  map[string]bool
	testCall func(ctx context.Context, c Codec) error
}

// NewProcessor creates a new FFmpeg processor
func NewProcessor(log zerolog.Logger) *Processor {
	p := &Processor{
		log:     log.With().Str("component", "ffmpeg").Logger(),
		support: make(map[string]bool),
	}
	p.testCall = p.testEncode
	return p
}

// GetVideoMetadata retrieves metadata about a video file
func (p *Processor) GetVideoMetadata(ctx context.Context, inputPath string) (*VideoMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	probe, err := ffmpeg.Probe(inputPath)
	if err != nil {
		return nil, errors.Wrap(err, "error probing video")
	}
	meta, err := parseProbe(probe)
	if err != nil {
		return nil, errors.Wrapf(err, "probe %s", inputPath)
	}
	p.log.Debug().
		Str("path", inputPath).
		Dur("duration", meta.Duration).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Bool("audio", meta.HasAudio).
		Msg("probed video")
	return meta, nil
}

func parseProbe(probe string) (*VideoMetadata, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return nil, errors.WithStack(err)
	}

	streams, ok := data["streams"].([]interface{})
	if !ok || len(streams) == 0 {
		return nil, fmt.Errorf("no streams found in video")
	}

	var videoStream map[string]interface{}
	hasAudio := false
	for _, stream := range streams {
		s, ok := stream.(map[string]interface{})
		if !ok {
			continue
		}
		switch s["codec_type"] {
		case "video":
			if videoStream == nil {
				videoStream = s
			}
		case "audio":
			hasAudio = true
		}
	}

	if videoStream == nil {
		return nil, fmt.Errorf("no video stream found")
	}

	frameRate := parseRate(videoStream["avg_frame_rate"])
	if frameRate == 0 {
		frameRate = parseRate(videoStream["r_frame_rate"])
	}

	// First try video stream duration, then format duration
	duration := parseFloat(videoStream["duration"])
	if duration == 0 {
		if format, ok := data["format"].(map[string]interface{}); ok {
			duration = parseFloat(format["duration"])
		}
	}

	// If still no duration found, try calculating from frames and frame rate
	if duration == 0 && frameRate > 0 {
		duration = parseFloat(videoStream["nb_frames"]) / frameRate
	}

	if duration <= 0 || math.IsInf(duration, 0) || math.IsNaN(duration) {
		return nil, fmt.Errorf("could not determine video duration")
	}

	width, _ := videoStream["width"].(float64)
	height, _ := videoStream["height"].(float64)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("video stream has no dimensions")
	}
	codec, _ := videoStream["codec_name"].(string)

	meta := &VideoMetadata{
		Duration:  time.Duration(duration * float64(time.Second)),
		Width:     int(width),
		Height:    int(height),
		Codec:     codec,
		FrameRate: frameRate,
		HasAudio:  hasAudio,
	}
	// ffmpeg autorotates on decode, so quarter-turn clips report swapped axes.
	if r := rotation(videoStream); r == 90 || r == 270 {
		meta.Width, meta.Height = meta.Height, meta.Width
	}
	return meta, nil
}

func rotation(stream map[string]interface{}) int {
	deg := 0.0
	if tags, ok := stream["tags"].(map[string]interface{}); ok {
		deg = parseFloat(tags["rotate"])
	}
	if sides, ok := stream["side_data_list"].([]interface{}); ok {
		for _, sd := range sides {
			if m, ok := sd.(map[string]interface{}); ok {
				if r, ok := m["rotation"].(float64); ok {
					deg = r
				}
			}
		}
	}
	r := int(math.Round(deg)) % 360
	if r < 0 {
		r += 360
	}
	return r
}

func parseFloat(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	case float64:
		return t
	}
	return 0
}

func parseRate(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	nums := strings.Split(s, "/")
	if len(nums) != 2 {
		return parseFloat(s)
	}
	num, err1 := strconv.ParseFloat(nums[0], 64)
	den, err2 := strconv.ParseFloat(nums[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

func GetOptimalThreadCount() int {
	cpuCount := runtime.NumCPU()
	// Use 75% of available cores to prevent overload
	return int(math.Max(1, float64(cpuCount)*0.75))
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
