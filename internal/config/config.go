package config

import "time"

// PosterOptions defines options for the poster command
type PosterOptions struct {
	InputPaths   []string
	LogoPath     string
	OutputDir    string
	BrandingPath string
	Save         bool
	Verbose      bool
}

// ReelOptions defines options for the reel command
type ReelOptions struct {
	InputPath    string
	LogoPath     string
	OutputDir    string
	BrandingPath string
	TrimEnd      time.Duration
	FrameRate    int
	IncludeAudio bool
	Save         bool
	Verbose      bool
}

const (
	// Poster canvas (4:5)
	PosterWidth  = 1080
	PosterHeight = 1350

	// Reel canvas (9:16)
	ReelWidth  = 1080
	ReelHeight = 1920

	// Hard ceiling on reel length before any trim is applied
	MaxReelDuration = 30 * time.Second

	// Live preview sizes
	PosterPreviewWidth  = 420
	PosterPreviewHeight = 525
	ReelPreviewWidth    = 360
	ReelPreviewHeight   = 640

	// Batch thumbnail and reel thumbnail sizes
	ThumbnailWidth      = 180
	ThumbnailHeight     = 225
	ReelThumbnailWidth  = 360
	ReelThumbnailHeight = 640

	// JPEG quality
	ExportQuality         = 90
	ThumbnailQuality      = 75
	ReelThumbnailQuality  = 70
	ReelPosterFrameOffset = 200 * time.Millisecond
	VideoPreviewOffset    = time.Second

	// Supported reel frame rates
	DefaultFrameRate = 24
)

// SupportedFrameRates lists the frame rates a reel may be recorded at.
var SupportedFrameRates = []int{24, 30}

// Temporary directory prefix for encoder output
const TempDirPrefix = "dealer_poster_"
