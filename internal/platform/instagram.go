package platform

import (
	"time"

	"github.com/ZacxDev/dealer-poster/internal/config"
)

const (
	PosterName = "instagram-post"
	ReelName   = "instagram-reel"
)

type InstagramPost struct{}

type InstagramReel struct{}

func init() {
	Register(&InstagramPost{})
	Register(&InstagramReel{})
}

func (p *InstagramPost) GetName() string {
	return PosterName
}

func (p *InstagramPost) GetDimensions() (width, height int) {
	return config.PosterWidth, config.PosterHeight
}

func (p *InstagramPost) IsVideo() bool {
	return false
}

func (p *InstagramPost) GetMaxDuration() time.Duration {
	return 0
}

func (p *InstagramPost) GetPreviewDimensions() (width, height int) {
	return config.PosterPreviewWidth, config.PosterPreviewHeight
}

func (p *InstagramReel) GetName() string {
	return ReelName
}

func (p *InstagramReel) GetDimensions() (width, height int) {
	return config.ReelWidth, config.ReelHeight
}

func (p *InstagramReel) IsVideo() bool {
	return true
}

func (p *InstagramReel) GetMaxDuration() time.Duration {
	return config.MaxReelDuration
}

func (p *InstagramReel) GetPreviewDimensions() (width, height int) {
	return config.ReelPreviewWidth, config.ReelPreviewHeight
}
