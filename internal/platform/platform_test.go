package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredPresets(t *testing.T) {
	assert.Equal(t, []string{PosterName, ReelName}, GetSupportedPlatforms())

	post, err := Get(PosterName)
	require.NoError(t, err)
	w, h := post.GetDimensions()
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1350, h)
	assert.False(t, post.IsVideo())

	reel := MustGet(ReelName)
	w, h = reel.GetDimensions()
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1920, h)
	assert.True(t, reel.IsVideo())
	assert.Equal(t, 30*time.Second, reel.GetMaxDuration())
}

func TestUnknownPlatform(t *testing.T) {
	_, err := Get("tiktok")
	assert.Error(t, err)
}
