package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeForImageCount(t *testing.T) {
	tests := []struct {
		images int
		want   Mode
	}{
		{0, ModeTextToVideo},
		{1, ModeFramesToVideo},
		{2, ModeIngredientsToVideo},
		{3, ModeIngredientsToVideo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ModeForImageCount(tt.images), "images=%d", tt.images)
	}
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeCreateImage.Valid())
	assert.False(t, Mode("Video to Text").Valid())
}

func TestAspectRatioCropLabel(t *testing.T) {
	assert.Equal(t, "landscape", AspectLandscape.CropLabel())
	assert.Equal(t, "portrait", AspectPortrait.CropLabel())
	assert.Equal(t, "square", AspectSquare.CropLabel())
}

func TestFailedResult(t *testing.T) {
	res := FailedResult(2, "transport unavailable")

	assert.False(t, res.Succeeded)
	assert.Zero(t, res.ScenesCompleted)
	assert.Equal(t, 2, res.TotalScenes)
	assert.Empty(t, res.FailedSceneIndices)
	assert.Equal(t, "transport unavailable", res.ErrorMessage)
}
