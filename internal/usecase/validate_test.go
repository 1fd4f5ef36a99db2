package usecase

import (
	"testing"

	"tb-storyboard/internal/entity"
	"tb-storyboard/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	img := entity.ImageFile{Name: "a.png", MimeType: "image/png", Data: []byte{1}}
	empty := entity.ImageFile{Name: "a.png", MimeType: "image/png"}

	tests := []struct {
		name    string
		mutate  func(r *entity.StoryboardRequest)
		wantMsg string
	}{
		{name: "valid", mutate: func(*entity.StoryboardRequest) {}},
		{
			name:    "no prompts",
			mutate:  func(r *entity.StoryboardRequest) { r.Prompts = nil },
			wantMsg: "Prompts is required",
		},
		{
			name:    "blank prompt",
			mutate:  func(r *entity.StoryboardRequest) { r.Prompts = []string{"ok", "   "} },
			wantMsg: "Prompts[1] must not be blank",
		},
		{
			name:    "too many images",
			mutate:  func(r *entity.StoryboardRequest) { r.Images = []entity.ImageFile{img, img, img, img} },
			wantMsg: "Images must have at most 3",
		},
		{
			name:    "image without bytes",
			mutate:  func(r *entity.StoryboardRequest) { r.Images = []entity.ImageFile{empty} },
			wantMsg: "Images[0].Data is required",
		},
		{
			name:    "unknown aspect",
			mutate:  func(r *entity.StoryboardRequest) { r.AspectRatio = "4:3" },
			wantMsg: "AspectRatio must be one of",
		},
		{
			name:    "zero outputs",
			mutate:  func(r *entity.StoryboardRequest) { r.Outputs = 0 },
			wantMsg: "Outputs must have at least 1",
		},
		{
			name:    "unknown mode",
			mutate:  func(r *entity.StoryboardRequest) { r.Mode = "Sketch to Video" },
			wantMsg: `Mode "Sketch to Video" is not a known mode`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := entity.StoryboardRequest{
				Prompts:     []string{"a scene"},
				Images:      []entity.ImageFile{img},
				AspectRatio: entity.AspectSquare,
				Outputs:     2,
				Mode:        entity.ModeFramesToVideo,
			}
			tt.mutate(&req)

			err := ValidateRequest(req)
			if tt.wantMsg == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
