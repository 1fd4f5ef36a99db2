package console

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tb-storyboard/internal/entity"
	"tb-storyboard/internal/usecase"

	"github.com/gabriel-vasile/mimetype"
)

// Form is the storyboard being composed at the prompt.
type Form struct {
	Story   string
	Scenes  int
	Style   string
	Aspect  entity.AspectRatio
	Outputs int
	Images  []entity.ImageFile
	Prompts []string
}

func NewForm() *Form {
	return &Form{
		Scenes:  3,
		Style:   "cinematic",
		Aspect:  entity.AspectLandscape,
		Outputs: 1,
	}
}

func (f *Form) SetScenes(arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < usecase.MinScenes || n > usecase.MaxScenes {
		return fmt.Errorf("scenes must be a number between %d and %d", usecase.MinScenes, usecase.MaxScenes)
	}

	f.Scenes = n

	return nil
}

func (f *Form) SetAspect(arg string) error {
	switch a := entity.AspectRatio(arg); a {
	case entity.AspectLandscape, entity.AspectPortrait, entity.AspectSquare:
		f.Aspect = a

		return nil
	default:
		return fmt.Errorf("aspect must be one of 16:9, 9:16, 1:1")
	}
}

func (f *Form) SetOutputs(arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return fmt.Errorf("outputs must be a positive number")
	}

	f.Outputs = n

	return nil
}

// AddImage reads an image from disk. The MIME type comes from the content,
// not the file name.
func (f *Form) AddImage(path string) (entity.ImageFile, error) {
	if len(f.Images) >= entity.MaxImages {
		return entity.ImageFile{}, fmt.Errorf("at most %d images", entity.MaxImages)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return entity.ImageFile{}, fmt.Errorf("read image: %w", err)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return entity.ImageFile{}, fmt.Errorf("%s is %s, not an image", filepath.Base(path), mt.String())
	}

	img := entity.ImageFile{
		Name:     filepath.Base(path),
		MimeType: mt.String(),
		Data:     data,
	}

	f.Images = append(f.Images, img)

	return img, nil
}

func (f *Form) ClearImages() {
	f.Images = nil
}

// Mode follows from how many images are attached.
func (f *Form) Mode() entity.Mode {
	return entity.ModeForImageCount(len(f.Images))
}

func (f *Form) Request() entity.StoryboardRequest {
	return entity.StoryboardRequest{
		Prompts:     f.Prompts,
		Images:      f.Images,
		AspectRatio: f.Aspect,
		Outputs:     f.Outputs,
		Mode:        f.Mode(),
	}
}
