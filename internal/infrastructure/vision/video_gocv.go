//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

// OpenVideo открывает видео через OpenCV.
func (d *Decoder) OpenVideo(ctx context.Context, path string) (port.FrameStream, error) {
	_ = ctx
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrArtifactDecode, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: cannot open video %s", entity.ErrArtifactDecode, path)
	}
	return &gocvStream{capture: capture, mat: gocv.NewMat()}, nil
}

type gocvStream struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

func (s *gocvStream) Next() (image.Image, bool, error) {
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, false, nil
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, false, fmt.Errorf("convert frame: %w", err)
	}
	return img, true, nil
}

// Skip читает кадр без конвертации в image.Image.
func (s *gocvStream) Skip() (bool, error) {
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return false, nil
	}
	return true, nil
}

func (s *gocvStream) Close() error {
	s.mat.Close()
	return s.capture.Close()
}
