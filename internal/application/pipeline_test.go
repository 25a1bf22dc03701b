package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

// fakeDecoder кодирует номер кадра в яркость пикселя (0,0).
// Изображение: первый байт данных. Видео: каждый байт файла это один кадр.
type fakeDecoder struct {
	mu      sync.Mutex
	resized []image.Point
}

func grayFrame(v uint8, w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	img.SetGray(0, 0, color.Gray{Y: v})
	return img
}

func (d *fakeDecoder) DecodeImage(data []byte) (image.Image, error) {
	if string(data) == "corrupt" {
		return nil, errors.New("unknown format")
	}
	return grayFrame(data[0], 1920, 1080), nil
}

func (d *fakeDecoder) OpenVideo(_ context.Context, path string) (port.FrameStream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &fakeStream{frames: data}, nil
}

func (d *fakeDecoder) Resize(frame image.Image, width, height int) image.Image {
	d.mu.Lock()
	d.resized = append(d.resized, image.Pt(width, height))
	d.mu.Unlock()
	return grayFrame(frameValue(frame), width, height)
}

type fakeStream struct {
	frames []byte
	pos    int
	closed bool
}

func (s *fakeStream) Next() (image.Image, bool, error) {
	if s.pos >= len(s.frames) {
		return nil, false, nil
	}
	v := s.frames[s.pos]
	s.pos++
	if v == 0xFF {
		return nil, false, errors.New("truncated stream")
	}
	return grayFrame(v, 1280, 720), true, nil
}

func (s *fakeStream) Skip() (bool, error) {
	if s.pos >= len(s.frames) {
		return false, nil
	}
	s.pos++
	return true, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

func frameValue(img image.Image) uint8 {
	return img.(*image.Gray).GrayAt(0, 0).Y
}

// fakeDetector отдаёт заранее заданные рамки по номеру кадра.
type fakeDetector struct {
	mu     sync.Mutex
	byVal  map[uint8][]entity.RawDetection
	failOn map[uint8]error
	calls  []uint8
	sizes  []image.Point
}

func (d *fakeDetector) Detect(_ context.Context, frame image.Image) ([]entity.RawDetection, error) {
	v := frameValue(frame)
	d.mu.Lock()
	d.calls = append(d.calls, v)
	d.sizes = append(d.sizes, frame.Bounds().Size())
	d.mu.Unlock()

	if err, ok := d.failOn[v]; ok {
		return nil, err
	}
	return d.byVal[v], nil
}

func writeVideo(t *testing.T, frames ...byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, frames, 0o644))
	return path
}

func TestPipeline_ImageEndToEndScenario(t *testing.T) {
	det := &fakeDetector{byVal: map[uint8][]entity.RawDetection{
		1: {raw(0, 0, 50, 50, 0.6), raw(2, 2, 52, 52, 0.8)},
	}}
	p := NewPipeline(det, &fakeDecoder{}, entity.DefaultPipelineConfig(), nil)

	res, err := p.Run(context.Background(), entity.Artifact{Name: "road.jpg", Data: []byte{1}})
	require.NoError(t, err)
	require.Equal(t, entity.KindImage, res.Kind)
	require.Equal(t, 1, res.TotalDetections)
	require.Equal(t, entity.SeverityBreakdown{Minor: 1}, res.Breakdown)

	d := res.Detections[0]
	require.Equal(t, entity.BoundingBox{X1: 0, Y1: 0, X2: 50, Y2: 50}, d.Box)
	require.Equal(t, 0.8, d.Confidence)
	require.Equal(t, 2500, d.Area)
	require.Equal(t, entity.SeverityMinor, d.Severity)

	require.Equal(t, []image.Point{{X: 1920, Y: 1080}}, det.sizes, "image is detected at full resolution")
	require.NotNil(t, res.RepresentativeFrame)
}

func TestPipeline_ImageWithoutDetections(t *testing.T) {
	p := NewPipeline(&fakeDetector{}, &fakeDecoder{}, entity.DefaultPipelineConfig(), nil)

	res, err := p.Run(context.Background(), entity.Artifact{Kind: entity.KindImage, Data: []byte{9}})
	require.NoError(t, err)
	require.Equal(t, 0, res.TotalDetections)
	require.Empty(t, res.Detections)
	require.Equal(t, entity.SeverityBreakdown{}, res.Breakdown)
	require.False(t, res.HasDetections())
}

func TestPipeline_ImageDecodeErrors(t *testing.T) {
	p := NewPipeline(&fakeDetector{}, &fakeDecoder{}, entity.DefaultPipelineConfig(), nil)
	ctx := context.Background()

	_, err := p.Run(ctx, entity.Artifact{Name: "x.png", Data: []byte("corrupt")})
	require.ErrorIs(t, err, entity.ErrArtifactDecode)

	_, err = p.Run(ctx, entity.Artifact{Name: "x.png"})
	require.ErrorIs(t, err, entity.ErrEmptyArtifact)

	_, err = p.Run(ctx, entity.Artifact{Path: filepath.Join(t.TempDir(), "missing.png")})
	require.ErrorIs(t, err, entity.ErrArtifactDecode)

	_, err = p.Run(ctx, entity.Artifact{Kind: "audio", Data: []byte{1}})
	require.ErrorIs(t, err, entity.ErrUnsupportedArtifact)
}

func TestPipeline_VideoSamplesEveryStrideFrame(t *testing.T) {
	det := &fakeDetector{}
	dec := &fakeDecoder{}
	p := NewPipeline(det, dec, entity.DefaultPipelineConfig(), nil)

	res, err := p.Run(context.Background(), entity.Artifact{Path: writeVideo(t, 1, 2, 3, 4, 5, 6, 7)})
	require.NoError(t, err)
	require.Equal(t, entity.KindVideo, res.Kind)
	require.Equal(t, []uint8{2, 4, 6}, det.calls)
	require.Equal(t, 7, res.FramesRead)
	require.Equal(t, 3, res.FramesProcessed)
	for _, size := range det.sizes {
		require.Equal(t, image.Pt(640, 480), size)
	}
	require.Len(t, dec.resized, 3)
	require.Equal(t, uint8(6), frameValue(res.RepresentativeFrame))
}

func TestPipeline_VideoStrideOneProcessesAllFrames(t *testing.T) {
	det := &fakeDetector{}
	cfg := entity.DefaultPipelineConfig()
	cfg.FrameStride = 1
	cfg.WorkingWidth, cfg.WorkingHeight = 320, 240
	p := NewPipeline(det, &fakeDecoder{}, cfg, nil)

	res, err := p.Run(context.Background(), entity.Artifact{Path: writeVideo(t, 1, 2, 3)})
	require.NoError(t, err)
	require.Equal(t, []uint8{1, 2, 3}, det.calls)
	require.Equal(t, image.Pt(320, 240), det.sizes[0])
	require.Equal(t, 3, res.FramesProcessed)
}

func TestPipeline_VideoDeduplicatesAcrossFrames(t *testing.T) {
	det := &fakeDetector{byVal: map[uint8][]entity.RawDetection{
		2: {raw(100, 100, 200, 200, 0.5)},
		4: {raw(105, 102, 205, 202, 0.9), raw(400, 300, 600, 470, 0.7)},
		6: {raw(101, 101, 201, 201, 0.6)},
	}}
	p := NewPipeline(det, &fakeDecoder{}, entity.DefaultPipelineConfig(), nil)

	res, err := p.Run(context.Background(), entity.Artifact{Path: writeVideo(t, 1, 2, 3, 4, 5, 6)})
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalDetections)

	require.Equal(t, entity.BoundingBox{X1: 100, Y1: 100, X2: 200, Y2: 200}, res.Detections[0].Box)
	require.Equal(t, 0.9, res.Detections[0].Confidence)
	require.Equal(t, entity.SeverityModerate, res.Detections[0].Severity)
	require.Equal(t, entity.SeverityMajor, res.Detections[1].Severity)
	require.Equal(t, entity.SeverityBreakdown{Moderate: 1, Major: 1}, res.Breakdown)
}

func TestPipeline_ParallelDetectionKeepsFrameOrder(t *testing.T) {
	byVal := map[uint8][]entity.RawDetection{}
	for v := uint8(1); v <= 40; v++ {
		// Каждый кадр сдвигает одну и ту же яму; первая геометрия зависит от порядка.
		shift := int(v) * 3
		byVal[v] = []entity.RawDetection{
			raw(shift, 0, shift+60, 60, float64(v)/100),
			raw(300+shift, 200, 330+shift, 230, 0.5),
		}
	}
	frames := make([]byte, 40)
	for i := range frames {
		frames[i] = byte(i + 1)
	}

	run := func(workers int) *entity.PipelineResult {
		cfg := entity.DefaultPipelineConfig()
		cfg.DetectWorkers = workers
		p := NewPipeline(&fakeDetector{byVal: byVal}, &fakeDecoder{}, cfg, nil)
		res, err := p.Run(context.Background(), entity.Artifact{Path: writeVideo(t, frames...)})
		require.NoError(t, err)
		return res
	}

	sequential := run(1)
	for _, workers := range []int{2, 3, 8} {
		parallel := run(workers)
		require.Equal(t, sequential.Detections, parallel.Detections, "workers=%d", workers)
		require.Equal(t, sequential.FramesProcessed, parallel.FramesProcessed)
		require.Equal(t, frameValue(sequential.RepresentativeFrame), frameValue(parallel.RepresentativeFrame))
	}
}

func TestPipeline_DetectorErrorAbortsRun(t *testing.T) {
	cause := errors.New("inference service unavailable")
	for _, workers := range []int{1, 4} {
		det := &fakeDetector{
			byVal:  map[uint8][]entity.RawDetection{2: {raw(0, 0, 10, 10, 0.9)}},
			failOn: map[uint8]error{4: cause},
		}
		cfg := entity.DefaultPipelineConfig()
		cfg.DetectWorkers = workers
		p := NewPipeline(det, &fakeDecoder{}, cfg, nil)

		res, err := p.Run(context.Background(), entity.Artifact{Path: writeVideo(t, 1, 2, 3, 4, 5, 6)})
		require.Nil(t, res)
		require.ErrorIs(t, err, cause)

		var detErr *entity.DetectorError
		require.ErrorAs(t, err, &detErr)
		require.Equal(t, 4, detErr.Frame)
		require.NotErrorIs(t, err, entity.ErrArtifactDecode)
	}
}

func TestPipeline_VideoDecodeErrors(t *testing.T) {
	p := NewPipeline(&fakeDetector{}, &fakeDecoder{}, entity.DefaultPipelineConfig(), nil)
	ctx := context.Background()

	_, err := p.Run(ctx, entity.Artifact{Path: filepath.Join(t.TempDir(), "missing.mp4")})
	require.ErrorIs(t, err, entity.ErrArtifactDecode)

	_, err = p.Run(ctx, entity.Artifact{Path: writeVideo(t, 1, 0xFF)})
	require.ErrorIs(t, err, entity.ErrArtifactDecode)

	_, err = p.Run(ctx, entity.Artifact{Kind: entity.KindVideo})
	require.ErrorIs(t, err, entity.ErrEmptyArtifact)
}

func TestPipeline_VideoFromBytes(t *testing.T) {
	det := &fakeDetector{byVal: map[uint8][]entity.RawDetection{2: {raw(0, 0, 200, 200, 0.7)}}}
	p := NewPipeline(det, &fakeDecoder{}, entity.DefaultPipelineConfig(), nil)

	res, err := p.Run(context.Background(), entity.Artifact{Name: "dashcam.MOV", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	require.Equal(t, entity.KindVideo, res.Kind)
	require.Equal(t, 1, res.TotalDetections)
	require.Equal(t, entity.SeverityMajor, res.Detections[0].Severity)
}

func TestPipeline_EmptyVideoIsNotAnError(t *testing.T) {
	p := NewPipeline(&fakeDetector{}, &fakeDecoder{}, entity.DefaultPipelineConfig(), nil)

	res, err := p.Run(context.Background(), entity.Artifact{Path: writeVideo(t)})
	require.NoError(t, err)
	require.Equal(t, 0, res.TotalDetections)
	require.Nil(t, res.RepresentativeFrame)
}

func TestPipeline_BreakdownSumsToTotal(t *testing.T) {
	byVal := map[uint8][]entity.RawDetection{}
	frames := make([]byte, 30)
	for i := range frames {
		v := uint8(i + 1)
		frames[i] = v
		size := 20 + i*15
		byVal[v] = []entity.RawDetection{raw(i*25, i*10, i*25+size, i*10+size, 0.5)}
	}
	p := NewPipeline(&fakeDetector{byVal: byVal}, &fakeDecoder{}, entity.DefaultPipelineConfig(), nil)

	res, err := p.Run(context.Background(), entity.Artifact{Path: writeVideo(t, frames...)})
	require.NoError(t, err)
	require.Equal(t, res.TotalDetections, res.Breakdown.Minor+res.Breakdown.Moderate+res.Breakdown.Major)
	require.Equal(t, len(res.Detections), res.TotalDetections)
}

func TestPipeline_CanceledContext(t *testing.T) {
	p := NewPipeline(&fakeDetector{}, &fakeDecoder{}, entity.DefaultPipelineConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, entity.Artifact{Path: writeVideo(t, 1, 2)})
	require.ErrorIs(t, err, context.Canceled)
}
