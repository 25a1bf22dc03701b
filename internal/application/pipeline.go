package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

// Pipeline прогоняет артефакт через детектор, дедупликацию и классификацию.
type Pipeline struct {
	detector port.FrameDetector
	decoder  port.ArtifactDecoder
	cfg      entity.PipelineConfig
	log      *slog.Logger
}

// NewPipeline создаёт конвейер; конфигурация должна пройти Validate.
func NewPipeline(detector port.FrameDetector, decoder port.ArtifactDecoder, cfg entity.PipelineConfig, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		detector: detector,
		decoder:  decoder,
		cfg:      cfg,
		log:      log,
	}
}

// Config возвращает параметры конвейера.
func (p *Pipeline) Config() entity.PipelineConfig {
	return p.cfg
}

// Run обрабатывает одно изображение или одно видео.
// Пустой результат не ошибка. Любая ошибка детектора отменяет весь прогон.
func (p *Pipeline) Run(ctx context.Context, artifact entity.Artifact) (*entity.PipelineResult, error) {
	if p.detector == nil {
		return nil, errors.New("detector is not configured")
	}

	kind := artifact.Kind
	if kind == "" {
		kind = entity.KindFromFilename(artifactName(artifact))
	}

	dedup := NewDeduplicator(p.cfg.IoUThreshold, p.cfg.Severity)

	var (
		result *entity.PipelineResult
		err    error
	)
	switch kind {
	case entity.KindImage:
		result, err = p.runImage(ctx, artifact, dedup)
	case entity.KindVideo:
		result, err = p.runVideo(ctx, artifact, dedup)
	default:
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedArtifact, kind)
	}
	if err != nil {
		return nil, err
	}

	detections, err := dedup.Finalize()
	if err != nil {
		return nil, err
	}
	result.Kind = kind
	result.Detections = detections
	result.Breakdown = entity.Breakdown(detections)
	result.TotalDetections = len(detections)

	p.log.Info("pipeline run finished",
		slog.String("kind", string(kind)),
		slog.String("artifact", artifactName(artifact)),
		slog.Int("frames_read", result.FramesRead),
		slog.Int("frames_processed", result.FramesProcessed),
		slog.Int("detections", result.TotalDetections))

	return result, nil
}

func (p *Pipeline) runImage(ctx context.Context, artifact entity.Artifact, dedup *Deduplicator) (*entity.PipelineResult, error) {
	data := artifact.Data
	if len(data) == 0 && artifact.Path != "" {
		var err error
		data, err = os.ReadFile(artifact.Path)
		if err != nil {
			return nil, decodeError(err)
		}
	}
	if len(data) == 0 {
		return nil, entity.ErrEmptyArtifact
	}

	img, err := p.decoder.DecodeImage(data)
	if err != nil {
		return nil, decodeError(err)
	}

	raws, err := p.detect(ctx, 1, img)
	if err != nil {
		return nil, err
	}
	if err := dedup.Observe(raws); err != nil {
		return nil, err
	}

	return &entity.PipelineResult{
		FramesRead:          1,
		FramesProcessed:     1,
		RepresentativeFrame: img,
	}, nil
}

// sampledFrame кадр видео, отобранный по шагу.
type sampledFrame struct {
	index int
	img   image.Image
}

func (p *Pipeline) runVideo(ctx context.Context, artifact entity.Artifact, dedup *Deduplicator) (*entity.PipelineResult, error) {
	path := artifact.Path
	if path == "" {
		if len(artifact.Data) == 0 {
			return nil, entity.ErrEmptyArtifact
		}
		tmp, err := spoolTemp(artifact)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp)
		path = tmp
	}

	stream, err := p.decoder.OpenVideo(ctx, path)
	if err != nil {
		return nil, decodeError(err)
	}
	defer stream.Close()

	result := &entity.PipelineResult{}
	batch := make([]sampledFrame, 0, p.cfg.DetectWorkers)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.detectBatch(ctx, batch, dedup); err != nil {
			return err
		}
		result.FramesProcessed += len(batch)
		result.RepresentativeFrame = batch[len(batch)-1].img
		batch = batch[:0]
		return nil
	}

	for index := 1; ; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if index%p.cfg.FrameStride != 0 {
			ok, err := stream.Skip()
			if err != nil {
				return nil, decodeError(err)
			}
			if !ok {
				break
			}
			result.FramesRead++
			continue
		}

		frame, ok, err := stream.Next()
		if err != nil {
			return nil, decodeError(err)
		}
		if !ok {
			break
		}
		result.FramesRead++

		resized := p.decoder.Resize(frame, p.cfg.WorkingWidth, p.cfg.WorkingHeight)
		batch = append(batch, sampledFrame{index: index, img: resized})
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return result, nil
}

// detectBatch вызывает детектор по кадрам пачки параллельно,
// а в дедупликатор подаёт результаты строго в порядке кадров.
func (p *Pipeline) detectBatch(ctx context.Context, batch []sampledFrame, dedup *Deduplicator) error {
	results := make([][]entity.RawDetection, len(batch))

	if len(batch) == 1 {
		raws, err := p.detect(ctx, batch[0].index, batch[0].img)
		if err != nil {
			return err
		}
		results[0] = raws
	} else {
		g, gCtx := errgroup.WithContext(ctx)
		for i, f := range batch {
			g.Go(func() error {
				raws, err := p.detect(gCtx, f.index, f.img)
				if err != nil {
					return err
				}
				results[i] = raws
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	for _, raws := range results {
		if err := dedup.Observe(raws); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) detect(ctx context.Context, index int, frame image.Image) ([]entity.RawDetection, error) {
	raws, err := p.detector.Detect(ctx, frame)
	if err != nil {
		return nil, &entity.DetectorError{Frame: index, Err: err}
	}
	p.log.Debug("frame detected", slog.Int("frame", index), slog.Int("raw_detections", len(raws)))
	return raws, nil
}

func decodeError(err error) error {
	if errors.Is(err, entity.ErrArtifactDecode) {
		return err
	}
	return fmt.Errorf("%w: %v", entity.ErrArtifactDecode, err)
}

// spoolTemp сохраняет видео во временный файл для декодера.
func spoolTemp(artifact entity.Artifact) (string, error) {
	f, err := os.CreateTemp("", "roadwatch-*"+filepath.Ext(artifact.Name))
	if err != nil {
		return "", fmt.Errorf("create temp video: %w", err)
	}
	if _, err := f.Write(artifact.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp video: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp video: %w", err)
	}
	return f.Name(), nil
}

func artifactName(a entity.Artifact) string {
	if a.Name != "" {
		return a.Name
	}
	return filepath.Base(a.Path)
}
