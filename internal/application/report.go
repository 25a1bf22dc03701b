package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

// DefaultReward начисление за прогон, в котором найден хотя бы один дефект.
const DefaultReward = 10

const (
	msgReportSaved   = "Pothole detected and report saved"
	msgNoDetections  = "No pothole detected"
	msgPersistFailed = "Processed, but failed to save report"
)

// ReportService превращает результат детекции в отчёт и начисление.
type ReportService struct {
	pipeline  *Pipeline
	reports   port.ReportStore
	ledger    port.RewardLedger
	media     port.MediaStore
	annotator port.Annotator
	reward    int
	now       func() time.Time
	log       *slog.Logger
}

// Submission загрузка пользователя вместе с метаданными.
type Submission struct {
	Artifact    entity.Artifact
	Location    *entity.Location
	Description string
}

// SubmitResult содержит результат детекции и судьбу отчёта.
type SubmitResult struct {
	Pipeline  *entity.PipelineResult
	Report    *entity.Report // nil, если отчёт не записан
	Wallet    int
	Persisted bool
	Message   string
}

// ReportServiceOption настройка сервиса.
type ReportServiceOption func(*ReportService)

// WithReward задаёт размер начисления.
func WithReward(amount int) ReportServiceOption {
	return func(s *ReportService) { s.reward = amount }
}

// WithMedia включает сохранение оригинала и подсвеченного кадра.
func WithMedia(media port.MediaStore, annotator port.Annotator) ReportServiceOption {
	return func(s *ReportService) {
		s.media = media
		s.annotator = annotator
	}
}

// WithClock подменяет часы, используется в тестах.
func WithClock(now func() time.Time) ReportServiceOption {
	return func(s *ReportService) { s.now = now }
}

// NewReportService создаёт сервис отчётов.
func NewReportService(pipeline *Pipeline, reports port.ReportStore, ledger port.RewardLedger, log *slog.Logger, opts ...ReportServiceOption) *ReportService {
	if log == nil {
		log = slog.Default()
	}
	s := &ReportService{
		pipeline: pipeline,
		reports:  reports,
		ledger:   ledger,
		reward:   DefaultReward,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit прогоняет загрузку через конвейер и, если дефекты найдены, сохраняет отчёт
// и начисляет вознаграждение.
//
// Ошибки детекции возвращаются с nil результатом. Если детекция прошла, но запись
// не удалась, возвращаются и результат, и *entity.PersistenceError.
func (s *ReportService) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	res, err := s.pipeline.Run(ctx, sub.Artifact)
	if err != nil {
		return nil, err
	}

	out := &SubmitResult{Pipeline: res}
	if !res.HasDetections() {
		out.Message = msgNoDetections
		return out, nil
	}

	now := s.now()
	report := entity.Report{
		ID:                entity.NewReportID(now),
		Timestamp:         now.Unix(),
		Description:       sub.Description,
		TotalDetections:   res.TotalDetections,
		SeverityBreakdown: res.Breakdown,
		Detections:        res.Detections,
	}
	if sub.Location != nil {
		lat, lon := sub.Location.Lat, sub.Location.Lon
		report.Lat, report.Lon = &lat, &lon
	}

	if err := s.saveMedia(ctx, &report, sub.Artifact, res); err != nil {
		return s.persistFailed(out, "save original", report.ID, err)
	}

	if err := s.reports.Append(ctx, &report); err != nil {
		s.discardMedia(ctx, &report)
		return s.persistFailed(out, "append report", report.ID, err)
	}
	out.Report = &report

	balance, err := s.ledger.Credit(ctx, s.reward)
	if err != nil {
		return s.persistFailed(out, "credit wallet", report.ID, err)
	}

	out.Wallet = balance
	out.Persisted = true
	out.Message = msgReportSaved
	s.log.Info("report saved",
		slog.String("report_id", report.ID),
		slog.Int("detections", report.TotalDetections),
		slog.Int("wallet", balance))
	return out, nil
}

func (s *ReportService) persistFailed(out *SubmitResult, op, reportID string, err error) (*SubmitResult, error) {
	s.log.Error("report persistence failed",
		slog.String("op", op),
		slog.String("report_id", reportID),
		slog.Any("error", err))
	out.Message = msgPersistFailed
	return out, &entity.PersistenceError{Op: op, ReportID: reportID, Err: err}
}

// saveMedia сохраняет оригинал; ошибка подсветки не мешает отчёту.
func (s *ReportService) saveMedia(ctx context.Context, report *entity.Report, artifact entity.Artifact, res *entity.PipelineResult) error {
	if s.media == nil {
		report.OriginalFile = artifactName(artifact)
		return nil
	}

	data := artifact.Data
	if len(data) == 0 && artifact.Path != "" {
		var err error
		if data, err = os.ReadFile(artifact.Path); err != nil {
			return fmt.Errorf("read original: %w", err)
		}
	}

	ref, err := s.media.Save(ctx, fmt.Sprintf("%s_orig_%s", report.ID, filepath.Base(artifactName(artifact))), data)
	if err != nil {
		return err
	}
	report.OriginalFile = ref

	if s.annotator == nil || res.RepresentativeFrame == nil {
		return nil
	}
	annotated, err := s.annotator.Annotate(res.RepresentativeFrame, res.Detections)
	if err != nil {
		s.log.Warn("annotation failed", slog.String("report_id", report.ID), slog.Any("error", err))
		return nil
	}
	annotRef, err := s.media.Save(ctx, report.ID+"_annot.png", annotated)
	if err != nil {
		s.log.Warn("annotated image not saved", slog.String("report_id", report.ID), slog.Any("error", err))
		return nil
	}
	report.AnnotatedFile = &annotRef
	return nil
}

// discardMedia удаляет файлы отчёта, который не попал в историю.
func (s *ReportService) discardMedia(ctx context.Context, report *entity.Report) {
	if s.media == nil {
		return
	}
	refs := []string{report.OriginalFile}
	if report.AnnotatedFile != nil {
		refs = append(refs, *report.AnnotatedFile)
	}
	for _, ref := range refs {
		if err := s.media.Remove(context.WithoutCancel(ctx), ref); err != nil {
			s.log.Warn("orphaned report media",
				slog.String("report_id", report.ID),
				slog.String("ref", ref),
				slog.Any("error", err))
		}
	}
}

// Wallet возвращает текущее значение общего счётчика.
func (s *ReportService) Wallet(ctx context.Context) (int, error) {
	return s.ledger.Balance(ctx)
}

// Reports возвращает все отчёты в порядке поступления.
func (s *ReportService) Reports(ctx context.Context) ([]entity.Report, error) {
	return s.reports.ListAll(ctx)
}

// ReportsNear возвращает отчёты в радиусе radiusKm от точки.
func (s *ReportService) ReportsNear(ctx context.Context, center entity.Location, radiusKm float64) ([]entity.Report, error) {
	return s.reports.FindByLocation(ctx, entity.WithinRadius(center, radiusKm))
}
