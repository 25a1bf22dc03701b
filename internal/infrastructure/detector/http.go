package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

// HTTPDetector отправляет кадр во внешний сервис инференса multipart-запросом.
type HTTPDetector struct {
	inferenceURL  string
	minConfidence float64
	client        *http.Client
	log           *slog.Logger
}

// NewHTTPDetector создаёт адаптер к сервису инференса по адресу inferenceURL.
func NewHTTPDetector(inferenceURL string, minConfidence float64, log *slog.Logger) *HTTPDetector {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPDetector{
		inferenceURL:  inferenceURL,
		minConfidence: minConfidence,
		client:        &http.Client{Timeout: 60 * time.Second},
		log:           log,
	}
}

// Detect выполняет inference одного кадра.
func (d *HTTPDetector) Detect(ctx context.Context, frame image.Image) ([]entity.RawDetection, error) {
	jpegData, err := encodeFrame(frame)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(jpegData); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []wireDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return toRawDetections(result.Detections, d.minConfidence, d.log), nil
}

// CheckHealth проверяет доступность сервиса инференса. /health ищется рядом
// с эндпоинтом инференса: для http://host/predict это http://host/health.
func (d *HTTPDetector) CheckHealth(ctx context.Context) error {
	u, err := url.Parse(d.inferenceURL)
	if err != nil {
		return fmt.Errorf("parse inference url: %w", err)
	}
	dir := path.Dir(u.Path)
	if strings.HasSuffix(u.Path, "/") {
		dir = strings.TrimSuffix(u.Path, "/")
	}
	u.Path = path.Join("/", dir, "health")
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

var _ port.FrameDetector = (*HTTPDetector)(nil)
