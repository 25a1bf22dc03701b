package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

const defaultWSTimeout = 30 * time.Second

// WebSocketDetector держит одно соединение с сервисом инференса:
// кадр уходит бинарным JPEG-сообщением, ответ приходит JSON-массивом рамок.
// Запросы по соединению идут строго по очереди.
type WebSocketDetector struct {
	serverURL     string
	minConfidence float64
	dialer        *websocket.Dialer
	log           *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketDetector принимает host:port или полный ws:// адрес.
func NewWebSocketDetector(addr string, minConfidence float64, log *slog.Logger) *WebSocketDetector {
	if log == nil {
		log = slog.Default()
	}
	serverURL := addr
	if u, err := url.Parse(addr); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		serverURL = (&url.URL{Scheme: "ws", Host: addr, Path: "/ws"}).String()
	}
	return &WebSocketDetector{
		serverURL:     serverURL,
		minConfidence: minConfidence,
		dialer:        websocket.DefaultDialer,
		log:           log,
	}
}

// Detect отправляет кадр и ждёт ответ на него.
func (d *WebSocketDetector) Detect(ctx context.Context, frame image.Image) ([]entity.RawDetection, error) {
	jpegData, err := encodeFrame(frame)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	conn, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWSTimeout)
	}
	conn.SetWriteDeadline(deadline)
	conn.SetReadDeadline(deadline)

	if err := conn.WriteMessage(websocket.BinaryMessage, jpegData); err != nil {
		d.dropLocked()
		return nil, fmt.Errorf("send frame: %w", err)
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		d.dropLocked()
		return nil, fmt.Errorf("read detections: %w", err)
	}

	var results []wireDetection
	if err := json.Unmarshal(message, &results); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return toRawDetections(results, d.minConfidence, d.log), nil
}

// Close закрывает соединение; следующий Detect подключится заново.
func (d *WebSocketDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

func (d *WebSocketDetector) connect(ctx context.Context) (*websocket.Conn, error) {
	if d.conn != nil {
		return d.conn, nil
	}

	d.log.Info("connecting to detector server", slog.String("url", d.serverURL))
	conn, _, err := d.dialer.DialContext(ctx, d.serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to detector %s: %w", d.serverURL, err)
	}
	d.conn = conn
	return conn, nil
}

func (d *WebSocketDetector) dropLocked() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

var _ port.FrameDetector = (*WebSocketDetector)(nil)
