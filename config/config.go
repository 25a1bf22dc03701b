package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"roadwatch/internal/domain/entity"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	// BackendMemory держит историю и счётчик только в памяти процесса.
	BackendMemory = "memory"

	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

type Config struct {
	TelegramToken string `yaml:"-"`
	DataDir       string `yaml:"data_dir"`
	StoreBackend  string `yaml:"store_backend"`

	DetectorURL           string  `yaml:"detector_url"`
	DetectorTransport     string  `yaml:"detector_transport"`
	DetectorMinConfidence float64 `yaml:"detector_min_confidence"`

	Pipeline entity.PipelineConfig `yaml:"pipeline"`

	RewardAmount int    `yaml:"reward_amount"`
	BotWorkers   int    `yaml:"bot_workers"`
	LogLevel     string `yaml:"log_level"`
}

// Default значения без .env и файла настроек.
func Default() *Config {
	return &Config{
		DataDir:           "./data",
		StoreBackend:      BackendJSON,
		DetectorURL:       "http://localhost:8000/predict",
		DetectorTransport: TransportHTTP,
		Pipeline:          entity.DefaultPipelineConfig(),
		RewardAmount:      10,
		BotWorkers:        4,
		LogLevel:          "info",
	}
}

// Load читает .env, переменные окружения и файл из ROADWATCH_CONFIG, если он задан.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if path := os.Getenv("ROADWATCH_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.StoreBackend, "STORE_BACKEND")
	setString(&c.DetectorURL, "DETECTOR_URL")
	setString(&c.DetectorTransport, "DETECTOR_TRANSPORT")
	setString(&c.LogLevel, "LOG_LEVEL")

	return errors.Join(
		setFloat(&c.DetectorMinConfidence, "DETECTOR_MIN_CONFIDENCE"),
		setInt(&c.Pipeline.FrameStride, "FRAME_STRIDE"),
		setInt(&c.Pipeline.WorkingWidth, "WORKING_WIDTH"),
		setInt(&c.Pipeline.WorkingHeight, "WORKING_HEIGHT"),
		setFloat(&c.Pipeline.IoUThreshold, "IOU_THRESHOLD"),
		setInt(&c.Pipeline.Severity.MinorMax, "SEVERITY_MINOR_MAX"),
		setInt(&c.Pipeline.Severity.ModerateMax, "SEVERITY_MODERATE_MAX"),
		setInt(&c.Pipeline.DetectWorkers, "DETECT_WORKERS"),
		setInt(&c.RewardAmount, "REWARD_AMOUNT"),
		setInt(&c.BotWorkers, "BOT_WORKERS"),
	)
}

// applyFile накладывает YAML поверх уже прочитанных значений;
// ключи, которых нет в файле, не меняются.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	switch c.StoreBackend {
	case BackendJSON, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	switch c.DetectorTransport {
	case TransportHTTP, TransportWebSocket:
	default:
		return fmt.Errorf("unknown detector transport %q", c.DetectorTransport)
	}
	if c.DetectorMinConfidence < 0 || c.DetectorMinConfidence > 1 {
		return fmt.Errorf("detector min confidence must be in [0,1], got %v", c.DetectorMinConfidence)
	}
	if c.RewardAmount < 0 {
		return fmt.Errorf("reward amount must be >= 0, got %d", c.RewardAmount)
	}
	if c.BotWorkers < 1 {
		return fmt.Errorf("bot workers must be >= 1, got %d", c.BotWorkers)
	}
	if c.DetectorURL == "" {
		return errors.New("detector url is required")
	}
	if c.DataDir == "" {
		return errors.New("data dir is required")
	}
	return nil
}

// SlogLevel уровень логирования из LOG_LEVEL; неизвестное значение даёт info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}
