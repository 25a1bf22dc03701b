package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		seq       INTEGER PRIMARY KEY AUTOINCREMENT,
		id        TEXT    NOT NULL UNIQUE,
		timestamp INTEGER NOT NULL,
		lat       REAL,
		lon       REAL,
		payload   TEXT    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		key   TEXT    PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
}

// SQLiteStore хранит отчёты и кошелёк в одной базе SQLite.
// Отчёт хранится целиком в payload, чтобы новые поля не требовали миграций.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite открывает или создаёт базу по пути path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Одно соединение сериализует все записи процесса.
	db.SetMaxOpenConns(1)

	for _, stmt := range append([]string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"}, sqliteSchema...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append добавляет отчёт одной транзакцией.
func (s *SQLiteStore) Append(ctx context.Context, report *entity.Report) error {
	if err := prepareReport(report, s.now()); err != nil {
		return err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (id, timestamp, lat, lon, payload) VALUES (?, ?, ?, ?, ?)`,
		report.ID, report.Timestamp, nullableFloat(report.Lat), nullableFloat(report.Lon), string(payload))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("%w: %s", ErrDuplicateReportID, report.ID)
		}
		return fmt.Errorf("insert report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}
	return nil
}

// ListAll возвращает отчёты в порядке вставки.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]entity.Report, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM reports ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := []entity.Report{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var r entity.Report
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("%w: report payload: %v", ErrCorruptStore, err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// FindByLocation фильтрует отчёты предикатом.
func (s *SQLiteStore) FindByLocation(ctx context.Context, match entity.LocationPredicate) ([]entity.Report, error) {
	reports, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterReports(reports, match), nil
}

// Credit увеличивает общий счётчик в транзакции и возвращает новое значение.
func (s *SQLiteStore) Credit(ctx context.Context, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeCredit, amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallets (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = value + excluded.value`,
		GlobalWalletKey, amount)
	if err != nil {
		return 0, fmt.Errorf("credit wallet: %w", err)
	}

	var balance int
	if err := tx.QueryRowContext(ctx, `SELECT value FROM wallets WHERE key = ?`, GlobalWalletKey).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit wallet: %w", err)
	}
	return balance, nil
}

// Balance текущее значение счётчика.
func (s *SQLiteStore) Balance(ctx context.Context) (int, error) {
	var balance int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM wallets WHERE key = ?`, GlobalWalletKey).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read wallet: %w", err)
	}
	return balance, nil
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

var (
	_ port.ReportStore  = (*SQLiteStore)(nil)
	_ port.RewardLedger = (*SQLiteStore)(nil)
)
