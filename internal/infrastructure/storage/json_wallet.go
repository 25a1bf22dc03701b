package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"roadwatch/internal/domain/port"
)

// GlobalWalletKey единственный ключ, который понимает кошелёк.
const GlobalWalletKey = "global_wallet"

// JSONWallet общий счётчик вознаграждений в файле вида {"global_wallet": 40}.
// Прочие ключи файла сохраняются как есть.
type JSONWallet struct {
	path string
	mu   *sync.Mutex
}

func NewJSONWallet(path string) *JSONWallet {
	return &JSONWallet{path: path, mu: lockFor(path)}
}

// Credit атомарно увеличивает счётчик и сразу сбрасывает его на диск.
func (w *JSONWallet) Credit(ctx context.Context, amount int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if amount < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeCredit, amount)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	fields, balance, err := w.load()
	if err != nil {
		return 0, err
	}

	balance += amount
	encoded, err := json.Marshal(balance)
	if err != nil {
		return 0, err
	}
	fields[GlobalWalletKey] = encoded

	data, err := json.Marshal(fields)
	if err != nil {
		return 0, fmt.Errorf("encode wallet: %w", err)
	}
	if err := writeFileAtomic(w.path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write wallet: %w", err)
	}
	return balance, nil
}

// Balance текущее значение счётчика; отсутствующий файл значит 0.
func (w *JSONWallet) Balance(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, balance, err := w.load()
	return balance, err
}

func (w *JSONWallet) load() (map[string]json.RawMessage, int, error) {
	data, err := readFileIfExists(w.path)
	if err != nil {
		return nil, 0, fmt.Errorf("read wallet: %w", err)
	}

	fields := make(map[string]json.RawMessage)
	if len(bytes.TrimSpace(data)) == 0 {
		return fields, 0, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrCorruptStore, w.path, err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}

	var balance int
	if raw, ok := fields[GlobalWalletKey]; ok {
		if err := json.Unmarshal(raw, &balance); err != nil {
			return nil, 0, fmt.Errorf("%w: %s: %s is not an integer", ErrCorruptStore, w.path, GlobalWalletKey)
		}
	}
	return fields, balance, nil
}

var _ port.RewardLedger = (*JSONWallet)(nil)
