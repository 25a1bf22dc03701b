package entity

import (
	"errors"
	"fmt"
)

// ErrArtifactDecode артефакт не удалось открыть или декодировать.
var ErrArtifactDecode = errors.New("artifact decode failed")

var (
	ErrEmptyArtifact       = fmt.Errorf("%w: empty artifact", ErrArtifactDecode)
	ErrUnsupportedArtifact = fmt.Errorf("%w: unsupported artifact kind", ErrArtifactDecode)
)

// DetectorError оборачивает ошибку внешнего детектора, не меняя её.
type DetectorError struct {
	Frame int
	Err   error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector failed on frame %d: %v", e.Frame, e.Err)
}

func (e *DetectorError) Unwrap() error { return e.Err }

// PersistenceError запись отчёта или кошелька не удалась после успешной детекции.
type PersistenceError struct {
	Op       string
	ReportID string
	Err      error
}

func (e *PersistenceError) Error() string {
	if e.ReportID != "" {
		return fmt.Sprintf("persist %s (report %s): %v", e.Op, e.ReportID, e.Err)
	}
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence сообщает, что err вызвана ошибкой хранилища.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
