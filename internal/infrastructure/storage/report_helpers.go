package storage

import (
	"errors"
	"time"

	"roadwatch/internal/domain/entity"
)

var (
	// ErrDuplicateReportID отчёт с таким ID уже есть в истории.
	ErrDuplicateReportID = errors.New("duplicate report id")
	// ErrCorruptStore файл хранилища не читается; перезаписывать его нельзя.
	ErrCorruptStore = errors.New("corrupt store file")
	// ErrNegativeCredit счётчик вознаграждений только растёт.
	ErrNegativeCredit = errors.New("credit amount must not be negative")
)

// prepareReport выдаёт ID и время, если их нет, и проверяет инварианты.
func prepareReport(r *entity.Report, now time.Time) error {
	if r.ID == "" {
		r.ID = entity.NewReportID(now)
	}
	if r.Timestamp == 0 {
		r.Timestamp = now.Unix()
	}
	return r.Validate()
}

// cloneReport копия, которую вызывающий код уже не сможет изменить.
func cloneReport(r entity.Report) entity.Report {
	out := r
	if r.Detections != nil {
		out.Detections = append([]entity.UniqueDetection(nil), r.Detections...)
	}
	if r.AnnotatedFile != nil {
		v := *r.AnnotatedFile
		out.AnnotatedFile = &v
	}
	if r.Lat != nil {
		v := *r.Lat
		out.Lat = &v
	}
	if r.Lon != nil {
		v := *r.Lon
		out.Lon = &v
	}
	return out
}

func filterReports(reports []entity.Report, match entity.LocationPredicate) []entity.Report {
	out := make([]entity.Report, 0, len(reports))
	for _, r := range reports {
		if match == nil || match(r) {
			out = append(out, r)
		}
	}
	return out
}
