package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"shrimp/adapters/excel"
	"shrimp/internal/errors"
	"shrimp/ports"
)

// Upload source names, as the API routes them.
const (
	SourceSales         = "sales"
	SourceRawMaterials  = "raw_materials"
	SourceShrimpPrices  = "shrimp_prices"
	SourceShareOfWallet = "share_of_wallet"
	SourceExports       = "exports"
)

// UploadService ingests the monthly workbooks. Months are strictly
// serialized per table: the previous month must already be loaded and the
// target month must still be empty.
type UploadService struct {
	store      ports.UploadStore
	prediction *PredictionService
}

// NewUploadService creates a new upload service
func NewUploadService(store ports.UploadStore, prediction *PredictionService) *UploadService {
	return &UploadService{store: store, prediction: prediction}
}

// UploadResult reports one accepted workbook.
type UploadResult struct {
	Source string `json:"source"`
	Rows   int    `json:"rows"`
}

// Ingest parses and loads one workbook for the named source. The whole
// upload is atomic: any bad row or month conflict rejects the file.
func (s *UploadService) Ingest(ctx context.Context, source string, r io.Reader) (*UploadResult, error) {
	var (
		rows int
		err  error
	)
	switch source {
	case SourceSales:
		rows, err = s.ingestSales(ctx, r)
	case SourceRawMaterials:
		rows, err = s.ingestRawMaterials(ctx, r)
	case SourceShrimpPrices:
		rows, err = s.ingestShrimpPrices(ctx, r)
	case SourceShareOfWallet:
		rows, err = s.ingestShareOfWallet(ctx, r)
	case SourceExports:
		rows, err = s.ingestExports(ctx, r)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unknown upload source %q", source))
	}
	if err != nil {
		return nil, err
	}

	// New data makes every memoized forecast stale.
	if s.prediction != nil {
		s.prediction.Invalidate()
	}

	log.Printf("[upload] %s: accepted %d rows", source, rows)
	return &UploadResult{Source: source, Rows: rows}, nil
}

func (s *UploadService) ingestSales(ctx context.Context, r io.Reader) (int, error) {
	entries, err := excel.ReadSales(r)
	if err != nil {
		return 0, err
	}
	dates := make([]time.Time, len(entries))
	for i, e := range entries {
		dates[i] = e.Date
	}
	if err := s.checkMonths(ctx, "venta", dates); err != nil {
		return 0, err
	}
	return len(entries), s.store.InsertSales(ctx, entries)
}

func (s *UploadService) ingestRawMaterials(ctx context.Context, r io.Reader) (int, error) {
	entries, err := excel.ReadRawMaterials(r)
	if err != nil {
		return 0, err
	}
	dates := make([]time.Time, len(entries))
	for i, e := range entries {
		dates[i] = e.Date
	}
	if err := s.checkMonths(ctx, "materia_prima", dates); err != nil {
		return 0, err
	}
	return len(entries), s.store.InsertRawMaterials(ctx, entries)
}

func (s *UploadService) ingestShrimpPrices(ctx context.Context, r io.Reader) (int, error) {
	entries, err := excel.ReadShrimpPrices(r)
	if err != nil {
		return 0, err
	}
	dates := make([]time.Time, len(entries))
	for i, e := range entries {
		dates[i] = e.Date
	}
	if err := s.checkMonths(ctx, "precio_camaron", dates); err != nil {
		return 0, err
	}
	return len(entries), s.store.InsertShrimpPrices(ctx, entries)
}

func (s *UploadService) ingestShareOfWallet(ctx context.Context, r io.Reader) (int, error) {
	entries, err := excel.ReadShareOfWallet(r)
	if err != nil {
		return 0, err
	}
	dates := make([]time.Time, len(entries))
	for i, e := range entries {
		dates[i] = e.Period
	}
	if err := s.checkMonths(ctx, "sow", dates); err != nil {
		return 0, err
	}
	return len(entries), s.store.InsertShareOfWallet(ctx, entries)
}

func (s *UploadService) ingestExports(ctx context.Context, r io.Reader) (int, error) {
	entries, err := excel.ReadExports(r)
	if err != nil {
		return 0, err
	}
	dates := make([]time.Time, len(entries))
	for i, e := range entries {
		dates[i] = e.Date
	}
	if err := s.checkMonths(ctx, "exportacion", dates); err != nil {
		return 0, err
	}
	return len(entries), s.store.InsertExports(ctx, entries)
}

// checkMonths enforces the month-serialization invariants for every month
// the workbook touches: target month empty, previous month loaded.
func (s *UploadService) checkMonths(ctx context.Context, table string, dates []time.Time) error {
	if len(dates) == 0 {
		return errors.InvalidInput("workbook has no data rows")
	}

	seen := make(map[time.Time]bool)
	for _, d := range dates {
		month := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		if seen[month] {
			continue
		}
		seen[month] = true

		has, err := s.store.MonthHasData(ctx, table, month)
		if err != nil {
			return err
		}
		if has {
			return errors.UploadConflict(fmt.Sprintf(
				"%s already has data for %s", table, month.Format("2006-01")))
		}

		previous := month.AddDate(0, -1, 0)
		has, err = s.store.MonthHasData(ctx, table, previous)
		if err != nil {
			return err
		}
		if !has {
			return errors.UploadConflict(fmt.Sprintf(
				"%s has no data for previous month %s", table, previous.Format("2006-01")))
		}
	}
	return nil
}
