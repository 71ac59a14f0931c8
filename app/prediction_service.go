package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"shrimp/domain/feature"
	"shrimp/domain/market"
	"shrimp/domain/schema"
	"shrimp/internal/errors"
	"shrimp/internal/pipeline"
	"shrimp/ports"
)

// PredictionResult is one complete forecast: four week tables plus their
// rollups, produced from history strictly before the target date.
type PredictionResult struct {
	RequestID   string                           `json:"request_id"`
	TargetDate  time.Time                        `json:"target_date"`
	Weeks       []pipeline.WeekTable             `json:"weeks"`
	Totals      []pipeline.SummaryRow            `json:"totals"`
	StageTotals map[string][]pipeline.SummaryRow `json:"stage_totals"`
}

// PredictionService orchestrates the feature pipeline end to end: fetch,
// align, pivot, merge, resample, scale, infer, unscale, disaggregate.
type PredictionService struct {
	store ports.TransactionStore
	model ports.Inferencer
	sch   *schema.Schema

	mu    sync.RWMutex
	cache map[time.Time]*PredictionResult
}

// NewPredictionService creates a new prediction service
func NewPredictionService(store ports.TransactionStore, model ports.Inferencer, sch *schema.Schema) *PredictionService {
	return &PredictionService{
		store: store,
		model: model,
		sch:   sch,
		cache: make(map[time.Time]*PredictionResult),
	}
}

// DateBounds returns the valid target-date range: the model needs four full
// weeks of history, so the lower bound sits four weeks past the first sale.
func (s *PredictionService) DateBounds(ctx context.Context) (min, max time.Time, err error) {
	min, max, err = s.store.MinMaxSaleDate(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return min.AddDate(0, 0, 7*pipeline.LagWeeks), max, nil
}

// VerifyClientSnapshot checks the live client enumeration against the
// training snapshot. Run at startup and before every prediction: a drifted
// client set silently scrambles slot assignment otherwise.
func (s *PredictionService) VerifyClientSnapshot(ctx context.Context) error {
	live, err := s.store.ListClients(ctx)
	if err != nil {
		return err
	}
	return s.sch.VerifyClients(live)
}

// Clients returns the training snapshot's client enumeration in slot order.
func (s *PredictionService) Clients() []schema.Client {
	return s.sch.Clients
}

// Run produces the four-week forecast for targetDate. Results are memoized
// per target date until the next upload invalidates them.
func (s *PredictionService) Run(ctx context.Context, targetDate time.Time) (*PredictionResult, error) {
	target := feature.Day(targetDate)

	s.mu.RLock()
	cached, ok := s.cache[target]
	s.mu.RUnlock()
	if ok {
		log.Printf("[prediction] cache hit for %s", target.Format("2006-01-02"))
		return cached, nil
	}

	started := time.Now()
	requestID := uuid.New().String()
	log.Printf("[prediction] %s: running for target %s", requestID, target.Format("2006-01-02"))

	if err := s.checkBounds(ctx, target); err != nil {
		return nil, err
	}
	if err := s.VerifyClientSnapshot(ctx); err != nil {
		return nil, err
	}

	// History window: four weeks back, up to yesterday. The target date
	// itself never leaks into the features.
	from := target.AddDate(0, 0, -7*pipeline.LagWeeks)
	to := target.AddDate(0, 0, -1)

	merged, err := s.buildFeatures(ctx, from, to)
	if err != nil {
		return nil, err
	}

	ordered, err := merged.Select(s.sch.ColumnsOrder)
	if err != nil {
		return nil, err
	}
	lagWeeks, err := pipeline.LastWeeks(pipeline.ResampleWeekly(ordered, s.sch.AggPolicy), pipeline.LagWeeks)
	if err != nil {
		return nil, err
	}

	// The scalers fit on the single flattened 1x(4*F) row, never on the
	// 4xF matrix: with one sample every flattened column is degenerate, so
	// the scaled input is all zeros and the inverse adds each column's
	// week-specific historical value back. That is the trained model's
	// input contract and the output parity depends on it.
	_, flatIn := pipeline.Flatten(lagWeeks, s.sch.ColumnsOrder)
	inScaler, err := pipeline.FitMinMax([][]float64{flatIn})
	if err != nil {
		return nil, err
	}
	scaled, err := inScaler.Transform([][]float64{flatIn})
	if err != nil {
		return nil, err
	}

	output, err := s.model.Infer(ctx, pipeline.ToTensor(reshapeRow(scaled[0], s.sch.InputWidth())))
	if err != nil {
		return nil, err
	}

	flatOut, err := s.flattenOutput(output)
	if err != nil {
		return nil, err
	}

	// The inverse scaler is fit on the flattened output-column row of the
	// same lag window, so each predicted cell lands on top of that week's
	// own history.
	outFrame, err := merged.Select(s.sch.ColumnsOut)
	if err != nil {
		return nil, err
	}
	outWeeks, err := pipeline.LastWeeks(pipeline.ResampleWeekly(outFrame, s.sch.AggPolicy), pipeline.LagWeeks)
	if err != nil {
		return nil, err
	}
	_, flatHist := pipeline.Flatten(outWeeks, s.sch.ColumnsOut)
	outScaler, err := pipeline.FitMinMax([][]float64{flatHist})
	if err != nil {
		return nil, err
	}
	unscaled, err := outScaler.InverseTransform([][]float64{flatOut})
	if err != nil {
		return nil, err
	}

	weeks, err := pipeline.Disaggregate(unscaled[0], s.sch, target)
	if err != nil {
		return nil, err
	}

	result := &PredictionResult{
		RequestID:   requestID,
		TargetDate:  target,
		Weeks:       weeks,
		Totals:      pipeline.WeeklyTotals(weeks),
		StageTotals: make(map[string][]pipeline.SummaryRow, len(s.sch.LineGroups)),
	}
	for _, lg := range s.sch.LineGroups {
		result.StageTotals[lg] = pipeline.LineGroupTotals(weeks, lg)
	}

	s.mu.Lock()
	s.cache[target] = result
	s.mu.Unlock()

	log.Printf("[prediction] %s: done in %s", requestID, time.Since(started).Round(time.Millisecond))
	return result, nil
}

// Invalidate drops every memoized forecast. Called after any upload commits.
func (s *PredictionService) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[time.Time]*PredictionResult)
	s.mu.Unlock()
}

func (s *PredictionService) checkBounds(ctx context.Context, target time.Time) error {
	min, max, err := s.DateBounds(ctx)
	if err != nil {
		return err
	}
	if target.Before(feature.Day(min)) || target.After(feature.Day(max)) {
		return errors.InvalidInput(fmt.Sprintf("target date %s outside valid range [%s, %s]",
			target.Format("2006-01-02"), min.Format("2006-01-02"), max.Format("2006-01-02")))
	}
	return nil
}

// buildFeatures fetches the five sources concurrently and merges their
// frames onto the sales calendar.
func (s *PredictionService) buildFeatures(ctx context.Context, from, to time.Time) (*feature.Frame, error) {
	var (
		sales        []market.SaleRecord
		share        []market.ShareOfWalletRecord
		rawMaterials []market.RawMaterialRecord
		prices       []market.ShrimpPriceRecord
		exports      []market.ExportRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sales, err = s.store.FetchSales(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		share, err = s.store.FetchShareOfWallet(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		rawMaterials, err = s.store.FetchRawMaterials(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		prices, err = s.store.FetchShrimpPrices(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		exports, err = s.store.FetchExports(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	salesFrame, err := pipeline.BuildSalesFrame(sales, s.sch, from, to)
	if err != nil {
		return nil, err
	}
	shareFrame, err := pipeline.BuildShareFrame(share, s.sch)
	if err != nil {
		return nil, err
	}
	exportFrame := pipeline.BuildExportFrame(exports, from, to)
	rawFrame := pipeline.BuildRawMaterialFrame(rawMaterials, from, to)
	priceFrame := pipeline.BuildShrimpPriceFrame(prices, from, to)

	return pipeline.MergeSources(salesFrame, shareFrame, exportFrame, rawFrame, priceFrame), nil
}

// flattenOutput accepts the model's output as either a (1, lags, width)
// tensor or a single flattened row, returning the week-major flat vector.
func (s *PredictionService) flattenOutput(t ports.Tensor) ([]float64, error) {
	width := s.sch.OutputWidth()
	if t.Samples != 1 || len(t.Values) != pipeline.LagWeeks*width {
		return nil, errors.SchemaDrift(fmt.Sprintf(
			"model output shape (%d,%d,%d) does not match %d weeks x %d output columns",
			t.Samples, t.Lags, t.Features, pipeline.LagWeeks, width))
	}
	return t.Values, nil
}

// reshapeRow slices a week-major flat row into per-week rows for the tensor.
func reshapeRow(flat []float64, width int) [][]float64 {
	rows := make([][]float64, 0, len(flat)/width)
	for i := 0; i+width <= len(flat); i += width {
		rows = append(rows, flat[i:i+width])
	}
	return rows
}
