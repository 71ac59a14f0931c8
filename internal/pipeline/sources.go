package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"shrimp/domain/feature"
	"shrimp/domain/market"
	"shrimp/domain/schema"
	"shrimp/internal/pipeline/temporal"
)

// Raw-material and export wide column names, as the model was trained with.
const (
	ColUSDLecithin  = "TOTAL_USD_LECITINA"
	ColTonsLecithin = "LIBRAS_NETO_LECITINA"
	ColUSDSoy       = "TOTAL_USD_SOYA"
	ColTonsSoy      = "LIBRAS_NETO_SOYA"
	ColUSDWheat     = "TOTAL_USD_TRIGO"
	ColTonsWheat    = "LIBRAS_NETO_TRIGO"

	ColExportTons = "TOTAL_LB"
	ColExportFOB  = "TOTAL_FOB"
)

// RawMaterialColumns in canonical order.
var RawMaterialColumns = []string{
	ColUSDLecithin, ColTonsLecithin,
	ColUSDSoy, ColTonsSoy,
	ColUSDWheat, ColTonsWheat,
}

// ExportColumns in canonical order.
var ExportColumns = []string{ColExportTons, ColExportFOB}

// BuildSalesFrame widens sales transactions into the canonical
// (family-line x client-slot) daily table. Tonnage for the same
// (date, key) sums; every absent combination is zero.
func BuildSalesFrame(records []market.SaleRecord, sch *schema.Schema, from, to time.Time) (*feature.Frame, error) {
	rows := make([]NarrowRow, 0, len(records))
	for _, r := range records {
		slot, err := schema.SlotForClientCode(r.ClientCode)
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("%s_%s_%d", r.Family, r.LineGroup, slot)
		rows = append(rows, NarrowRow{Date: r.Date, Key: key, Value: r.Tons})
	}

	sumOnly := func(string) schema.Agg { return schema.AggSum }
	return PivotWide(rows, sch.SalesColumns(), feature.DateRange(from, to), sumOnly)
}

// BuildShareFrame widens monthly share-of-wallet rows into the canonical
// (metric x client-slot) table, one row per period month. Potential-group
// values sum within a bucket; the two share ratios average.
func BuildShareFrame(records []market.ShareOfWalletRecord, sch *schema.Schema) (*feature.Frame, error) {
	periodSet := make(map[int64]time.Time)
	rows := make([]NarrowRow, 0, len(records)*3)
	for _, r := range records {
		slot, err := schema.SlotForClientCode(r.ClientCode)
		if err != nil {
			return nil, err
		}
		period := monthStart(r.Period)
		periodSet[period.Unix()] = period

		rows = append(rows,
			NarrowRow{Date: period, Key: fmt.Sprintf("%s_%d", schema.MetricPotentialGroup, slot), Value: r.PotentialGroup},
			NarrowRow{Date: period, Key: fmt.Sprintf("%s_%d", schema.MetricNicovitaShare, slot), Value: r.NicovitaShare},
			NarrowRow{Date: period, Key: fmt.Sprintf("%s_%d", schema.MetricMaxAchievableShare, slot), Value: r.MaxAchievableShare},
		)
	}

	periods := make([]time.Time, 0, len(periodSet))
	for _, p := range periodSet {
		periods = append(periods, p)
	}
	sortDates(periods)

	policy := func(column string) schema.Agg {
		// Metric prefix decides: the potential-group count sums, ratios mean.
		if strings.HasPrefix(column, schema.MetricPotentialGroup) {
			return schema.AggSum
		}
		return schema.AggMean
	}
	return PivotWide(rows, sch.ShareColumns(), periods, policy)
}

// BuildRawMaterialFrame aligns raw-material cost rows onto the daily grid.
// Additive series: missing days are zero.
func BuildRawMaterialFrame(records []market.RawMaterialRecord, from, to time.Time) *feature.Frame {
	grid := feature.DateRange(from, to)
	out := feature.NewFrame(RawMaterialColumns, grid)

	columns := map[string]func(market.RawMaterialRecord) float64{
		ColUSDLecithin:  func(r market.RawMaterialRecord) float64 { return r.USDLecithin },
		ColTonsLecithin: func(r market.RawMaterialRecord) float64 { return r.TonsLecithin },
		ColUSDSoy:       func(r market.RawMaterialRecord) float64 { return r.USDSoy },
		ColTonsSoy:      func(r market.RawMaterialRecord) float64 { return r.TonsSoy },
		ColUSDWheat:     func(r market.RawMaterialRecord) float64 { return r.USDWheat },
		ColTonsWheat:    func(r market.RawMaterialRecord) float64 { return r.TonsWheat },
	}

	for col, value := range columns {
		points := make([]temporal.Point, len(records))
		for i, r := range records {
			points[i] = temporal.Point{Date: r.Date, Value: value(r)}
		}
		series := temporal.AlignDaily(points, from, to, temporal.AggSum, temporal.FillZero)
		ci, _ := out.ColumnIndex(col)
		for i := range series.Dates {
			out.Values[i][ci] = series.Values[i]
		}
	}

	return out
}

// BuildShrimpPriceFrame aligns point-in-time price lists onto the daily grid
// with backward fill: each day carries the most recently published list, and
// the anchor row fetched before the window covers the window start. Multiple
// lists on one day resolve last-wins in date-ascending order.
func BuildShrimpPriceFrame(records []market.ShrimpPriceRecord, from, to time.Time) *feature.Frame {
	grid := feature.DateRange(from, to)
	out := feature.NewFrame(market.ShrimpPriceBrackets, grid)

	for bracket, col := range market.ShrimpPriceBrackets {
		points := make([]temporal.Point, len(records))
		for i, r := range records {
			points[i] = temporal.Point{Date: r.Date, Value: r.Prices[bracket]}
		}
		series := temporal.AlignDaily(points, from, to, temporal.AggLast, temporal.FillForward)
		ci, _ := out.ColumnIndex(col)
		for i := range series.Dates {
			out.Values[i][ci] = series.Values[i]
		}
	}

	return out
}

// BuildExportFrame aligns daily export totals onto the grid. Additive
// series: missing days are zero.
func BuildExportFrame(records []market.ExportRecord, from, to time.Time) *feature.Frame {
	grid := feature.DateRange(from, to)
	out := feature.NewFrame(ExportColumns, grid)

	tons := make([]temporal.Point, len(records))
	fob := make([]temporal.Point, len(records))
	for i, r := range records {
		tons[i] = temporal.Point{Date: r.Date, Value: r.TotalTons}
		fob[i] = temporal.Point{Date: r.Date, Value: r.TotalFOB}
	}

	tonSeries := temporal.AlignDaily(tons, from, to, temporal.AggSum, temporal.FillZero)
	fobSeries := temporal.AlignDaily(fob, from, to, temporal.AggSum, temporal.FillZero)
	tonsIdx, _ := out.ColumnIndex(ColExportTons)
	fobIdx, _ := out.ColumnIndex(ColExportFOB)
	for i := range tonSeries.Dates {
		out.Values[i][tonsIdx] = tonSeries.Values[i]
		out.Values[i][fobIdx] = fobSeries.Values[i]
	}

	return out
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
