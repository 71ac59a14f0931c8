package pipeline

import (
	"time"

	"shrimp/domain/feature"
)

// MergeSources left-joins the per-source wide tables into one feature table.
// The sales frame is the anchor: its dates define which rows exist. The
// share-of-wallet frame carries monthly periods and joins on calendar month;
// the remaining frames join on exact date. Unmatched cells stay 0, so the
// final table never has holes.
func MergeSources(sales, share, exports, rawMaterials, prices *feature.Frame) *feature.Frame {
	columns := make([]string, 0,
		sales.Width()+share.Width()+exports.Width()+rawMaterials.Width()+prices.Width())
	columns = append(columns, sales.Columns...)
	columns = append(columns, share.Columns...)
	columns = append(columns, exports.Columns...)
	columns = append(columns, rawMaterials.Columns...)
	columns = append(columns, prices.Columns...)

	out := feature.NewFrame(columns, sales.Dates)

	copyJoin(out, sales, joinByDate(sales))
	copyJoin(out, share, joinByMonth(share))
	copyJoin(out, exports, joinByDate(exports))
	copyJoin(out, rawMaterials, joinByDate(rawMaterials))
	copyJoin(out, prices, joinByDate(prices))

	return out
}

// joinByDate matches an anchor date to the source row with the same day.
func joinByDate(src *feature.Frame) func(time.Time) (int, bool) {
	return func(date time.Time) (int, bool) {
		return src.RowIndex(date)
	}
}

// joinByMonth matches an anchor date to the source row for its month.
func joinByMonth(src *feature.Frame) func(time.Time) (int, bool) {
	byMonth := make(map[int64]int, src.Len())
	for i, d := range src.Dates {
		byMonth[monthStart(d).Unix()] = i
	}
	return func(date time.Time) (int, bool) {
		i, ok := byMonth[monthStart(date).Unix()]
		return i, ok
	}
}

func copyJoin(dst, src *feature.Frame, match func(time.Time) (int, bool)) {
	offsets := make([]int, src.Width())
	for i, col := range src.Columns {
		offsets[i], _ = dst.ColumnIndex(col)
	}
	for ri, date := range dst.Dates {
		si, ok := match(date)
		if !ok {
			continue
		}
		for ci, v := range src.Values[si] {
			dst.Values[ri][offsets[ci]] = v
		}
	}
}
