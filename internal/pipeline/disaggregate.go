package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"shrimp/domain/schema"
	"shrimp/internal/errors"
)

// WeekTable is one forecast week pivoted from wide column keys into a
// (client x family-line) table for display and export.
type WeekTable struct {
	Week    int         `json:"week"`
	Date    time.Time   `json:"date"`
	Clients []string    `json:"clients"`
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// Total sums every cell of the table.
func (w WeekTable) Total() float64 {
	total := 0.0
	for _, row := range w.Values {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// LineGroupTotal sums the cells of every column carrying the line-group tag.
func (w WeekTable) LineGroupTotal(lineGroup string) float64 {
	total := 0.0
	for ci, col := range w.Columns {
		if !strings.Contains(col, lineGroup) {
			continue
		}
		for _, row := range w.Values {
			total += row[ci]
		}
	}
	return total
}

// SummaryRow is one week of a rollup summary.
type SummaryRow struct {
	Week      int       `json:"week"`
	Date      time.Time `json:"date"`
	TotalTons float64   `json:"total_tons"`
}

// Disaggregate splits the inverse-scaled flat output vector into LagWeeks
// equal segments, labels each with the canonical output columns, and pivots
// every week into a (client name x family-line) table using the training
// snapshot's slot mapping. Week 1 starts at the target date, each following
// week one calendar week later.
func Disaggregate(flat []float64, sch *schema.Schema, targetDate time.Time) ([]WeekTable, error) {
	width := sch.OutputWidth()
	if len(flat) != LagWeeks*width {
		return nil, errors.SchemaDrift(fmt.Sprintf(
			"model output has %d values, expected %d weeks x %d output columns", len(flat), LagWeeks, width))
	}

	familyLines, slots, flOf, err := splitOutputColumns(sch.ColumnsOut)
	if err != nil {
		return nil, err
	}

	flIdx := make(map[string]int, len(familyLines))
	for i, fl := range familyLines {
		flIdx[fl] = i
	}

	weeks := make([]WeekTable, LagWeeks)
	for w := 0; w < LagWeeks; w++ {
		table := WeekTable{
			Week:    w + 1,
			Date:    targetDate.AddDate(0, 0, 7*w),
			Clients: make([]string, schema.ClientSlots),
			Columns: familyLines,
			Values:  make([][]float64, schema.ClientSlots),
		}
		for slot := 1; slot <= schema.ClientSlots; slot++ {
			name, err := sch.ClientName(slot)
			if err != nil {
				// Slots beyond the snapshot keep their numeric label.
				name = strconv.Itoa(slot)
			}
			table.Clients[slot-1] = name
			table.Values[slot-1] = make([]float64, len(familyLines))
		}

		segment := flat[w*width : (w+1)*width]
		for i, v := range segment {
			table.Values[slots[i]-1][flIdx[flOf[i]]] = v
		}
		weeks[w] = table
	}

	return weeks, nil
}

// Reflatten is the inverse of Disaggregate: it reassembles the flat output
// vector in canonical column order, week-major.
func Reflatten(weeks []WeekTable, sch *schema.Schema) ([]float64, error) {
	width := sch.OutputWidth()
	_, slots, flOf, err := splitOutputColumns(sch.ColumnsOut)
	if err != nil {
		return nil, err
	}

	flat := make([]float64, 0, len(weeks)*width)
	for _, week := range weeks {
		flIdx := make(map[string]int, len(week.Columns))
		for i, fl := range week.Columns {
			flIdx[fl] = i
		}
		for i := range sch.ColumnsOut {
			flat = append(flat, week.Values[slots[i]-1][flIdx[flOf[i]]])
		}
	}
	return flat, nil
}

// WeeklyTotals computes the per-week grand total across all clients and
// family-lines.
func WeeklyTotals(weeks []WeekTable) []SummaryRow {
	out := make([]SummaryRow, len(weeks))
	for i, w := range weeks {
		out[i] = SummaryRow{Week: w.Week, Date: w.Date, TotalTons: w.Total()}
	}
	return out
}

// LineGroupTotals computes the per-week subtotal for one line-group tag.
func LineGroupTotals(weeks []WeekTable, lineGroup string) []SummaryRow {
	out := make([]SummaryRow, len(weeks))
	for i, w := range weeks {
		out[i] = SummaryRow{Week: w.Week, Date: w.Date, TotalTons: w.LineGroupTotal(lineGroup)}
	}
	return out
}

// splitOutputColumns parses canonical output keys of the form
// FAMILY_LINE_slot into the unique family-line prefixes (first-appearance
// order), plus per-column slot numbers and family-line keys.
func splitOutputColumns(columns []string) (familyLines []string, slots []int, flOf []string, err error) {
	seen := make(map[string]bool)
	slots = make([]int, len(columns))
	flOf = make([]string, len(columns))
	for i, col := range columns {
		cut := strings.LastIndex(col, "_")
		if cut <= 0 || cut == len(col)-1 {
			return nil, nil, nil, errors.SchemaDrift(fmt.Sprintf("output column %s has no slot suffix", col))
		}
		slot, convErr := strconv.Atoi(col[cut+1:])
		if convErr != nil || slot < 1 || slot > schema.ClientSlots {
			return nil, nil, nil, errors.SchemaDrift(fmt.Sprintf("output column %s has invalid slot suffix", col))
		}
		slots[i] = slot

		fl := col[:cut]
		flOf[i] = fl
		if !seen[fl] {
			seen[fl] = true
			familyLines = append(familyLines, fl)
		}
	}
	return familyLines, slots, flOf, nil
}
