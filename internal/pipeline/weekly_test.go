package pipeline

import (
	"testing"
	"time"

	"shrimp/domain/feature"
	"shrimp/domain/schema"
	"shrimp/internal/errors"
)

// buildDailyFrame fills a one-column daily frame with the given value on
// every day of [from, to].
func buildDailyFrame(t *testing.T, col string, from, to time.Time, daily float64) *feature.Frame {
	t.Helper()
	frame := feature.NewFrame([]string{col}, feature.DateRange(from, to))
	for _, d := range frame.Dates {
		if err := frame.Set(d, col, daily); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	return frame
}

func TestResampleWeekly_SundayBoundaries(t *testing.T) {
	// Scenario: target date 2024-03-04 (a Monday). The four-week window runs
	// 2024-02-05 .. 2024-03-03 and resamples into exactly four weeks ending
	// on Sundays Feb 11, Feb 18, Feb 25 and Mar 3.
	from := utcDate(2024, time.February, 5)
	to := utcDate(2024, time.March, 3)
	frame := buildDailyFrame(t, "TONS", from, to, 10)
	sumOnly := func(string) schema.Agg { return schema.AggSum }

	rows := ResampleWeekly(frame, sumOnly)

	if len(rows) != 4 {
		t.Fatalf("Expected 4 weeks, got %d", len(rows))
	}
	wantEnds := []time.Time{
		utcDate(2024, time.February, 11),
		utcDate(2024, time.February, 18),
		utcDate(2024, time.February, 25),
		utcDate(2024, time.March, 3),
	}
	for i, want := range wantEnds {
		if !rows[i].WeekEnd.Equal(want) {
			t.Errorf("Week %d: expected end %s, got %s", i+1, want.Format("2006-01-02"), rows[i].WeekEnd.Format("2006-01-02"))
		}
		if rows[i].Values[0] != 70 {
			t.Errorf("Week %d: expected sum 70, got %.1f", i+1, rows[i].Values[0])
		}
	}
}

func TestResampleWeekly_PartialWeekAndMean(t *testing.T) {
	// A window starting mid-week yields a short first bucket; mean columns
	// average over the days actually present.
	from := utcDate(2024, time.February, 9) // Friday
	to := utcDate(2024, time.February, 18)
	frame := buildDailyFrame(t, "PRICE", from, to, 5)
	meanOnly := func(string) schema.Agg { return schema.AggMean }

	rows := ResampleWeekly(frame, meanOnly)

	if len(rows) != 2 {
		t.Fatalf("Expected 2 weeks, got %d", len(rows))
	}
	for i, row := range rows {
		if row.Values[0] != 5 {
			t.Errorf("Week %d: expected mean 5, got %.1f", i+1, row.Values[0])
		}
	}
}

func TestLastWeeks_RejectsShortHistory(t *testing.T) {
	rows := []WeeklyRow{
		{WeekEnd: utcDate(2024, time.February, 11)},
		{WeekEnd: utcDate(2024, time.February, 18)},
		{WeekEnd: utcDate(2024, time.February, 25)},
	}

	_, err := LastWeeks(rows, LagWeeks)
	if !errors.IsCode(err, errors.CodeInsufficientHistory) {
		t.Fatalf("Expected INSUFFICIENT_HISTORY, got %v", err)
	}
}

func TestLastWeeks_KeepsMostRecent(t *testing.T) {
	rows := make([]WeeklyRow, 6)
	for i := range rows {
		rows[i] = WeeklyRow{WeekEnd: utcDate(2024, time.January, 7+7*i), Values: []float64{float64(i)}}
	}

	kept, err := LastWeeks(rows, LagWeeks)
	if err != nil {
		t.Fatalf("LastWeeks failed: %v", err)
	}
	if len(kept) != LagWeeks {
		t.Fatalf("Expected %d weeks, got %d", LagWeeks, len(kept))
	}
	if kept[0].Values[0] != 2 || kept[3].Values[0] != 5 {
		t.Errorf("Expected weeks 3..6 kept, got first %.0f last %.0f", kept[0].Values[0], kept[3].Values[0])
	}
}

func TestFlatten_WeekMajorWithOffsetPrefixes(t *testing.T) {
	rows := []WeeklyRow{
		{WeekEnd: utcDate(2024, time.February, 11), Values: []float64{100, 1}},
		{WeekEnd: utcDate(2024, time.February, 18), Values: []float64{120, 2}},
		{WeekEnd: utcDate(2024, time.February, 25), Values: []float64{90, 3}},
		{WeekEnd: utcDate(2024, time.March, 3), Values: []float64{150, 4}},
	}

	names, values := Flatten(rows, []string{"TONS", "PRICE"})

	if len(names) != 8 || len(values) != 8 {
		t.Fatalf("Expected 8 flattened cells, got %d names, %d values", len(names), len(values))
	}
	if names[0] != "W1_TONS" || names[1] != "W1_PRICE" || names[6] != "W4_TONS" {
		t.Errorf("Unexpected flattened names: %v", names)
	}
	wantValues := []float64{100, 1, 120, 2, 90, 3, 150, 4}
	for i, want := range wantValues {
		if values[i] != want {
			t.Errorf("Cell %d: expected %.1f, got %.1f", i, want, values[i])
		}
	}
}
