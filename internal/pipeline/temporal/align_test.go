package temporal

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestAlignDaily_ZeroFillAdditiveSeries(t *testing.T) {
	// Scenario: sales on days 1, 1 and 3 of a five-day window. Missing days
	// mean no transactions, so they must read as zero, and same-day rows sum.
	points := []Point{
		{Date: day(1), Value: 10},
		{Date: day(1), Value: 5},
		{Date: day(3), Value: 7},
	}

	series := AlignDaily(points, day(1), day(5), AggSum, FillZero)

	if len(series.Values) != 5 {
		t.Fatalf("Expected 5 days, got %d", len(series.Values))
	}
	expected := []float64{15, 0, 7, 0, 0}
	for i, want := range expected {
		if series.Values[i] != want {
			t.Errorf("Day %d: expected %.1f, got %.1f", i+1, want, series.Values[i])
		}
	}
}

func TestAlignDaily_ForwardFillPointInTime(t *testing.T) {
	// Scenario: price lists published on days 1 and 10 of a 15-day window.
	// Days 2-9 must carry day 1's price, days 11-15 day 10's.
	points := []Point{
		{Date: day(1), Value: 100},
		{Date: day(10), Value: 120},
	}

	series := AlignDaily(points, day(1), day(15), AggLast, FillForward)

	for i := 0; i < 9; i++ {
		if series.Values[i] != 100 {
			t.Errorf("Day %d: expected 100, got %.1f", i+1, series.Values[i])
		}
	}
	for i := 9; i < 15; i++ {
		if series.Values[i] != 120 {
			t.Errorf("Day %d: expected 120, got %.1f", i+1, series.Values[i])
		}
	}
}

func TestAlignDaily_AnchorCoversWindowStart(t *testing.T) {
	// Scenario: the only publication predates the window. Forward fill must
	// seed from it rather than defaulting the whole window to zero.
	points := []Point{
		{Date: day(1), Value: 80},
	}

	series := AlignDaily(points, day(5), day(8), AggLast, FillForward)

	for i, v := range series.Values {
		if v != 80 {
			t.Errorf("Day %d: expected anchored 80, got %.1f", i+5, v)
		}
	}
}

func TestAlignDaily_LastWinsSameDay(t *testing.T) {
	// Two publications on the same day: the later stored row wins.
	points := []Point{
		{Date: day(2), Value: 100},
		{Date: day(2), Value: 110},
	}

	series := AlignDaily(points, day(1), day(3), AggLast, FillForward)

	if series.Values[1] != 110 {
		t.Errorf("Expected last-wins 110, got %.1f", series.Values[1])
	}
	if series.Values[2] != 110 {
		t.Errorf("Expected forward-filled 110, got %.1f", series.Values[2])
	}
	if series.Values[0] != 0 {
		t.Errorf("Expected 0 before first observation without anchor, got %.1f", series.Values[0])
	}
}

func TestAlignDaily_MeanAggregation(t *testing.T) {
	points := []Point{
		{Date: day(1), Value: 2},
		{Date: day(1), Value: 4},
	}

	series := AlignDaily(points, day(1), day(1), AggMean, FillZero)

	if series.Values[0] != 3 {
		t.Errorf("Expected mean 3, got %.1f", series.Values[0])
	}
}
