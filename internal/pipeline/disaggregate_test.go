package pipeline

import (
	"testing"
	"time"

	"shrimp/internal/errors"
)

func TestDisaggregate_WeekDatesAndClientLabels(t *testing.T) {
	sch := newTestSchema()
	target := utcDate(2024, time.March, 4)

	flat := make([]float64, LagWeeks*sch.OutputWidth())
	for i := range flat {
		flat[i] = float64(i)
	}

	weeks, err := Disaggregate(flat, sch, target)
	if err != nil {
		t.Fatalf("Disaggregate failed: %v", err)
	}

	if len(weeks) != LagWeeks {
		t.Fatalf("Expected %d weeks, got %d", LagWeeks, len(weeks))
	}
	for i, week := range weeks {
		want := target.AddDate(0, 0, 7*i)
		if !week.Date.Equal(want) {
			t.Errorf("Week %d: expected date %s, got %s", i+1, want.Format("2006-01-02"), week.Date.Format("2006-01-02"))
		}
		if week.Week != i+1 {
			t.Errorf("Expected week number %d, got %d", i+1, week.Week)
		}
	}

	first := weeks[0]
	if len(first.Clients) != 7 {
		t.Fatalf("Expected 7 client rows, got %d", len(first.Clients))
	}
	if first.Clients[0] != "Camaronera Uno" || first.Clients[6] != "Camaronera Siete" {
		t.Errorf("Client rows not labeled from snapshot: %v", first.Clients)
	}
	if len(first.Columns) != 2 {
		t.Errorf("Expected 2 family-line columns, got %v", first.Columns)
	}

	// ColumnsOut is slot-major, so the first two values land in slot 1's row.
	if first.Values[0][0] != 0 || first.Values[0][1] != 1 {
		t.Errorf("Slot 1 row mismatch: %v", first.Values[0])
	}
	if first.Values[6][1] != 13 {
		t.Errorf("Slot 7 row mismatch: %v", first.Values[6])
	}
}

func TestDisaggregate_WrongLengthIsSchemaDrift(t *testing.T) {
	sch := newTestSchema()

	_, err := Disaggregate(make([]float64, 3), sch, utcDate(2024, time.March, 4))
	if !errors.IsCode(err, errors.CodeSchemaDrift) {
		t.Fatalf("Expected SCHEMA_DRIFT, got %v", err)
	}
}

func TestReflatten_InvertsDisaggregate(t *testing.T) {
	sch := newTestSchema()
	target := utcDate(2024, time.March, 4)

	flat := make([]float64, LagWeeks*sch.OutputWidth())
	for i := range flat {
		flat[i] = float64(i) * 1.5
	}

	weeks, err := Disaggregate(flat, sch, target)
	if err != nil {
		t.Fatalf("Disaggregate failed: %v", err)
	}
	back, err := Reflatten(weeks, sch)
	if err != nil {
		t.Fatalf("Reflatten failed: %v", err)
	}

	if len(back) != len(flat) {
		t.Fatalf("Expected %d values back, got %d", len(flat), len(back))
	}
	for i := range flat {
		if back[i] != flat[i] {
			t.Errorf("Cell %d: expected %.2f, got %.2f", i, flat[i], back[i])
		}
	}
}

func TestWeekTableTotals(t *testing.T) {
	sch := newTestSchema()
	target := utcDate(2024, time.March, 4)

	flat := make([]float64, LagWeeks*sch.OutputWidth())
	for i := range flat {
		flat[i] = 1
	}

	weeks, err := Disaggregate(flat, sch, target)
	if err != nil {
		t.Fatalf("Disaggregate failed: %v", err)
	}

	totals := WeeklyTotals(weeks)
	for _, row := range totals {
		if row.TotalTons != float64(sch.OutputWidth()) {
			t.Errorf("Week %d: expected total %d, got %.1f", row.Week, sch.OutputWidth(), row.TotalTons)
		}
	}

	// Each line group holds half of the uniform mass.
	seeding := LineGroupTotals(weeks, "SEEDING")
	for _, row := range seeding {
		if row.TotalTons != float64(sch.OutputWidth())/2 {
			t.Errorf("Week %d: expected SEEDING total %.1f, got %.1f", row.Week, float64(sch.OutputWidth())/2, row.TotalTons)
		}
	}
}
