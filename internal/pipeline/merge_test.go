package pipeline

import (
	"math"
	"testing"
	"time"

	"shrimp/domain/market"
	"shrimp/internal/errors"
)

func TestMergeSources_JoinsAndZeroFill(t *testing.T) {
	// Scenario: a 3-day sales window in March. Share-of-wallet carries one
	// monthly row that must fan out to every March day; prices and exports
	// join on exact date, with gaps staying zero after the merge.
	sch := newTestSchema()
	from := utcDate(2024, time.March, 1)
	to := utcDate(2024, time.March, 3)

	sales := []market.SaleRecord{
		{Date: from, ClientCode: 2100001, Family: "CLASSIC", LineGroup: "SEEDING", Tons: 10},
		{Date: to, ClientCode: 2100002, Family: "CLASSIC", LineGroup: "VOLUMA", Tons: 4},
	}
	salesFrame, err := BuildSalesFrame(sales, sch, from, to)
	if err != nil {
		t.Fatalf("BuildSalesFrame failed: %v", err)
	}

	share := []market.ShareOfWalletRecord{
		{Period: utcDate(2024, time.March, 1), ClientCode: 2100001, PotentialGroup: 500, NicovitaShare: 0.4, MaxAchievableShare: 0.7},
	}
	shareFrame, err := BuildShareFrame(share, sch)
	if err != nil {
		t.Fatalf("BuildShareFrame failed: %v", err)
	}

	exports := []market.ExportRecord{
		{Date: utcDate(2024, time.March, 2), TotalTons: 900, TotalFOB: 5e6},
	}
	exportFrame := BuildExportFrame(exports, from, to)

	raw := []market.RawMaterialRecord{
		{Date: from, USDSoy: 1200, TonsSoy: 3},
	}
	rawFrame := BuildRawMaterialFrame(raw, from, to)

	prices := []market.ShrimpPriceRecord{
		{Date: utcDate(2024, time.February, 20), Prices: [6]float64{5000, 4600, 4200, 3800, 3400, 3000}},
	}
	priceFrame := BuildShrimpPriceFrame(prices, from, to)

	merged := MergeSources(salesFrame, shareFrame, exportFrame, rawFrame, priceFrame)

	if merged.Len() != 3 {
		t.Fatalf("Expected 3 anchor rows, got %d", merged.Len())
	}
	if merged.Width() != len(sch.ColumnsOrder) {
		t.Fatalf("Expected %d columns, got %d", len(sch.ColumnsOrder), merged.Width())
	}

	// Sales on their days, zero elsewhere.
	if got := merged.At(0, "CLASSIC_SEEDING_1"); got != 10 {
		t.Errorf("Day 1 sales: expected 10, got %.1f", got)
	}
	if got := merged.At(1, "CLASSIC_SEEDING_1"); got != 0 {
		t.Errorf("Day 2 sales: expected 0, got %.1f", got)
	}

	// The monthly share row joins onto every day of March.
	for row := 0; row < 3; row++ {
		if got := merged.At(row, "NICOVITA_1"); got != 0.4 {
			t.Errorf("Day %d share: expected 0.4, got %.2f", row+1, got)
		}
	}

	// Exports only on March 2.
	if got := merged.At(1, ColExportTons); got != 900 {
		t.Errorf("Export tons: expected 900, got %.1f", got)
	}
	if got := merged.At(0, ColExportTons); got != 0 {
		t.Errorf("Export tons day 1: expected 0, got %.1f", got)
	}

	// The anchor price list published before the window covers every day.
	for row := 0; row < 3; row++ {
		if got := merged.At(row, "30-40 (29 g)"); got != 5000 {
			t.Errorf("Day %d price: expected anchored 5000, got %.1f", row+1, got)
		}
	}

	// Raw materials on day 1 only.
	if got := merged.At(0, ColUSDSoy); got != 1200 {
		t.Errorf("Soy USD: expected 1200, got %.1f", got)
	}
}

func TestBuildSalesFrame_UnknownClientIsSchemaDrift(t *testing.T) {
	sch := newTestSchema()
	from := utcDate(2024, time.March, 1)

	sales := []market.SaleRecord{
		{Date: from, ClientCode: 2100099, Family: "CLASSIC", LineGroup: "SEEDING", Tons: 1},
	}
	_, err := BuildSalesFrame(sales, sch, from, from)
	if !errors.IsCode(err, errors.CodeSchemaDrift) {
		t.Fatalf("Expected SCHEMA_DRIFT, got %v", err)
	}
}

func TestBuildShareFrame_MetricPolicies(t *testing.T) {
	// Two rows for the same client and month: the potential group sums, the
	// ratio metrics average.
	sch := newTestSchema()
	period := utcDate(2024, time.March, 1)

	records := []market.ShareOfWalletRecord{
		{Period: period, ClientCode: 2100003, PotentialGroup: 100, NicovitaShare: 0.2, MaxAchievableShare: 0.5},
		{Period: utcDate(2024, time.March, 15), ClientCode: 2100003, PotentialGroup: 50, NicovitaShare: 0.4, MaxAchievableShare: 0.7},
	}

	frame, err := BuildShareFrame(records, sch)
	if err != nil {
		t.Fatalf("BuildShareFrame failed: %v", err)
	}

	if frame.Len() != 1 {
		t.Fatalf("Expected one monthly row, got %d", frame.Len())
	}
	if got := frame.At(0, "POTENCIAL_GRUPO_3"); got != 150 {
		t.Errorf("Expected summed potential 150, got %.1f", got)
	}
	if got := frame.At(0, "NICOVITA_3"); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("Expected averaged share 0.3, got %.2f", got)
	}
}
