package app

import (
	"context"
	"math"
	"testing"
	"time"

	"shrimp/domain/market"
	"shrimp/domain/schema"
	"shrimp/internal/errors"
	"shrimp/internal/pipeline"
	"shrimp/ports"
)

func testSchema() *schema.Schema {
	sch := &schema.Schema{
		Version:    "test",
		Families:   []string{"CLASSIC"},
		LineGroups: []string{"SEEDING", "VOLUMA"},
		Clients: []schema.Client{
			{Code: 2100001, DisplayName: "Camaronera Uno"},
			{Code: 2100002, DisplayName: "Camaronera Dos"},
			{Code: 2100003, DisplayName: "Camaronera Tres"},
			{Code: 2100004, DisplayName: "Camaronera Cuatro"},
			{Code: 2100005, DisplayName: "Camaronera Cinco"},
			{Code: 2100006, DisplayName: "Camaronera Seis"},
			{Code: 2100007, DisplayName: "Camaronera Siete"},
		},
	}
	sales := sch.SalesColumns()
	share := sch.ShareColumns()
	prices := market.ShrimpPriceBrackets

	sch.ColumnsOrder = append(append(append(append(
		append([]string{}, sales...), share...), pipeline.ExportColumns...), pipeline.RawMaterialColumns...), prices...)
	sch.ColumnsOut = sales
	sch.ColumnsMean = append(append([]string{}, share...), prices...)
	return sch
}

// fakeStore serves a fixed year of synthetic history.
type fakeStore struct {
	clients    []schema.Client
	minDate    time.Time
	maxDate    time.Time
	fetchCalls int
}

func newFakeStore(sch *schema.Schema) *fakeStore {
	return &fakeStore{
		clients: sch.Clients,
		minDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		maxDate: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) FetchSales(ctx context.Context, from, to time.Time) ([]market.SaleRecord, error) {
	f.fetchCalls++
	var out []market.SaleRecord
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out,
			market.SaleRecord{Date: d, ClientCode: 2100001, Family: "CLASSIC", LineGroup: "SEEDING", Tons: 10 + float64(d.Day())},
			market.SaleRecord{Date: d, ClientCode: 2100004, Family: "CLASSIC", LineGroup: "VOLUMA", Tons: 5},
		)
	}
	return out, nil
}

func (f *fakeStore) FetchRawMaterials(ctx context.Context, from, to time.Time) ([]market.RawMaterialRecord, error) {
	return []market.RawMaterialRecord{{Date: from, USDSoy: 1200, TonsSoy: 4}}, nil
}

func (f *fakeStore) FetchShareOfWallet(ctx context.Context, from, to time.Time) ([]market.ShareOfWalletRecord, error) {
	return []market.ShareOfWalletRecord{
		{Period: time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC), ClientCode: 2100001, PotentialGroup: 300, NicovitaShare: 0.4, MaxAchievableShare: 0.8},
	}, nil
}

func (f *fakeStore) FetchShrimpPrices(ctx context.Context, from, to time.Time) ([]market.ShrimpPriceRecord, error) {
	return []market.ShrimpPriceRecord{
		{Date: from.AddDate(0, 0, -3), Prices: [6]float64{5000, 4600, 4200, 3800, 3400, 3000}},
	}, nil
}

func (f *fakeStore) FetchExports(ctx context.Context, from, to time.Time) ([]market.ExportRecord, error) {
	return []market.ExportRecord{{Date: from, TotalTons: 800, TotalFOB: 4e6}}, nil
}

func (f *fakeStore) ListClients(ctx context.Context) ([]schema.Client, error) {
	return f.clients, nil
}

func (f *fakeStore) MinMaxSaleDate(ctx context.Context) (time.Time, time.Time, error) {
	return f.minDate, f.maxDate, nil
}

func (f *fakeStore) FetchHistoric(ctx context.Context, filter market.HistoricFilter) ([]market.HistoricSale, []market.HistoricSale, error) {
	return nil, nil, nil
}

// fakeModel returns a constant tensor of the expected output shape and
// records the input it saw.
type fakeModel struct {
	fill      float64
	lastInput ports.Tensor
	calls     int
}

func (m *fakeModel) Infer(ctx context.Context, input ports.Tensor) (ports.Tensor, error) {
	m.calls++
	m.lastInput = input
	out := ports.NewTensor(1, input.Lags, 14)
	for i := range out.Values {
		out.Values[i] = m.fill
	}
	return out, nil
}

func TestPredictionService_Run(t *testing.T) {
	sch := testSchema()
	store := newFakeStore(sch)
	model := &fakeModel{}
	svc := NewPredictionService(store, model, sch)

	target := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	result, err := svc.Run(context.Background(), target)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Weeks) != pipeline.LagWeeks {
		t.Fatalf("Expected %d forecast weeks, got %d", pipeline.LagWeeks, len(result.Weeks))
	}
	if result.RequestID == "" {
		t.Error("Expected a request id")
	}
	if !result.Weeks[0].Date.Equal(target) {
		t.Errorf("Week 1 should start at the target date, got %s", result.Weeks[0].Date)
	}
	if result.Weeks[0].Clients[0] != "Camaronera Uno" {
		t.Errorf("Expected snapshot client label, got %s", result.Weeks[0].Clients[0])
	}
	if len(result.Totals) != pipeline.LagWeeks {
		t.Errorf("Expected %d total rows, got %d", pipeline.LagWeeks, len(result.Totals))
	}
	if _, ok := result.StageTotals["SEEDING"]; !ok {
		t.Error("Expected SEEDING stage totals")
	}

	// The model must see a single sample of 4 lag weeks over the full
	// declared input width.
	in := model.lastInput
	if in.Samples != 1 || in.Lags != pipeline.LagWeeks || in.Features != sch.InputWidth() {
		t.Errorf("Unexpected input tensor shape (%d,%d,%d)", in.Samples, in.Lags, in.Features)
	}

	// The input scaler fits on the single flattened history row, so every
	// flattened column is degenerate and the model always sees zeros.
	for i, v := range in.Values {
		if v != 0 {
			t.Fatalf("Input tensor value %d is %g, expected the flattened-fit scaler to yield 0", i, v)
		}
	}
}

func TestPredictionService_InverseScaleAddsWeeklyHistory(t *testing.T) {
	sch := testSchema()
	store := newFakeStore(sch)
	model := &fakeModel{fill: 0.5}
	svc := NewPredictionService(store, model, sch)

	// Window for this target: 2024-02-05 .. 2024-03-03, resampling into the
	// four weeks ending Feb 11, Feb 18, Feb 25 and Mar 3. Slot-1 seeding
	// tonnage is 10+day per day, so the weekly sums are 126, 175, 224, 186.
	target := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	result, err := svc.Run(context.Background(), target)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The output scaler fits on the flattened history row, so a constant
	// model output of 0.5 must invert to 0.5 plus each week's own sum,
	// never one shared per-feature range across the four weeks.
	wantSeeding := []float64{126.5, 175.5, 224.5, 186.5}
	for w, week := range result.Weeks {
		got := week.Values[0][0] // Camaronera Uno x CLASSIC_SEEDING
		if math.Abs(got-wantSeeding[w]) > 1e-9 {
			t.Errorf("Week %d: expected %.1f, got %g", w+1, wantSeeding[w], got)
		}
	}

	// Slot-4 voluma sells a flat 5 per day (35 per week), so every week
	// inverts to 35.5.
	for w, week := range result.Weeks {
		got := week.Values[3][1] // Camaronera Cuatro x CLASSIC_VOLUMA
		if math.Abs(got-35.5) > 1e-9 {
			t.Errorf("Week %d: expected 35.5, got %g", w+1, got)
		}
	}
}

func TestPredictionService_CachesPerTargetDate(t *testing.T) {
	sch := testSchema()
	store := newFakeStore(sch)
	model := &fakeModel{}
	svc := NewPredictionService(store, model, sch)

	target := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	first, err := svc.Run(context.Background(), target)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := svc.Run(context.Background(), target)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if model.calls != 1 {
		t.Errorf("Expected one model call, got %d", model.calls)
	}
	if first.RequestID != second.RequestID {
		t.Error("Expected the memoized result to be returned")
	}

	svc.Invalidate()
	third, err := svc.Run(context.Background(), target)
	if err != nil {
		t.Fatalf("Run after invalidation failed: %v", err)
	}
	if model.calls != 2 {
		t.Errorf("Expected a fresh model call after invalidation, got %d calls", model.calls)
	}
	if third.RequestID == first.RequestID {
		t.Error("Expected a new request id after invalidation")
	}
}

func TestPredictionService_TargetOutsideBounds(t *testing.T) {
	sch := testSchema()
	store := newFakeStore(sch)
	svc := NewPredictionService(store, &fakeModel{}, sch)

	// Less than four weeks past the first sale.
	early := store.minDate.AddDate(0, 0, 7)
	if _, err := svc.Run(context.Background(), early); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT for early target, got %v", err)
	}

	late := store.maxDate.AddDate(0, 0, 1)
	if _, err := svc.Run(context.Background(), late); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT for late target, got %v", err)
	}
}

func TestPredictionService_ClientDrift(t *testing.T) {
	sch := testSchema()
	store := newFakeStore(sch)
	store.clients = append([]schema.Client{}, sch.Clients...)
	store.clients[2] = schema.Client{Code: 2100050, DisplayName: "Camaronera Nueva"}
	svc := NewPredictionService(store, &fakeModel{}, sch)

	target := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Run(context.Background(), target); !errors.IsCode(err, errors.CodeSchemaDrift) {
		t.Errorf("Expected SCHEMA_DRIFT on changed client list, got %v", err)
	}
}
