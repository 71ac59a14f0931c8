package market

import "time"

// Upload entries carry rows exactly as the monthly workbooks state them:
// client and SKU codes instead of resolved ids, pounds and per-pound dollars
// instead of the per-ton units the read path serves.

// SaleEntry is one sales row from a monthly sales workbook.
type SaleEntry struct {
	Date       time.Time
	ClientCode int
	SKU        string
	Tons       float64
}

// RawMaterialEntry is one day of raw-material purchasing in workbook units.
type RawMaterialEntry struct {
	Date           time.Time
	USDLecithin    float64
	PoundsLecithin float64
	USDSoy         float64
	PoundsSoy      float64
	USDWheat       float64
	PoundsWheat    float64
}

// PriceEntry is one published shrimp price list, per-pound per bracket.
type PriceEntry struct {
	Date   time.Time
	Prices [6]float64 // bracket order per ShrimpPriceBrackets
}

// ExportEntry is one day of national export totals in workbook units.
type ExportEntry struct {
	Date        time.Time
	TotalPounds float64
	TotalFOB    float64
}
