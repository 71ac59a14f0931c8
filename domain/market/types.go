package market

import "time"

// SaleRecord is one sales transaction joined to its client and product.
// Immutable once persisted; absence of a record means no sale happened.
type SaleRecord struct {
	Date       time.Time
	ClientCode int
	Family     string
	LineGroup  string
	Tons       float64
}

// RawMaterialRecord carries one day of raw-material purchasing, already
// converted to per-ton units (pounds / 2000, USD x 2000).
type RawMaterialRecord struct {
	Date         time.Time
	USDLecithin  float64
	TonsLecithin float64
	USDSoy       float64
	TonsSoy      float64
	USDWheat     float64
	TonsWheat    float64
}

// ShrimpPriceBrackets are the size brackets of the shrimp price list, in the
// order the store returns them and the wide schema names them.
var ShrimpPriceBrackets = []string{
	"30-40 (29 g)",
	"40-50 (23 g)",
	"50-60 (18 g)",
	"60-70 (15 g)",
	"70-80 (13 g)",
	"80-100 (11 g)",
}

// ShrimpPriceRecord is one published price list. Point-in-time data: a price
// holds until the next publication.
type ShrimpPriceRecord struct {
	Date   time.Time
	Prices [6]float64 // per-ton, bracket order per ShrimpPriceBrackets
}

// ExportRecord is one day of national shrimp export totals, per-ton units.
type ExportRecord struct {
	Date      time.Time
	TotalTons float64
	TotalFOB  float64
}

// ShareOfWalletRecord is one monthly share-of-wallet observation per client.
type ShareOfWalletRecord struct {
	Period             time.Time
	ClientCode         int
	PotentialGroup     float64
	NicovitaShare      float64
	MaxAchievableShare float64
}

// HistoricSale is a display-oriented sales row for the history view.
type HistoricSale struct {
	Client  string    `json:"client"`
	Product string    `json:"product"`
	Family  string    `json:"family"`
	Date    time.Time `json:"date"`
	Stage   string    `json:"stage"`
	Tons    float64   `json:"tons"`
}

// HistoricFilter narrows the history query.
type HistoricFilter struct {
	Year   int
	Month  time.Month
	Stage  string // optional line-group filter
	Client string // optional client display-name filter
}
