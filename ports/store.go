package ports

import (
	"context"
	"time"

	"shrimp/domain/market"
	"shrimp/domain/schema"
)

// TransactionStore provides read access to the persisted transaction data the
// prediction pipeline consumes. Implementations must return rows ordered by
// date ascending; the pipeline relies on that for deterministic last-wins
// tie-breaks on point-in-time series.
type TransactionStore interface {
	// FetchSales returns sales transactions in [from, to].
	FetchSales(ctx context.Context, from, to time.Time) ([]market.SaleRecord, error)

	// FetchRawMaterials returns daily raw-material cost rows in [from, to].
	FetchRawMaterials(ctx context.Context, from, to time.Time) ([]market.RawMaterialRecord, error)

	// FetchShareOfWallet returns monthly share-of-wallet rows whose period
	// month falls inside [from, to].
	FetchShareOfWallet(ctx context.Context, from, to time.Time) ([]market.ShareOfWalletRecord, error)

	// FetchShrimpPrices returns price lists in [from, to], preceded by the
	// single most recent list published at or before from (the anchor row
	// backward-fill needs to cover the window start).
	FetchShrimpPrices(ctx context.Context, from, to time.Time) ([]market.ShrimpPriceRecord, error)

	// FetchExports returns daily export totals in [from, to].
	FetchExports(ctx context.Context, from, to time.Time) ([]market.ExportRecord, error)

	// ListClients returns the live client enumeration in stable slot order.
	ListClients(ctx context.Context) ([]schema.Client, error)

	// MinMaxSaleDate returns the bounds of available sales history.
	MinMaxSaleDate(ctx context.Context) (min, max time.Time, err error)

	// FetchHistoric returns display rows for the requested month and the
	// month before it.
	FetchHistoric(ctx context.Context, filter market.HistoricFilter) (current, previous []market.HistoricSale, err error)
}

// UploadStore provides the serialized monthly write paths. Rows arrive in
// workbook units; callers must hold the month-ordering invariants: previous
// month present, target month absent. Each insert is all-or-nothing.
type UploadStore interface {
	// MonthHasData reports whether the table already has rows in the month
	// containing date.
	MonthHasData(ctx context.Context, table string, date time.Time) (bool, error)

	InsertSales(ctx context.Context, rows []market.SaleEntry) error
	InsertRawMaterials(ctx context.Context, rows []market.RawMaterialEntry) error
	InsertShrimpPrices(ctx context.Context, rows []market.PriceEntry) error
	InsertShareOfWallet(ctx context.Context, rows []market.ShareOfWalletRecord) error
	InsertExports(ctx context.Context, rows []market.ExportEntry) error
}
