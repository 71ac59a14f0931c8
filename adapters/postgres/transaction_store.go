package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"shrimp/domain/market"
	"shrimp/domain/schema"
	"shrimp/internal/errors"
	"shrimp/ports"
)

// poundsPerTon converts the store's pound-denominated columns to tons, and
// per-pound dollar figures to per-ton. Both directions preserved exactly as
// the model's training data was prepared.
const poundsPerTon = 2000.0

// transactionStore implements the TransactionStore interface over the
// shrimp-feed transaction database.
type transactionStore struct {
	db *sqlx.DB
}

// NewTransactionStore creates a new transaction store
func NewTransactionStore(db *sqlx.DB) ports.TransactionStore {
	return &transactionStore{db: db}
}

// FetchSales returns sales joined to client and product, date ascending.
func (s *transactionStore) FetchSales(ctx context.Context, from, to time.Time) ([]market.SaleRecord, error) {
	query := `SELECT
		c.cod_cliente, COALESCE(p.familia, '') AS familia,
		v.fecha_emision, COALESCE(p.grupo_linea, '') AS grupo_linea, v.toneladas
	FROM venta v
	INNER JOIN cliente c ON v.id_cliente = c.id_cliente
	LEFT JOIN producto p ON v.id_producto = p.id_producto
	WHERE v.fecha_emision BETWEEN $1 AND $2
	ORDER BY v.fecha_emision ASC`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, errors.SourceUnavailable("sales", err)
	}
	defer rows.Close()

	var records []market.SaleRecord
	for rows.Next() {
		var r market.SaleRecord
		if err := rows.Scan(&r.ClientCode, &r.Family, &r.Date, &r.LineGroup, &r.Tons); err != nil {
			return nil, errors.SourceUnavailable("sales", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// FetchRawMaterials returns daily raw-material costs converted to per-ton
// units, date ascending.
func (s *transactionStore) FetchRawMaterials(ctx context.Context, from, to time.Time) ([]market.RawMaterialRecord, error) {
	query := `SELECT
		fecha,
		total_usd_lecitina, libras_neto_lecitina,
		total_usd_soya, libras_neto_soya,
		total_usd_trigo, libras_neto_trigo
	FROM materia_prima
	WHERE fecha BETWEEN $1 AND $2
	ORDER BY fecha ASC`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, errors.SourceUnavailable("raw_materials", err)
	}
	defer rows.Close()

	var records []market.RawMaterialRecord
	for rows.Next() {
		var r market.RawMaterialRecord
		if err := rows.Scan(&r.Date,
			&r.USDLecithin, &r.TonsLecithin,
			&r.USDSoy, &r.TonsSoy,
			&r.USDWheat, &r.TonsWheat); err != nil {
			return nil, errors.SourceUnavailable("raw_materials", err)
		}
		r.USDLecithin *= poundsPerTon
		r.USDSoy *= poundsPerTon
		r.USDWheat *= poundsPerTon
		r.TonsLecithin /= poundsPerTon
		r.TonsSoy /= poundsPerTon
		r.TonsWheat /= poundsPerTon
		records = append(records, r)
	}
	return records, rows.Err()
}

// FetchShareOfWallet returns monthly share-of-wallet rows for the months
// covered by the window.
func (s *transactionStore) FetchShareOfWallet(ctx context.Context, from, to time.Time) ([]market.ShareOfWalletRecord, error) {
	query := `SELECT
		sw.fecha_periodo, c.cod_cliente,
		sw.potencial_grupo, sw.nicovita, sw.sow_max_alcanzable
	FROM sow sw
	INNER JOIN cliente c ON sw.id_cliente = c.id_cliente
	WHERE sw.fecha_periodo >= date_trunc('month', $1::date)
	  AND sw.fecha_periodo <= $2
	ORDER BY sw.fecha_periodo ASC`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, errors.SourceUnavailable("share_of_wallet", err)
	}
	defer rows.Close()

	var records []market.ShareOfWalletRecord
	for rows.Next() {
		var r market.ShareOfWalletRecord
		if err := rows.Scan(&r.Period, &r.ClientCode, &r.PotentialGroup, &r.NicovitaShare, &r.MaxAchievableShare); err != nil {
			return nil, errors.SourceUnavailable("share_of_wallet", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// FetchShrimpPrices returns published price lists in-window plus the single
// most recent list at or before the window start, converted to per-ton
// prices, date ascending. The anchor row is what lets backward fill cover
// days before the first in-window publication.
func (s *transactionStore) FetchShrimpPrices(ctx context.Context, from, to time.Time) ([]market.ShrimpPriceRecord, error) {
	query := `(SELECT
		fecha,
		"30-40 (29 g)", "40-50 (23 g)", "50-60 (18 g)",
		"60-70 (15 g)", "70-80 (13 g)", "80-100 (11 g)"
	FROM precio_camaron
	WHERE fecha <= $1
	ORDER BY fecha DESC
	LIMIT 1)
	UNION ALL
	(SELECT
		fecha,
		"30-40 (29 g)", "40-50 (23 g)", "50-60 (18 g)",
		"60-70 (15 g)", "70-80 (13 g)", "80-100 (11 g)"
	FROM precio_camaron
	WHERE fecha > $1 AND fecha <= $2)
	ORDER BY fecha ASC`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, errors.SourceUnavailable("shrimp_prices", err)
	}
	defer rows.Close()

	var records []market.ShrimpPriceRecord
	for rows.Next() {
		var r market.ShrimpPriceRecord
		if err := rows.Scan(&r.Date, &r.Prices[0], &r.Prices[1], &r.Prices[2], &r.Prices[3], &r.Prices[4], &r.Prices[5]); err != nil {
			return nil, errors.SourceUnavailable("shrimp_prices", err)
		}
		for i := range r.Prices {
			r.Prices[i] *= poundsPerTon
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// FetchExports returns daily export totals converted to per-ton units,
// date ascending.
func (s *transactionStore) FetchExports(ctx context.Context, from, to time.Time) ([]market.ExportRecord, error) {
	query := `SELECT fecha, total_lb, total_fob
	FROM exportacion
	WHERE fecha BETWEEN $1 AND $2
	ORDER BY fecha ASC`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, errors.SourceUnavailable("exports", err)
	}
	defer rows.Close()

	var records []market.ExportRecord
	for rows.Next() {
		var r market.ExportRecord
		if err := rows.Scan(&r.Date, &r.TotalTons, &r.TotalFOB); err != nil {
			return nil, errors.SourceUnavailable("exports", err)
		}
		r.TotalTons /= poundsPerTon
		r.TotalFOB *= poundsPerTon
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListClients returns the live client enumeration in insertion order. Slot
// numbering depends on this order staying stable; the schema artifact's
// snapshot is verified against it at startup.
func (s *transactionStore) ListClients(ctx context.Context) ([]schema.Client, error) {
	query := `SELECT cod_cliente, des_cliente FROM cliente ORDER BY id_cliente ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.SourceUnavailable("clients", err)
	}
	defer rows.Close()

	var clients []schema.Client
	for rows.Next() {
		var c schema.Client
		if err := rows.Scan(&c.Code, &c.DisplayName); err != nil {
			return nil, errors.SourceUnavailable("clients", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// MinMaxSaleDate returns the bounds of available sales history.
func (s *transactionStore) MinMaxSaleDate(ctx context.Context) (time.Time, time.Time, error) {
	query := `SELECT MIN(fecha_emision), MAX(fecha_emision) FROM venta`

	var min, max sql.NullTime
	if err := s.db.QueryRowContext(ctx, query).Scan(&min, &max); err != nil {
		return time.Time{}, time.Time{}, errors.SourceUnavailable("sales", err)
	}
	if !min.Valid || !max.Valid {
		return time.Time{}, time.Time{}, errors.NotFound("sales history")
	}
	return min.Time, max.Time, nil
}

// FetchHistoric returns display rows for the requested month and the month
// before it, with optional stage and client filters.
func (s *transactionStore) FetchHistoric(ctx context.Context, filter market.HistoricFilter) ([]market.HistoricSale, []market.HistoricSale, error) {
	currentStart := time.Date(filter.Year, filter.Month, 1, 0, 0, 0, 0, time.UTC)
	currentEnd := currentStart.AddDate(0, 1, -1)
	previousStart := currentStart.AddDate(0, -1, 0)
	previousEnd := currentStart.AddDate(0, 0, -1)

	current, err := s.fetchHistoricRange(ctx, currentStart, currentEnd, filter)
	if err != nil {
		return nil, nil, err
	}
	previous, err := s.fetchHistoricRange(ctx, previousStart, previousEnd, filter)
	if err != nil {
		return nil, nil, err
	}
	return current, previous, nil
}

func (s *transactionStore) fetchHistoricRange(ctx context.Context, from, to time.Time, filter market.HistoricFilter) ([]market.HistoricSale, error) {
	query := `SELECT
		c.des_cliente, p.des_sku, p.familia, v.fecha_emision, p.grupo_linea, v.toneladas
	FROM venta v
	INNER JOIN cliente c ON v.id_cliente = c.id_cliente
	INNER JOIN producto p ON v.id_producto = p.id_producto
	WHERE v.fecha_emision BETWEEN $1 AND $2`

	args := []interface{}{from, to}
	if filter.Stage != "" {
		query += ` AND p.grupo_linea = $` + strconv.Itoa(len(args)+1)
		args = append(args, filter.Stage)
	}
	if filter.Client != "" {
		query += ` AND c.des_cliente = $` + strconv.Itoa(len(args)+1)
		args = append(args, filter.Client)
	}
	query += ` ORDER BY v.fecha_emision ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.SourceUnavailable("sales", err)
	}
	defer rows.Close()

	var sales []market.HistoricSale
	for rows.Next() {
		var h market.HistoricSale
		if err := rows.Scan(&h.Client, &h.Product, &h.Family, &h.Date, &h.Stage, &h.Tons); err != nil {
			return nil, errors.SourceUnavailable("sales", err)
		}
		sales = append(sales, h)
	}
	return sales, rows.Err()
}
