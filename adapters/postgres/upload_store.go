package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"shrimp/domain/market"
	"shrimp/internal/errors"
	"shrimp/ports"
)

// dateColumns whitelists the table names MonthHasData accepts and maps each
// to its date column. Table names never come from user input, but the
// whitelist keeps string-built SQL closed over known identifiers.
var dateColumns = map[string]string{
	"venta":          "fecha_emision",
	"materia_prima":  "fecha",
	"precio_camaron": "fecha",
	"sow":            "fecha_periodo",
	"exportacion":    "fecha",
}

// uploadStore implements the monthly ingestion write paths.
type uploadStore struct {
	db *sqlx.DB
}

// NewUploadStore creates a new upload store
func NewUploadStore(db *sqlx.DB) ports.UploadStore {
	return &uploadStore{db: db}
}

// MonthHasData reports whether table already has rows inside the calendar
// month containing date.
func (s *uploadStore) MonthHasData(ctx context.Context, table string, date time.Time) (bool, error) {
	col, ok := dateColumns[table]
	if !ok {
		return false, errors.InvalidInput(fmt.Sprintf("unknown upload table %q", table))
	}

	query := fmt.Sprintf(`SELECT EXISTS (
		SELECT 1 FROM %s
		WHERE %s >= date_trunc('month', $1::date)
		  AND %s < date_trunc('month', $1::date) + interval '1 month'
	)`, table, col, col)

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, date).Scan(&exists); err != nil {
		return false, errors.SourceUnavailable(table, err)
	}
	return exists, nil
}

// InsertSales inserts a month of sales rows, resolving client and SKU codes
// to their ids. All-or-nothing: an unknown code rolls the batch back.
func (s *uploadStore) InsertSales(ctx context.Context, rows []market.SaleEntry) error {
	return s.inTx(ctx, "venta", func(tx *sqlx.Tx) error {
		query := `INSERT INTO venta (id_cliente, id_producto, fecha_emision, toneladas)
			SELECT c.id_cliente, p.id_producto, $3, $4
			FROM cliente c, producto p
			WHERE c.cod_cliente = $1 AND p.cod_sku = $2`

		for _, r := range rows {
			res, err := tx.ExecContext(ctx, query, r.ClientCode, r.SKU, r.Date, r.Tons)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return errors.InvalidInput(fmt.Sprintf("sale row %s: unknown client %d or sku %s",
					r.Date.Format("2006-01-02"), r.ClientCode, r.SKU))
			}
		}
		return nil
	})
}

// InsertRawMaterials inserts a month of raw-material rows in workbook units.
func (s *uploadStore) InsertRawMaterials(ctx context.Context, rows []market.RawMaterialEntry) error {
	return s.inTx(ctx, "materia_prima", func(tx *sqlx.Tx) error {
		query := `INSERT INTO materia_prima (
			fecha,
			total_usd_lecitina, libras_neto_lecitina,
			total_usd_soya, libras_neto_soya,
			total_usd_trigo, libras_neto_trigo
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, query, r.Date,
				r.USDLecithin, r.PoundsLecithin,
				r.USDSoy, r.PoundsSoy,
				r.USDWheat, r.PoundsWheat); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertShrimpPrices inserts a month of published price lists, per-pound.
func (s *uploadStore) InsertShrimpPrices(ctx context.Context, rows []market.PriceEntry) error {
	return s.inTx(ctx, "precio_camaron", func(tx *sqlx.Tx) error {
		query := `INSERT INTO precio_camaron (
			fecha,
			"30-40 (29 g)", "40-50 (23 g)", "50-60 (18 g)",
			"60-70 (15 g)", "70-80 (13 g)", "80-100 (11 g)"
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, query, r.Date,
				r.Prices[0], r.Prices[1], r.Prices[2],
				r.Prices[3], r.Prices[4], r.Prices[5]); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertShareOfWallet inserts a month of share-of-wallet observations.
func (s *uploadStore) InsertShareOfWallet(ctx context.Context, rows []market.ShareOfWalletRecord) error {
	return s.inTx(ctx, "sow", func(tx *sqlx.Tx) error {
		query := `INSERT INTO sow (id_cliente, fecha_periodo, potencial_grupo, nicovita, sow_max_alcanzable)
			SELECT c.id_cliente, $2, $3, $4, $5
			FROM cliente c
			WHERE c.cod_cliente = $1`

		for _, r := range rows {
			res, err := tx.ExecContext(ctx, query, r.ClientCode, r.Period,
				r.PotentialGroup, r.NicovitaShare, r.MaxAchievableShare)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return errors.InvalidInput(fmt.Sprintf("share-of-wallet row %s: unknown client %d",
					r.Period.Format("2006-01"), r.ClientCode))
			}
		}
		return nil
	})
}

// InsertExports inserts a month of export totals in workbook units.
func (s *uploadStore) InsertExports(ctx context.Context, rows []market.ExportEntry) error {
	return s.inTx(ctx, "exportacion", func(tx *sqlx.Tx) error {
		query := `INSERT INTO exportacion (fecha, total_lb, total_fob) VALUES ($1, $2, $3)`

		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, query, r.Date, r.TotalPounds, r.TotalFOB); err != nil {
				return err
			}
		}
		return nil
	})
}

// inTx runs fn inside a transaction, mapping driver failures to the source
// error taxonomy while passing domain errors through untouched.
func (s *uploadStore) inTx(ctx context.Context, source string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.SourceUnavailable(source, err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if errors.GetCode(err) != "UNKNOWN" {
			return err
		}
		return errors.SourceUnavailable(source, err)
	}

	if err := tx.Commit(); err != nil {
		return errors.SourceUnavailable(source, err)
	}
	return nil
}
