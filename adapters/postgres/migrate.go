package postgres

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// migration is one versioned schema step. Versions are applied in slice
// order and recorded in schema_migrations, so restarts are idempotent.
type migration struct {
	version string
	sql     string
}

var migrations = []migration{
	{
		version: "001_core_tables",
		sql: `
		CREATE TABLE IF NOT EXISTS cliente (
			id_cliente  SERIAL PRIMARY KEY,
			cod_cliente INTEGER NOT NULL UNIQUE,
			des_cliente TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS producto (
			id_producto SERIAL PRIMARY KEY,
			cod_sku     TEXT NOT NULL UNIQUE,
			des_sku     TEXT NOT NULL,
			familia     TEXT NOT NULL,
			grupo_linea TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS venta (
			id_venta      SERIAL PRIMARY KEY,
			id_cliente    INTEGER NOT NULL REFERENCES cliente(id_cliente),
			id_producto   INTEGER NOT NULL REFERENCES producto(id_producto),
			fecha_emision DATE NOT NULL,
			toneladas     DOUBLE PRECISION NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_venta_fecha ON venta(fecha_emision);
		`,
	},
	{
		version: "002_market_tables",
		sql: `
		CREATE TABLE IF NOT EXISTS materia_prima (
			fecha                DATE PRIMARY KEY,
			total_usd_lecitina   DOUBLE PRECISION NOT NULL DEFAULT 0,
			libras_neto_lecitina DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_usd_soya       DOUBLE PRECISION NOT NULL DEFAULT 0,
			libras_neto_soya     DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_usd_trigo      DOUBLE PRECISION NOT NULL DEFAULT 0,
			libras_neto_trigo    DOUBLE PRECISION NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS precio_camaron (
			fecha            DATE PRIMARY KEY,
			"30-40 (29 g)"   DOUBLE PRECISION NOT NULL,
			"40-50 (23 g)"   DOUBLE PRECISION NOT NULL,
			"50-60 (18 g)"   DOUBLE PRECISION NOT NULL,
			"60-70 (15 g)"   DOUBLE PRECISION NOT NULL,
			"70-80 (13 g)"   DOUBLE PRECISION NOT NULL,
			"80-100 (11 g)"  DOUBLE PRECISION NOT NULL
		);

		CREATE TABLE IF NOT EXISTS exportacion (
			fecha     DATE PRIMARY KEY,
			total_lb  DOUBLE PRECISION NOT NULL,
			total_fob DOUBLE PRECISION NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sow (
			id_cliente         INTEGER NOT NULL REFERENCES cliente(id_cliente),
			fecha_periodo      DATE NOT NULL,
			potencial_grupo    DOUBLE PRECISION NOT NULL,
			nicovita           DOUBLE PRECISION NOT NULL,
			sow_max_alcanzable DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (id_cliente, fecha_periodo)
		);
		`,
	},
}

// Migrator applies the schema migrations in order, tracking applied versions.
type Migrator struct {
	db *sqlx.DB
}

// NewMigrator creates a new migrator
func NewMigrator(db *sqlx.DB) *Migrator {
	return &Migrator{db: db}
}

// Up executes all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, mig := range migrations {
		if applied[mig.version] {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", mig.version, err)
		}
		log.Printf("[migrate] applied %s", mig.version)
	}
	return nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, mig migration) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, mig.sql); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, mig.version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
