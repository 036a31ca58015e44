// Package repository provides data access for datasets and their row tables.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"marketscope_backend/internal/ingest"
	"marketscope_backend/internal/scoring"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDatasetNotFound = errors.New("dataset not found")

// Dataset is one uploaded bundle of customer/competitor/demographic tables.
type Dataset struct {
	ID                  uuid.UUID
	Name                string
	Vertical            string
	PracticeZip         string
	CustomerRows        int
	CompetitorRows      int
	DemographicRows     int
	Warnings            []ingest.Warning
	CustomersFileKey    *string
	CompetitorsFileKey  *string
	DemographicsFileKey *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Repository provides data access for dataset operations.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a dataset row and returns it with generated fields.
func (r *Repository) Create(ctx context.Context, ds Dataset) (Dataset, error) {
	warnings, err := json.Marshal(ds.Warnings)
	if err != nil {
		return Dataset{}, err
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO datasets (name, vertical, practice_zip, customer_rows, competitor_rows, demographic_rows, warnings)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, ds.Name, ds.Vertical, ds.PracticeZip, ds.CustomerRows, ds.CompetitorRows, ds.DemographicRows, warnings).
		Scan(&ds.ID, &ds.CreatedAt, &ds.UpdatedAt)
	return ds, err
}

// SetFileKeys records the archived raw-file object keys.
func (r *Repository) SetFileKeys(ctx context.Context, id uuid.UUID, customers, competitors, demographics *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE datasets
		SET customers_file_key = $2, competitors_file_key = $3, demographics_file_key = $4, updated_at = now()
		WHERE id = $1
	`, id, customers, competitors, demographics)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDatasetNotFound
	}
	return nil
}

// GetByID retrieves one dataset.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Dataset, error) {
	var ds Dataset
	var warnings []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, vertical, practice_zip, customer_rows, competitor_rows, demographic_rows,
			warnings, customers_file_key, competitors_file_key, demographics_file_key, created_at, updated_at
		FROM datasets
		WHERE id = $1
	`, id).Scan(
		&ds.ID, &ds.Name, &ds.Vertical, &ds.PracticeZip, &ds.CustomerRows, &ds.CompetitorRows, &ds.DemographicRows,
		&warnings, &ds.CustomersFileKey, &ds.CompetitorsFileKey, &ds.DemographicsFileKey, &ds.CreatedAt, &ds.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Dataset{}, ErrDatasetNotFound
	}
	if err != nil {
		return Dataset{}, err
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &ds.Warnings); err != nil {
			return Dataset{}, err
		}
	}
	return ds, nil
}

// DatasetName resolves just the display name for a dataset.
func (r *Repository) DatasetName(ctx context.Context, id uuid.UUID) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM datasets WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrDatasetNotFound
	}
	return name, err
}

// List returns all datasets, newest first.
func (r *Repository) List(ctx context.Context) ([]Dataset, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, vertical, practice_zip, customer_rows, competitor_rows, demographic_rows,
			warnings, customers_file_key, competitors_file_key, demographics_file_key, created_at, updated_at
		FROM datasets
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	datasets := make([]Dataset, 0)
	for rows.Next() {
		var ds Dataset
		var warnings []byte
		if err := rows.Scan(
			&ds.ID, &ds.Name, &ds.Vertical, &ds.PracticeZip, &ds.CustomerRows, &ds.CompetitorRows, &ds.DemographicRows,
			&warnings, &ds.CustomersFileKey, &ds.CompetitorsFileKey, &ds.DemographicsFileKey, &ds.CreatedAt, &ds.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(warnings) > 0 {
			if err := json.Unmarshal(warnings, &ds.Warnings); err != nil {
				return nil, err
			}
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

// Delete removes a dataset; row tables cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDatasetNotFound
	}
	return nil
}

// ReplaceCustomers rewrites the customer ledger for a dataset.
func (r *Repository) ReplaceCustomers(ctx context.Context, datasetID uuid.UUID, customers []scoring.Customer) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM dataset_customers WHERE dataset_id = $1`, datasetID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, c := range customers {
		batch.Queue(`
			INSERT INTO dataset_customers (dataset_id, zip, revenue, procedure, consult_date)
			VALUES ($1, $2, $3, $4, $5)
		`, datasetID, c.Zip, c.Revenue, nullableString(c.Procedure), c.ConsultDate)
	}
	return r.sendBatch(ctx, batch, len(customers))
}

// ReplaceCompetitors rewrites the competitor rows for a dataset.
func (r *Repository) ReplaceCompetitors(ctx context.Context, datasetID uuid.UUID, competitors []scoring.Competitor) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM dataset_competitors WHERE dataset_id = $1`, datasetID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, comp := range competitors {
		batch.Queue(`
			INSERT INTO dataset_competitors (dataset_id, zip) VALUES ($1, $2)
		`, datasetID, comp.Zip)
	}
	return r.sendBatch(ctx, batch, len(competitors))
}

// ReplaceDemographics rewrites the ZIP demographic rows for a dataset.
func (r *Repository) ReplaceDemographics(ctx context.Context, datasetID uuid.UUID, rows []scoring.ZipDemographics) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM dataset_demographics WHERE dataset_id = $1`, datasetID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, z := range rows {
		var lat, lon *float64
		if z.HasLocation {
			lat, lon = &z.Lat, &z.Lon
		}
		batch.Queue(`
			INSERT INTO dataset_demographics (
				dataset_id, zip, lat, lon, population, median_income,
				density_per_sqmi, college_pct, age_25_54_pct, owner_occ_pct
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (dataset_id, zip) DO NOTHING
		`, datasetID, z.Zip, lat, lon, z.Population, z.MedianIncome,
			z.DensityPerSqMi, z.CollegePct, z.Age25to54Pct, z.OwnerOccPct)
	}
	return r.sendBatch(ctx, batch, len(rows))
}

// LoadCustomers returns the stored customer ledger.
func (r *Repository) LoadCustomers(ctx context.Context, datasetID uuid.UUID) ([]scoring.Customer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT zip, revenue, procedure, consult_date
		FROM dataset_customers
		WHERE dataset_id = $1
		ORDER BY id ASC
	`, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]scoring.Customer, 0)
	for rows.Next() {
		var c scoring.Customer
		var procedure *string
		if err := rows.Scan(&c.Zip, &c.Revenue, &procedure, &c.ConsultDate); err != nil {
			return nil, err
		}
		if procedure != nil {
			c.Procedure = *procedure
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// LoadCompetitors returns the stored competitor rows.
func (r *Repository) LoadCompetitors(ctx context.Context, datasetID uuid.UUID) ([]scoring.Competitor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT zip FROM dataset_competitors WHERE dataset_id = $1 ORDER BY id ASC
	`, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	competitors := make([]scoring.Competitor, 0)
	for rows.Next() {
		var comp scoring.Competitor
		if err := rows.Scan(&comp.Zip); err != nil {
			return nil, err
		}
		competitors = append(competitors, comp)
	}
	return competitors, rows.Err()
}

// LoadDemographics returns the stored ZIP universe.
func (r *Repository) LoadDemographics(ctx context.Context, datasetID uuid.UUID) ([]scoring.ZipDemographics, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT zip, lat, lon, population, median_income, density_per_sqmi, college_pct, age_25_54_pct, owner_occ_pct
		FROM dataset_demographics
		WHERE dataset_id = $1
		ORDER BY zip ASC
	`, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	demographics := make([]scoring.ZipDemographics, 0)
	for rows.Next() {
		var z scoring.ZipDemographics
		var lat, lon *float64
		if err := rows.Scan(&z.Zip, &lat, &lon, &z.Population, &z.MedianIncome,
			&z.DensityPerSqMi, &z.CollegePct, &z.Age25to54Pct, &z.OwnerOccPct); err != nil {
			return nil, err
		}
		if lat != nil && lon != nil {
			z.Lat, z.Lon = *lat, *lon
			z.HasLocation = true
		}
		demographics = append(demographics, z)
	}
	return demographics, rows.Err()
}

// UpdateDemographicLocation backfills one ZIP's coordinates.
func (r *Repository) UpdateDemographicLocation(ctx context.Context, datasetID uuid.UUID, zip string, lat, lon float64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE dataset_demographics SET lat = $3, lon = $4
		WHERE dataset_id = $1 AND zip = $2
	`, datasetID, zip, lat, lon)
	return err
}

// ListDemographicsMissingLocation returns (dataset_id, zip) pairs without
// coordinates, for the offline geocode backfill.
func (r *Repository) ListDemographicsMissingLocation(ctx context.Context, limit int) ([]MissingLocation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT dataset_id, zip
		FROM dataset_demographics
		WHERE lat IS NULL OR lon IS NULL
		ORDER BY dataset_id, zip
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	missing := make([]MissingLocation, 0)
	for rows.Next() {
		var m MissingLocation
		if err := rows.Scan(&m.DatasetID, &m.Zip); err != nil {
			return nil, err
		}
		missing = append(missing, m)
	}
	return missing, rows.Err()
}

// MissingLocation identifies one demographic row without coordinates.
type MissingLocation struct {
	DatasetID uuid.UUID
	Zip       string
}

func (r *Repository) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	if n == 0 {
		return nil
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < n; i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
