package db

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/agile-dashboard-tui/internal/models"
)

// timeFormat is the canonical storage format for interval boundaries,
// always UTC so lexical ordering matches chronological ordering.
const timeFormat = time.RFC3339

// UpsertRates merges a batch of rate records into the store, keyed by
// valid_from. An existing record with the same start time has its end
// time and prices overwritten in place; new start times are inserted.
// The whole batch commits in a single transaction.
func (db *DB) UpsertRates(records []models.RateRecord) error {
	for _, rec := range records {
		if !rec.Valid() {
			return fmt.Errorf("invalid rate record: valid_from %s is not before valid_to %s",
				rec.ValidFrom.Format(timeFormat), rec.ValidTo.Format(timeFormat))
		}
	}

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rates (valid_from, valid_to, value_exc_vat, value_inc_vat)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(valid_from) DO UPDATE SET
			valid_to = excluded.valid_to,
			value_exc_vat = excluded.value_exc_vat,
			value_inc_vat = excluded.value_inc_vat
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ValidFrom.UTC().Format(timeFormat),
			rec.ValidTo.UTC().Format(timeFormat),
			rec.ValueExcVAT.String(),
			rec.ValueIncVAT.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert rate at %s: %w", rec.ValidFrom.Format(timeFormat), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	return nil
}

// GetAllRates returns every stored rate record ordered ascending by
// valid_from.
func (db *DB) GetAllRates() ([]models.RateRecord, error) {
	query := `
		SELECT valid_from, valid_to, value_exc_vat, value_inc_vat
		FROM rates
		ORDER BY valid_from ASC
	`

	rows, err := db.QueryContext(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.RateRecord
	for rows.Next() {
		var validFrom, validTo, excVAT, incVAT string

		if err := rows.Scan(&validFrom, &validTo, &excVAT, &incVAT); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}

		rec, err := parseStoredRate(validFrom, validTo, excVAT, incVAT)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountRates returns the number of stored rate records.
func (db *DB) CountRates() (int, error) {
	var count int
	err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM rates").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rates: %w", err)
	}
	return count, nil
}

// DeleteAllRates irreversibly clears the rate cache.
func (db *DB) DeleteAllRates() error {
	if _, err := db.ExecContext(context.Background(), "DELETE FROM rates"); err != nil {
		return fmt.Errorf("failed to delete rates: %w", err)
	}
	return nil
}

func parseStoredRate(validFrom, validTo, excVAT, incVAT string) (models.RateRecord, error) {
	var rec models.RateRecord
	var err error

	if rec.ValidFrom, err = time.Parse(timeFormat, validFrom); err != nil {
		return rec, fmt.Errorf("failed to parse stored valid_from %q: %w", validFrom, err)
	}
	if rec.ValidTo, err = time.Parse(timeFormat, validTo); err != nil {
		return rec, fmt.Errorf("failed to parse stored valid_to %q: %w", validTo, err)
	}
	if rec.ValueExcVAT, err = decimal.NewFromString(excVAT); err != nil {
		return rec, fmt.Errorf("failed to parse stored value_exc_vat %q: %w", excVAT, err)
	}
	if rec.ValueIncVAT, err = decimal.NewFromString(incVAT); err != nil {
		return rec, fmt.Errorf("failed to parse stored value_inc_vat %q: %w", incVAT, err)
	}

	return rec, nil
}
