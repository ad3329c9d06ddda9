package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"weighstation/internal/models"
)

type RecordSQLite struct {
	db *sql.DB
}

func NewRecordSQLite(db *sql.DB) *RecordSQLite {
	return &RecordSQLite{db: db}
}

var _ RecordRepo = (*RecordSQLite)(nil)

const (
	latestRecordRowID = 1

	upsertRecordSQL = `
		INSERT INTO latest_record (id, taken_at, weights)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			taken_at=excluded.taken_at,
			weights=excluded.weights
	`

	selectRecordSQL = `
		SELECT id, taken_at, weights FROM latest_record WHERE id=?
	`
)

// marshalWeights converts the slot slice to a JSON string; nil slots become
// JSON null.
func marshalWeights(weights []*float64) (string, error) {
	b, err := json.Marshal(weights)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalWeights(s string) ([]*float64, error) {
	if s == "" {
		return nil, nil
	}
	var weights []*float64
	if err := json.Unmarshal([]byte(s), &weights); err != nil {
		return nil, err
	}
	return weights, nil
}

// Save upserts the latest_record row (id always 1).
func (r *RecordSQLite) Save(ctx context.Context, rec models.WeightRecord) error {
	weightsJSON, err := marshalWeights(rec.Weights)
	if err != nil {
		return err
	}

	// ensure TakenAt is always persisted as UTC; set if zero
	tsUTC := rec.TakenAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err = r.db.ExecContext(ctx, upsertRecordSQL,
		latestRecordRowID,
		tsUTC,
		weightsJSON,
	)
	return err
}

// Latest fetches the single latest_record row. A zero record (ID 0) means no
// tick has completed yet.
func (r *RecordSQLite) Latest(ctx context.Context) (models.WeightRecord, error) {
	row := r.db.QueryRowContext(ctx, selectRecordSQL, latestRecordRowID)

	var rec models.WeightRecord
	var weightsJSON string
	if err := row.Scan(&rec.ID, &rec.TakenAt, &weightsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.WeightRecord{}, nil // no record yet
		}
		return models.WeightRecord{}, err
	}

	weights, err := unmarshalWeights(weightsJSON)
	if err != nil {
		return models.WeightRecord{}, err
	}
	rec.Weights = weights
	rec.TakenAt = rec.TakenAt.UTC()

	return rec, nil
}
