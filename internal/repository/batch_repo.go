package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/leathercraft-class-submissions/internal/database"
	"github.com/leathercraft-class-submissions/internal/models"
)

// batchRepo is the concrete implementation of BatchRepository
type batchRepo struct {
	db *database.DB
}

// NewBatchRepo creates a new batch repository
func NewBatchRepo(db *database.DB) BatchRepository {
	return &batchRepo{db: db}
}

// CreateWithSubmissions inserts the batch row, then COPYs every submission in the
// same transaction. Any failure rolls back the batch and all rows.
func (r *batchRepo) CreateWithSubmissions(ctx context.Context, batch *models.SubmissionBatch, subs []*models.ClassSubmission) (int, error) {
	if len(subs) == 0 {
		return 0, fmt.Errorf("batch %s has no submissions", batch.ID)
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO submission_batches (id, submitted_by_name, submitted_by_email, source, status, row_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, batch.ID, batch.SubmittedByName, batch.SubmittedByEmail, batch.Source, batch.Status, len(subs), batch.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("class_submissions",
			"id", "handle", "batch_id", "submitted_by_name", "submitted_by_email", "title", "url",
			"description", "instructor_name", "format", "topic", "city", "state", "cost",
			"start_date", "status", "created_at", "updated_at",
		))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, sub := range subs {
			_, err := stmt.ExecContext(ctx,
				sub.ID, sub.Handle, batch.ID, sub.SubmittedByName, sub.SubmittedByEmail,
				sub.Title, sub.URL, sub.Description, sub.InstructorName, string(sub.Format), string(sub.Topic),
				sub.City, sub.State, sub.Cost, sub.StartDate, string(sub.Status), sub.CreatedAt, sub.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to copy row %d: %w", i+1, err)
			}
		}

		// Execute the COPY
		if _, err := stmt.ExecContext(ctx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %v", ErrDuplicateHandle, err)
		}
		return 0, err
	}

	batch.RowCount = len(subs)
	for _, sub := range subs {
		id := batch.ID
		sub.BatchID = &id
	}
	return len(subs), nil
}

// GetByID retrieves a batch by ID; a missing row yields nil, nil
func (r *batchRepo) GetByID(ctx context.Context, id string) (*models.SubmissionBatch, error) {
	query := `SELECT id, submitted_by_name, submitted_by_email, source, status, row_count, created_at
		FROM submission_batches WHERE id = $1`

	var b models.SubmissionBatch
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.SubmittedByName, &b.SubmittedByEmail, &b.Source, &b.Status, &b.RowCount, &b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListSubmissions returns the rows of a batch in insertion order
func (r *batchRepo) ListSubmissions(ctx context.Context, batchID string) ([]*models.ClassSubmission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM class_submissions WHERE batch_id = $1 ORDER BY created_at, id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.ClassSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
