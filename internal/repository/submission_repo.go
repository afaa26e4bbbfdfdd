package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leathercraft-class-submissions/internal/database"
	"github.com/leathercraft-class-submissions/internal/models"
)

const submissionColumns = `id, handle, batch_id, submitted_by_name, submitted_by_email, title, url,
	description, instructor_name, format, topic, city, state, cost, start_date, status,
	metaobject_id, published_at, created_at, updated_at`

// submissionRepo is the concrete implementation of SubmissionRepository
type submissionRepo struct {
	db *database.DB
}

// NewSubmissionRepo creates a new submission repository
func NewSubmissionRepo(db *database.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

// Create inserts a single submission with no batch
func (r *submissionRepo) Create(ctx context.Context, sub *models.ClassSubmission) error {
	query := `
		INSERT INTO class_submissions (
			id, handle, batch_id, submitted_by_name, submitted_by_email, title, url,
			description, instructor_name, format, topic, city, state, cost, start_date,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
	`
	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.Handle, nullString(sub.BatchID), sub.SubmittedByName, sub.SubmittedByEmail,
		sub.Title, sub.URL, sub.Description, sub.InstructorName, sub.Format, sub.Topic,
		sub.City, sub.State, sub.Cost, sub.StartDate, sub.Status, sub.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateHandle, sub.Handle)
	}
	return err
}

// GetByID retrieves a submission by ID; a missing row yields nil, nil
func (r *submissionRepo) GetByID(ctx context.Context, id string) (*models.ClassSubmission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM class_submissions WHERE id = $1`, id)
	return scanOne(row)
}

// GetByMetaobjectID retrieves the submission synced to the given metaobject GID
func (r *submissionRepo) GetByMetaobjectID(ctx context.Context, metaobjectID string) (*models.ClassSubmission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM class_submissions WHERE metaobject_id = $1`, metaobjectID)
	return scanOne(row)
}

// HandleExists checks if a submission with the given handle exists
func (r *submissionRepo) HandleExists(ctx context.Context, handle string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM class_submissions WHERE handle = $1)", handle).Scan(&exists)
	return exists, err
}

// List returns submissions oldest first, optionally filtered by status
func (r *submissionRepo) List(ctx context.Context, status models.Status, limit int) ([]*models.ClassSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM class_submissions
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at, id
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, string(status), limit)
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

// CountByStatus returns the number of submissions per workflow status
func (r *submissionRepo) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM class_submissions GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Status]int, len(models.ValidStatuses))
	for st := range models.ValidStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.Status(status)] = n
	}
	return counts, rows.Err()
}

// UpdateModeration sets status and keeps the existing metaobject id when none is given
func (r *submissionRepo) UpdateModeration(ctx context.Context, id string, status models.Status, metaobjectID string) error {
	query := `
		UPDATE class_submissions
		SET status = $2,
			metaobject_id = COALESCE(NULLIF($3, ''), metaobject_id),
			updated_at = $4
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, status, metaobjectID, time.Now().UTC())
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// MarkPublished records the first publish time; later calls keep the original timestamp
func (r *submissionRepo) MarkPublished(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE class_submissions
		SET published_at = COALESCE(published_at, $2),
			updated_at = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// StreamAll streams submissions for export (memory efficient)
func (r *submissionRepo) StreamAll(ctx context.Context, status models.Status, callback func(*models.ClassSubmission) error) error {
	query := `SELECT ` + submissionColumns + ` FROM class_submissions
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return err
		}
		if err := callback(sub); err != nil {
			return err
		}
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(s rowScanner) (*models.ClassSubmission, error) {
	var (
		sub          models.ClassSubmission
		batchID      sql.NullString
		metaobjectID sql.NullString
		publishedAt  sql.NullTime
	)
	err := s.Scan(
		&sub.ID, &sub.Handle, &batchID, &sub.SubmittedByName, &sub.SubmittedByEmail,
		&sub.Title, &sub.URL, &sub.Description, &sub.InstructorName, &sub.Format, &sub.Topic,
		&sub.City, &sub.State, &sub.Cost, &sub.StartDate, &sub.Status,
		&metaobjectID, &publishedAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if batchID.Valid {
		sub.BatchID = &batchID.String
	}
	sub.MetaobjectID = metaobjectID.String
	if publishedAt.Valid {
		t := publishedAt.Time
		sub.PublishedAt = &t
	}
	return &sub, nil
}

func scanOne(row *sql.Row) (*models.ClassSubmission, error) {
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sub, err
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
