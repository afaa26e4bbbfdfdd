package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/normalize"
	"github.com/leathercraft-class-submissions/internal/validation"
)

// ErrInvalidCSV is returned when the upload cannot be read as a CSV with a usable header
var ErrInvalidCSV = errors.New("invalid csv file")

// ImportCSV validates every row, then stores the file as one batch only if no row failed.
// Rows are processed sequentially so errors come back in file order.
func (s *intakeService) ImportCSV(ctx context.Context, req *CSVImportRequest) (*CSVImportResult, error) {
	if errs := s.validator.ValidateSubmitterCSV(req.Submitter.intake()); len(errs) > 0 {
		result := &CSVImportResult{Errors: make([]string, 0, len(errs))}
		for _, e := range errs {
			result.Errors = append(result.Errors, "Submitter: "+e.Message)
		}
		return result, nil
	}

	reader := csv.NewReader(req.File)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, validation.ErrBatchEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	headerMap := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		headerMap[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := headerMap["class_title"]; !ok {
		return nil, fmt.Errorf("%w: missing class_title column", ErrInvalidCSV)
	}

	result := &CSVImportResult{Errors: []string{}}
	var intakes []models.ClassIntake
	rowNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if err == nil && blankRow(record) {
			continue
		}
		rowNum++

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if rowNum > s.cfg.Intake.MaxBatchRows {
			// Keep counting so the size error reports the real total
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}

		in := normalize.FromRecord(recordFromCSV(record, headerMap))
		in = normalize.WithSubmitter(in, req.Submitter.Name, req.Submitter.Email)
		if errs := s.validator.ValidateCSV(&in); len(errs) > 0 {
			for _, e := range errs {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", rowNum, e.Message))
			}
			continue
		}
		intakes = append(intakes, in)
	}

	if err := validation.CheckBatchSize(rowNum, s.cfg.Intake.MinBatchRows, s.cfg.Intake.MaxBatchRows); err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		s.log.Info().
			Int("rows", rowNum).
			Int("errors", len(result.Errors)).
			Msg("CSV import rejected")
		return result, nil
	}

	batch, subs, err := s.buildBatch(ctx, intakes, req.Submitter, models.BatchSourceCSV)
	if err != nil {
		return nil, err
	}
	count, err := s.repos.Batch.CreateWithSubmissions(ctx, batch, subs)
	if err != nil {
		return nil, fmt.Errorf("failed to store batch: %w", err)
	}

	result.OK = true
	result.BatchID = batch.ID
	result.Imported = count

	if req.Sync {
		s.syncRows(ctx, subs, result)
	}

	s.log.Info().
		Str("batch_id", batch.ID).
		Int("imported", result.Imported).
		Int("synced", result.Synced).
		Int("sync_errors", len(result.SyncErrors)).
		Msg("CSV import completed")

	return result, nil
}

// syncRows upserts the imported rows one at a time. The batch is already committed,
// so failures are reported per row and can be retried with the sync intent.
func (s *intakeService) syncRows(ctx context.Context, subs []*models.ClassSubmission, result *CSVImportResult) {
	if !s.syncEnabled {
		s.log.Debug().Msg("Shopify not configured, skipping metaobject sync")
		return
	}
	for i, sub := range subs {
		if _, err := s.syncer.Sync(ctx, sub); err != nil {
			s.log.Warn().Err(err).Str("submission_id", sub.ID).Msg("Metaobject sync failed")
			result.SyncErrors = append(result.SyncErrors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		result.Synced++
	}
}

func recordFromCSV(record []string, headerMap map[string]int) normalize.Record {
	rec := make(normalize.Record, len(headerMap))
	for name := range headerMap {
		rec[name] = getField(record, headerMap, name)
	}
	return rec
}

func getField(record []string, headerMap map[string]int, field string) string {
	if idx, ok := headerMap[field]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func blankRow(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
