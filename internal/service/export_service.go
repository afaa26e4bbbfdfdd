package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/repository"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// StreamSubmissions streams submissions in the specified format.
// An empty status exports every submission.
func (s *exportService) StreamSubmissions(ctx context.Context, w http.ResponseWriter, format string, status models.Status) error {
	s.log.Info().Str("format", format).Str("status", string(status)).Msg("Starting submissions export")

	switch format {
	case "ndjson":
		return s.streamNDJSON(ctx, w, status)
	case "json":
		return s.streamJSON(ctx, w, status)
	case "csv":
		return s.streamCSV(ctx, w, status)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// GetCounts returns submission totals per workflow status
func (s *exportService) GetCounts(ctx context.Context) (map[models.Status]int, error) {
	return s.repos.Submission.CountByStatus(ctx)
}

func (s *exportService) streamNDJSON(ctx context.Context, w http.ResponseWriter, status models.Status) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename=class_submissions.ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := s.repos.Submission.StreamAll(ctx, status, func(sub *models.ClassSubmission) error {
		data, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	s.log.Info().Int("count", count).Msg("Submissions export completed")
	return err
}

func (s *exportService) streamJSON(ctx context.Context, w http.ResponseWriter, status models.Status) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=class_submissions.json")

	w.Write([]byte("["))
	first := true

	err := s.repos.Submission.StreamAll(ctx, status, func(sub *models.ClassSubmission) error {
		if !first {
			w.Write([]byte(","))
		}
		first = false

		data, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		w.Write(data)
		return nil
	})

	w.Write([]byte("]"))
	return err
}

// streamCSV writes the import column layout, so an export can be edited and re-imported
func (s *exportService) streamCSV(ctx context.Context, w http.ResponseWriter, status models.Status) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=class_submissions.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(models.CSVHeader); err != nil {
		return err
	}

	return s.repos.Submission.StreamAll(ctx, status, func(sub *models.ClassSubmission) error {
		return writer.Write([]string{
			sub.Handle,
			sub.Title,
			sub.Description,
			sub.InstructorName,
			string(sub.Format),
			sub.City,
			sub.State,
			sub.StartDate.UTC().Format(time.RFC3339),
			sub.Cost,
			sub.URL,
			string(sub.Topic),
			sub.Status.Label(),
			sub.SubmittedByName,
			sub.SubmittedByEmail,
		})
	})
}
