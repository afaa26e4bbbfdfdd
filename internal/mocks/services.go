package mocks

import (
	"context"
	"net/http"

	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/service"
)

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamFunc func(ctx context.Context, w http.ResponseWriter, format string, status models.Status) error
	Counts     map[models.Status]int
	CountError error
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{
		Counts: map[models.Status]int{
			models.StatusPending:  0,
			models.StatusApproved: 0,
			models.StatusRejected: 0,
		},
	}
}

func (m *MockExportService) StreamSubmissions(ctx context.Context, w http.ResponseWriter, format string, status models.Status) error {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, w, format, status)
	}
	return nil
}

func (m *MockExportService) GetCounts(ctx context.Context) (map[models.Status]int, error) {
	if m.CountError != nil {
		return nil, m.CountError
	}
	return m.Counts, nil
}
