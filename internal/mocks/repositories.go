package mocks

import (
	"context"
	"sort"
	"time"

	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/repository"
)

// MockSubmissionRepository is a mock implementation of SubmissionRepository
type MockSubmissionRepository struct {
	Submissions    map[string]*models.ClassSubmission
	HandleToSub    map[string]*models.ClassSubmission
	InsertError    error
	UpdateError    error
	CreateCalls    int
	UpdateCalls    int
	HandleExistsFn func(handle string) bool
}

// Verify interface compliance
var _ repository.SubmissionRepository = (*MockSubmissionRepository)(nil)

func NewMockSubmissionRepository() *MockSubmissionRepository {
	return &MockSubmissionRepository{
		Submissions: make(map[string]*models.ClassSubmission),
		HandleToSub: make(map[string]*models.ClassSubmission),
	}
}

func (m *MockSubmissionRepository) Create(ctx context.Context, sub *models.ClassSubmission) error {
	m.CreateCalls++
	if m.InsertError != nil {
		return m.InsertError
	}
	if _, exists := m.HandleToSub[sub.Handle]; exists {
		return repository.ErrDuplicateHandle
	}
	m.put(sub)
	return nil
}

func (m *MockSubmissionRepository) put(sub *models.ClassSubmission) {
	m.Submissions[sub.ID] = sub
	m.HandleToSub[sub.Handle] = sub
}

func (m *MockSubmissionRepository) GetByID(ctx context.Context, id string) (*models.ClassSubmission, error) {
	return m.Submissions[id], nil
}

func (m *MockSubmissionRepository) GetByMetaobjectID(ctx context.Context, metaobjectID string) (*models.ClassSubmission, error) {
	for _, sub := range m.Submissions {
		if sub.MetaobjectID == metaobjectID {
			return sub, nil
		}
	}
	return nil, nil
}

func (m *MockSubmissionRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	if m.HandleExistsFn != nil && m.HandleExistsFn(handle) {
		return true, nil
	}
	_, exists := m.HandleToSub[handle]
	return exists, nil
}

func (m *MockSubmissionRepository) List(ctx context.Context, status models.Status, limit int) ([]*models.ClassSubmission, error) {
	var out []*models.ClassSubmission
	for _, sub := range m.sorted() {
		if status != "" && sub.Status != status {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, sub)
	}
	return out, nil
}

func (m *MockSubmissionRepository) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	counts := map[models.Status]int{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusRejected: 0,
	}
	for _, sub := range m.Submissions {
		counts[sub.Status]++
	}
	return counts, nil
}

func (m *MockSubmissionRepository) UpdateModeration(ctx context.Context, id string, status models.Status, metaobjectID string) error {
	m.UpdateCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	sub, ok := m.Submissions[id]
	if !ok {
		return repository.ErrNotFound
	}
	sub.Status = status
	if metaobjectID != "" {
		sub.MetaobjectID = metaobjectID
	}
	sub.UpdatedAt = time.Now()
	return nil
}

func (m *MockSubmissionRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	sub, ok := m.Submissions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if sub.PublishedAt == nil {
		sub.PublishedAt = &at
	}
	return nil
}

func (m *MockSubmissionRepository) StreamAll(ctx context.Context, status models.Status, callback func(*models.ClassSubmission) error) error {
	for _, sub := range m.sorted() {
		if status != "" && sub.Status != status {
			continue
		}
		if err := callback(sub); err != nil {
			return err
		}
	}
	return nil
}

// sorted returns submissions in creation order, ties broken by id
func (m *MockSubmissionRepository) sorted() []*models.ClassSubmission {
	subs := make([]*models.ClassSubmission, 0, len(m.Submissions))
	for _, sub := range m.Submissions {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.Before(subs[j].CreatedAt)
		}
		return subs[i].ID < subs[j].ID
	})
	return subs
}

// MockBatchRepository is a mock implementation of BatchRepository.
// Rows land in the shared submission mock so both views stay consistent.
type MockBatchRepository struct {
	Batches     map[string]*models.SubmissionBatch
	Subs        *MockSubmissionRepository
	InsertError error
	CreateCalls int
}

// Verify interface compliance
var _ repository.BatchRepository = (*MockBatchRepository)(nil)

func NewMockBatchRepository(subs *MockSubmissionRepository) *MockBatchRepository {
	return &MockBatchRepository{
		Batches: make(map[string]*models.SubmissionBatch),
		Subs:    subs,
	}
}

// CreateWithSubmissions is all-or-nothing like the real transaction
func (m *MockBatchRepository) CreateWithSubmissions(ctx context.Context, batch *models.SubmissionBatch, subs []*models.ClassSubmission) (int, error) {
	m.CreateCalls++
	if m.InsertError != nil {
		return 0, m.InsertError
	}
	for _, sub := range subs {
		if _, exists := m.Subs.HandleToSub[sub.Handle]; exists {
			return 0, repository.ErrDuplicateHandle
		}
	}

	batch.RowCount = len(subs)
	m.Batches[batch.ID] = batch
	for _, sub := range subs {
		id := batch.ID
		sub.BatchID = &id
		m.Subs.put(sub)
	}
	return len(subs), nil
}

func (m *MockBatchRepository) GetByID(ctx context.Context, id string) (*models.SubmissionBatch, error) {
	return m.Batches[id], nil
}

func (m *MockBatchRepository) ListSubmissions(ctx context.Context, batchID string) ([]*models.ClassSubmission, error) {
	var out []*models.ClassSubmission
	for _, sub := range m.Subs.sorted() {
		if sub.BatchID != nil && *sub.BatchID == batchID {
			out = append(out, sub)
		}
	}
	return out, nil
}
