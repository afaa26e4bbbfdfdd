package mocks

import (
	"context"
	"fmt"

	"github.com/leathercraft-class-submissions/internal/botfilter"
	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/service"
	"github.com/leathercraft-class-submissions/internal/shopify"
)

// MockMetaobjectClient is an in-memory stand-in for the Shopify Admin API
type MockMetaobjectClient struct {
	Objects     map[string]*models.Metaobject // by id
	UpsertError error
	UpdateError error
	// PublishError is returned by every PublishMetaobject call when set
	PublishError error
	UpsertCalls  int
	UpdateCalls  int
	PublishCalls int
	ListCalls    int
	nextID       int
}

// Verify interface compliance
var _ service.MetaobjectClient = (*MockMetaobjectClient)(nil)

func NewMockMetaobjectClient() *MockMetaobjectClient {
	return &MockMetaobjectClient{Objects: make(map[string]*models.Metaobject)}
}

// Add seeds a metaobject and returns its id
func (m *MockMetaobjectClient) Add(handle string, publishStatus string, fields ...models.MetaobjectField) string {
	m.nextID++
	id := fmt.Sprintf("gid://shopify/Metaobject/%d", m.nextID)
	m.Objects[id] = &models.Metaobject{ID: id, Handle: handle, Fields: fields, PublishStatus: publishStatus}
	return id
}

func (m *MockMetaobjectClient) UpsertMetaobject(ctx context.Context, handle string, fields []models.MetaobjectField) (*models.Metaobject, error) {
	m.UpsertCalls++
	if m.UpsertError != nil {
		return nil, m.UpsertError
	}
	for _, obj := range m.Objects {
		if obj.Handle == handle {
			obj.Fields = mergeFields(obj.Fields, fields)
			copied := *obj
			return &copied, nil
		}
	}
	id := m.Add(handle, models.PublishStatusDraft, fields...)
	copied := *m.Objects[id]
	return &copied, nil
}

func (m *MockMetaobjectClient) UpdateMetaobjectFields(ctx context.Context, id string, fields []models.MetaobjectField) (*models.Metaobject, error) {
	m.UpdateCalls++
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	obj, ok := m.Objects[id]
	if !ok {
		return nil, recordNotFound()
	}
	obj.Fields = mergeFields(obj.Fields, fields)
	copied := *obj
	return &copied, nil
}

func (m *MockMetaobjectClient) PublishMetaobject(ctx context.Context, id string) (*models.Metaobject, error) {
	m.PublishCalls++
	if m.PublishError != nil {
		return nil, m.PublishError
	}
	obj, ok := m.Objects[id]
	if !ok {
		return nil, recordNotFound()
	}
	obj.PublishStatus = models.PublishStatusActive
	copied := *obj
	return &copied, nil
}

func (m *MockMetaobjectClient) ListMetaobjects(ctx context.Context, first int) ([]models.Metaobject, error) {
	m.ListCalls++
	out := make([]models.Metaobject, 0, len(m.Objects))
	for i := 1; i <= m.nextID && len(out) < first; i++ {
		if obj, ok := m.Objects[fmt.Sprintf("gid://shopify/Metaobject/%d", i)]; ok {
			out = append(out, *obj)
		}
	}
	return out, nil
}

// Field returns a field of the stored metaobject
func (m *MockMetaobjectClient) Field(id, key string) string {
	if obj, ok := m.Objects[id]; ok {
		return obj.Field(key)
	}
	return ""
}

func mergeFields(existing, updates []models.MetaobjectField) []models.MetaobjectField {
	out := append([]models.MetaobjectField(nil), existing...)
	for _, u := range updates {
		replaced := false
		for i := range out {
			if out[i].Key == u.Key {
				out[i].Value = u.Value
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, u)
		}
	}
	return out
}

// MockVerifier is a botfilter.Verifier returning a fixed outcome
type MockVerifier struct {
	Success bool
	Err     error
	Tokens  []string
}

// Verify interface compliance
var _ botfilter.Verifier = (*MockVerifier)(nil)

func (m *MockVerifier) Verify(ctx context.Context, token, remoteIP string) (*botfilter.VerifyResult, error) {
	m.Tokens = append(m.Tokens, token)
	if m.Err != nil {
		return nil, m.Err
	}
	res := &botfilter.VerifyResult{Success: m.Success}
	if !m.Success {
		res.ErrorCodes = []string{"invalid-input-response"}
	}
	return res, nil
}

func recordNotFound() error {
	return shopify.UserErrors{{Field: []string{"id"}, Message: "Record not found", Code: "RECORD_NOT_FOUND"}}
}
