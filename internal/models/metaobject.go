package models

// Metaobject publish statuses as reported by the Admin API
const (
	PublishStatusActive = "ACTIVE"
	PublishStatusDraft  = "DRAFT"
)

// MetaobjectField is a key/value pair on a metaobject
type MetaobjectField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Metaobject is the Shopify-side representation of a submission
type Metaobject struct {
	ID            string            `json:"id"`
	Handle        string            `json:"handle"`
	Fields        []MetaobjectField `json:"fields"`
	PublishStatus string            `json:"publish_status,omitempty"`
}

// Field returns the value of key, or "" when absent
func (m *Metaobject) Field(key string) string {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// ReviewEntry is a pending entry shown to an operator.
// WorkflowStatus and Published come from the store when the entry is known there;
// PublishStatus is whatever the Admin API reported.
type ReviewEntry struct {
	ID               string `json:"id"`
	SubmissionID     string `json:"submission_id,omitempty"`
	Handle           string `json:"handle"`
	Title            string `json:"title"`
	Instructor       string `json:"instructor,omitempty"`
	StartDate        string `json:"start_date,omitempty"`
	Location         string `json:"location,omitempty"`
	Cost             string `json:"cost,omitempty"`
	Format           string `json:"format,omitempty"`
	Description      string `json:"description,omitempty"`
	SubmittedByName  string `json:"submitted_by_name,omitempty"`
	SubmittedByEmail string `json:"submitted_by_email,omitempty"`
	WorkflowStatus   Status `json:"workflow_status"`
	PublishStatus    string `json:"publish_status,omitempty"`
	Published        bool   `json:"published"`
}

// ModerationResult reports the outcome of an approve/publish/reject/sync action
type ModerationResult struct {
	ID           string           `json:"id"`
	Status       Status           `json:"status"`
	Published    bool             `json:"published"`
	MetaobjectID string           `json:"metaobject_id,omitempty"`
	Message      string           `json:"message"`
	Submission   *ClassSubmission `json:"submission,omitempty"`
}
