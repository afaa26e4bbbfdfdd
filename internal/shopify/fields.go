package shopify

import (
	"strings"
	"time"

	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/normalize"
)

// Metaobject field keys on the class_submission definition
const (
	FieldExternalID       = "external_id"
	FieldTitle            = "class_title"
	FieldDescription      = "class_description"
	FieldInstructor       = "instructor_name"
	FieldFormat           = "format"
	FieldCity             = "location_city"
	FieldState            = "location_state"
	FieldStartDate        = "start_date"
	FieldCost             = "cost"
	FieldRegistrationURL  = "registration_url"
	FieldTopics           = "topics"
	FieldSubmittedByName  = "submitted_by_name"
	FieldSubmittedByEmail = "submitted_by_email"
)

// SubmissionFields maps a stored submission onto metaobject fields. Empty values
// are omitted and the description is wrapped as rich text.
func SubmissionFields(sub *models.ClassSubmission, statusKey string) []models.MetaobjectField {
	all := []models.MetaobjectField{
		{Key: FieldExternalID, Value: sub.Handle},
		{Key: FieldTitle, Value: sub.Title},
		{Key: FieldDescription, Value: normalize.RichText(sub.Description)},
		{Key: FieldInstructor, Value: sub.InstructorName},
		{Key: FieldFormat, Value: string(sub.Format)},
		{Key: FieldCity, Value: sub.City},
		{Key: FieldState, Value: sub.State},
		{Key: FieldStartDate, Value: formatStart(sub.StartDate)},
		{Key: FieldCost, Value: sub.Cost},
		{Key: FieldRegistrationURL, Value: sub.URL},
		{Key: FieldTopics, Value: string(sub.Topic)},
		{Key: FieldSubmittedByName, Value: sub.SubmittedByName},
		{Key: FieldSubmittedByEmail, Value: sub.SubmittedByEmail},
		{Key: statusKey, Value: sub.Status.Label()},
	}

	fields := make([]models.MetaobjectField, 0, len(all))
	for _, f := range all {
		if strings.TrimSpace(f.Value) != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// StatusField is the single-field update used to move workflow state
func StatusField(statusKey string, status models.Status) []models.MetaobjectField {
	return []models.MetaobjectField{{Key: statusKey, Value: status.Label()}}
}

func formatStart(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
