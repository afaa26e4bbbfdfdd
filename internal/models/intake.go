package models

// ClassIntake is a normalized intake record, ready for validation.
// The json tag names fields in API error maps, the csv tag in CSV import messages.
type ClassIntake struct {
	ExternalID       string `json:"externalId" csv:"external_id"`
	SubmittedByName  string `json:"submittedByName" csv:"submitted_by_name" validate:"required,max=200"`
	SubmittedByEmail string `json:"submittedByEmail" csv:"submitted_by_email" validate:"required,max=254,practical_email"`
	Title            string `json:"classTitle" csv:"class_title" validate:"required,max=255"`
	URL              string `json:"classUrl" csv:"registration_url" validate:"max=2048"`
	Description      string `json:"description" csv:"class_description" validate:"max=10000"`
	InstructorName   string `json:"instructorName" csv:"instructor_name" validate:"max=200"`
	Format           Format `json:"format" csv:"format" validate:"required,class_format"`
	Topic            Topic  `json:"topic" csv:"topics" validate:"required,class_topic"`
	City             string `json:"locationCity" csv:"location_city" validate:"required,max=120"`
	State            string `json:"locationState" csv:"location_state" validate:"required,max=120"`
	Cost             string `json:"cost" csv:"cost" validate:"required,max=120"`
	// StartDate is RFC 3339 once normalized; anything else is rejected by validation.
	StartDate string `json:"startDate" csv:"start_date" validate:"required,start_date"`
}

// SubmitterIntake is batch-level attribution. Both fields are optional, but a
// value that is supplied must be usable since it is stored on the batch.
type SubmitterIntake struct {
	Name  string `json:"submittedByName" csv:"submitted_by_name" validate:"omitempty,max=200"`
	Email string `json:"submittedByEmail" csv:"submitted_by_email" validate:"omitempty,max=254,practical_email"`
}

// CSVHeader is the column order accepted by the CSV import and produced by the CSV export
var CSVHeader = []string{
	"external_id", "class_title", "class_description", "instructor_name", "format",
	"location_city", "location_state", "start_date", "cost", "registration_url",
	"topics", "status", "submitted_by_name", "submitted_by_email",
}

// RowError is a validation failure for one row of a batch (Row is 1-based)
type RowError struct {
	Row    int               `json:"row"`
	Errors map[string]string `json:"errors"`
}
