package models

import (
	"strings"
	"time"
)

// Status is the moderation state of a submission or batch
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ValidStatuses defines allowed workflow statuses
var ValidStatuses = map[Status]bool{
	StatusPending:  true,
	StatusApproved: true,
	StatusRejected: true,
}

// Label returns the value written to the metaobject status field ("Pending", ...)
func (s Status) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// ParseStatus maps a case-insensitive label to a Status
func ParseStatus(v string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(v)))
	return st, ValidStatuses[st]
}

// Format is how a class is delivered
type Format string

const (
	FormatInPerson Format = "IN_PERSON"
	FormatOnline   Format = "ONLINE"
	FormatHybrid   Format = "HYBRID"
)

// ValidFormats defines allowed class formats
var ValidFormats = map[Format]bool{
	FormatInPerson: true,
	FormatOnline:   true,
	FormatHybrid:   true,
}

// Topic is the craft category of a class
type Topic string

const (
	TopicBeginner      Topic = "BEGINNER"
	TopicTooling       Topic = "TOOLING"
	TopicCarving       Topic = "CARVING"
	TopicDyeing        Topic = "DYEING"
	TopicSaddlery      Topic = "SADDLERY"
	TopicWallets       Topic = "WALLETS"
	TopicBags          Topic = "BAGS"
	TopicBelts         Topic = "BELTS"
	TopicFigureCarving Topic = "FIGURE_CARVING"
	TopicBusinesses    Topic = "BUSINESSES"
	TopicAssembly      Topic = "ASSEMBLY"
	TopicCostuming     Topic = "COSTUMING"
)

// Topics lists every topic in display order
var Topics = []Topic{
	TopicBeginner, TopicTooling, TopicCarving, TopicDyeing, TopicSaddlery, TopicWallets,
	TopicBags, TopicBelts, TopicFigureCarving, TopicBusinesses, TopicAssembly, TopicCostuming,
}

// ValidTopics defines allowed topics
var ValidTopics = func() map[Topic]bool {
	m := make(map[Topic]bool, len(Topics))
	for _, t := range Topics {
		m[t] = true
	}
	return m
}()

// BatchSource records which intake path created a batch
type BatchSource string

const (
	BatchSourceAPI BatchSource = "api"
	BatchSourceCSV BatchSource = "csv"
)

// ClassSubmission is a candidate class listing awaiting or past moderation
type ClassSubmission struct {
	ID               string     `json:"id" db:"id"`
	Handle           string     `json:"handle" db:"handle"`
	BatchID          *string    `json:"batch_id,omitempty" db:"batch_id"`
	SubmittedByName  string     `json:"submitted_by_name" db:"submitted_by_name"`
	SubmittedByEmail string     `json:"submitted_by_email" db:"submitted_by_email"`
	Title            string     `json:"class_title" db:"title"`
	URL              string     `json:"registration_url,omitempty" db:"url"`
	Description      string     `json:"class_description,omitempty" db:"description"`
	InstructorName   string     `json:"instructor_name,omitempty" db:"instructor_name"`
	Format           Format     `json:"format" db:"format"`
	Topic            Topic      `json:"topic" db:"topic"`
	City             string     `json:"location_city" db:"city"`
	State            string     `json:"location_state" db:"state"`
	Cost             string     `json:"cost" db:"cost"`
	StartDate        time.Time  `json:"start_date" db:"start_date"`
	Status           Status     `json:"status" db:"status"`
	MetaobjectID     string     `json:"metaobject_id,omitempty" db:"metaobject_id"`
	PublishedAt      *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Published reports whether the metaobject has been made active
func (s *ClassSubmission) Published() bool {
	return s.PublishedAt != nil
}

// SubmissionBatch groups submissions created together
type SubmissionBatch struct {
	ID               string      `json:"id" db:"id"`
	SubmittedByName  string      `json:"submitted_by_name" db:"submitted_by_name"`
	SubmittedByEmail string      `json:"submitted_by_email" db:"submitted_by_email"`
	Source           BatchSource `json:"source" db:"source"`
	Status           Status      `json:"status" db:"status"`
	RowCount         int         `json:"row_count" db:"row_count"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

// BatchResponse is the API response for a batch with its rows
type BatchResponse struct {
	SubmissionBatch
	Submissions []*ClassSubmission `json:"submissions"`
}
