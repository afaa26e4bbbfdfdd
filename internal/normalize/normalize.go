// Package normalize turns loosely typed form, JSON and CSV input into
// models.ClassIntake records.
package normalize

import (
	"strings"

	"github.com/leathercraft-class-submissions/internal/models"
)

// Record is one raw input row: field name to string value.
// Keys may use the public form's camelCase or the CSV header's snake_case.
type Record map[string]string

// Get returns the first non-empty trimmed value among keys
func (r Record) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r[k]); v != "" {
			return v
		}
	}
	return ""
}

// Key aliases accepted for each intake field
var (
	keysExternalID  = []string{"externalId", "external_id"}
	keysName        = []string{"submittedByName", "submitted_by_name"}
	keysEmail       = []string{"submittedByEmail", "submitted_by_email"}
	keysTitle       = []string{"classTitle", "class_title", "title"}
	keysURL         = []string{"classUrl", "registration_url", "registrationUrl", "url"}
	keysDescription = []string{"description", "class_description", "classDescription"}
	keysInstructor  = []string{"instructorName", "instructor_name"}
	keysFormat      = []string{"format"}
	keysTopic       = []string{"topic", "topics"}
	keysCity        = []string{"locationCity", "location_city"}
	keysState       = []string{"locationState", "location_state"}
	keysCost        = []string{"cost"}
	keysStartDate   = []string{"startDate", "start_date"}
)

// FromRecord maps a raw record onto a ClassIntake.
// Any status value in the record is ignored; new submissions are always pending.
func FromRecord(r Record) models.ClassIntake {
	return models.ClassIntake{
		ExternalID:       r.Get(keysExternalID...),
		SubmittedByName:  r.Get(keysName...),
		SubmittedByEmail: r.Get(keysEmail...),
		Title:            r.Get(keysTitle...),
		URL:              r.Get(keysURL...),
		Description:      r.Get(keysDescription...),
		InstructorName:   r.Get(keysInstructor...),
		Format:           Format(r.Get(keysFormat...)),
		Topic:            Topic(r.Get(keysTopic...)),
		City:             r.Get(keysCity...),
		State:            r.Get(keysState...),
		Cost:             r.Get(keysCost...),
		StartDate:        StartDate(r.Get(keysStartDate...)),
	}
}

// WithSubmitter fills missing attribution from a batch-level submitter
func WithSubmitter(in models.ClassIntake, name, email string) models.ClassIntake {
	if in.SubmittedByName == "" {
		in.SubmittedByName = strings.TrimSpace(name)
	}
	if in.SubmittedByEmail == "" {
		in.SubmittedByEmail = strings.TrimSpace(email)
	}
	return in
}

// Format maps a free-text label to a class format; unknown labels mean in-person
func Format(label string) models.Format {
	switch squash(label) {
	case "online":
		return models.FormatOnline
	case "hybrid":
		return models.FormatHybrid
	default:
		return models.FormatInPerson
	}
}

// Topic maps a free-text label to a topic; unknown labels mean beginner.
// A comma-separated list resolves to its first known entry.
func Topic(label string) models.Topic {
	for _, part := range strings.Split(label, ",") {
		key := strings.ToUpper(strings.TrimSpace(part))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		if t := models.Topic(key); models.ValidTopics[t] {
			return t
		}
	}
	return models.TopicBeginner
}

// squash lowercases and strips separators: "In-Person" -> "inperson"
func squash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}
