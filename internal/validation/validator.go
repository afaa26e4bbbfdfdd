package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/leathercraft-class-submissions/internal/models"
)

// emailRegex is deliberately loose: something@domain.tld with no whitespace
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Errors is every field error found on one record
type Errors []ValidationError

// Error implements error
func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, ve := range e {
		parts = append(parts, ve.Message)
	}
	return strings.Join(parts, "; ")
}

// Map returns field -> message
func (e Errors) Map() map[string]string {
	m := make(map[string]string, len(e))
	for _, ve := range e {
		m[ve.Field] = ve.Message
	}
	return m
}

// Fields returns the failing field names, sorted
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, ve := range e {
		out = append(out, ve.Field)
	}
	sort.Strings(out)
	return out
}

// Batch size errors
var (
	ErrBatchEmpty    = errors.New("batch contains no rows")
	ErrBatchTooLarge = errors.New("batch exceeds maximum row count")
)

// Validator checks normalized intake records. It is safe for concurrent use.
type Validator struct {
	api *validator.Validate
	csv *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		api: newEngine("json"),
		csv: newEngine("csv"),
	}
}

// newEngine builds a validator that reports fields by the given struct tag
func newEngine(tag string) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("practical_email", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("start_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("class_format", func(fl validator.FieldLevel) bool {
		return models.ValidFormats[models.Format(fl.Field().String())]
	})
	_ = v.RegisterValidation("class_topic", func(fl validator.FieldLevel) bool {
		return models.ValidTopics[models.Topic(fl.Field().String())]
	})
	return v
}

// Validate checks an intake record and names fields as the JSON API does.
// Every field is checked; a nil result means the record is clean.
func (v *Validator) Validate(in *models.ClassIntake) Errors {
	return collect(v.api.Struct(in))
}

// ValidateCSV is Validate with fields named by CSV column
func (v *Validator) ValidateCSV(in *models.ClassIntake) Errors {
	return collect(v.csv.Struct(in))
}

// ValidateSubmitter checks batch-level attribution, naming fields as the JSON API does
func (v *Validator) ValidateSubmitter(in *models.SubmitterIntake) Errors {
	return collect(v.api.Struct(in))
}

// ValidateSubmitterCSV is ValidateSubmitter with fields named by CSV column
func (v *Validator) ValidateSubmitterCSV(in *models.SubmitterIntake) Errors {
	return collect(v.csv.Struct(in))
}

// CheckBatchSize enforces min <= n <= max
func CheckBatchSize(n, min, max int) error {
	if n < min {
		return ErrBatchEmpty
	}
	if n > max {
		return fmt.Errorf("%w: %d rows submitted, maximum is %d", ErrBatchTooLarge, n, max)
	}
	return nil
}

func collect(err error) Errors {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Errors{{Field: "record", Message: err.Error()}}
	}

	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		ve := ValidationError{Field: fe.Field(), Message: message(fe)}
		if fe.Tag() != "required" {
			ve.Value = fe.Value()
		}
		out = append(out, ve)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "practical_email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "start_date":
		return fmt.Sprintf("%s must be a valid date (YYYY-MM-DD, MM/DD/YYYY or ISO 8601)", fe.Field())
	case "class_format":
		return fmt.Sprintf("%s must be one of: IN_PERSON, ONLINE, HYBRID", fe.Field())
	case "class_topic":
		return fmt.Sprintf("%s must be a known topic", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
