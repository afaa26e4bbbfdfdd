package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/leathercraft-class-submissions/internal/models"
)

// SuffixLength is the number of random characters appended to derived handles
const SuffixLength = 6

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, folds accents and joins alphanumeric runs with "-"
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	slug := nonSlugRe.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}

// Handle returns the upsert key for an intake record. A supplied external id is
// slugified and kept; otherwise one is derived with BuildHandle.
func Handle(in models.ClassIntake, maxLen int) string {
	if in.ExternalID != "" {
		if h := truncate(Slugify(in.ExternalID), maxLen); h != "" {
			return h
		}
	}
	return BuildHandle(in.Title, in.InstructorName, in.StartDate, maxLen)
}

// BuildHandle derives slug(title)-slug(instructor)-YYYYMMDD plus a random suffix.
// With no usable input it falls back to class-<unix millis>.
func BuildHandle(title, instructor, startDate string, maxLen int) string {
	var parts []string
	for _, p := range []string{Slugify(title), Slugify(instructor), dateDigits(startDate)} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	base := strings.Join(parts, "-")
	if base == "" {
		base = "class-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	return WithSuffix(truncate(base, maxLen-SuffixLength-1))
}

// WithSuffix appends a short random suffix, used to dodge handle collisions
func WithSuffix(base string) string {
	return base + "-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:SuffixLength]
}

// dateDigits keeps the digits of the calendar part of a date ("2026-02-01T..." -> "20260201")
func dateDigits(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncate(s string, maxLen int) string {
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.Trim(s, "-")
}
