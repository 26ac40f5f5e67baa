package task

import (
	"regexp"
	"strings"
	"time"

	"taskpad/internal/model"
)

const (
	MaxTitleLen       = 255
	MaxDescriptionLen = 1000
	MaxQueryLen       = 100
	MaxTaskIDLen      = 50
)

const dueDateLayout = "2006-01-02"

var dueDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// CreateResult is the structured outcome of ValidateCreate. Bad input never
// produces an error value; it produces field-keyed messages instead.
// Sanitized values are trimmed raw text: escaping happens at the render
// boundary, not here.
type CreateResult struct {
	Valid  bool
	Errors map[string]string
	Input  ValidatedInput
}

// ValidateCreate checks a raw form field mapping against the task creation
// rules. now anchors the "due date not in the past" check.
func ValidateCreate(fields map[string]string, now time.Time) CreateResult {
	errors := map[string]string{}
	var in ValidatedInput

	title := strings.TrimSpace(fields["title"])
	switch {
	case title == "":
		errors["title"] = "Title is required"
	case len(title) > MaxTitleLen:
		errors["title"] = "Title must be 255 characters or less"
	}
	in.Title = title

	description := strings.TrimSpace(fields["description"])
	if len(description) > MaxDescriptionLen {
		errors["description"] = "Description must be 1000 characters or less"
	}
	in.Description = description

	// No silent default: a missing or unknown priority is an error.
	if p, ok := model.ParsePriority(fields["priority"]); ok {
		in.Priority = p
	} else {
		errors["priority"] = "Priority must be Low, Medium, or High"
	}

	due := strings.TrimSpace(fields["due"])
	if due != "" {
		switch {
		case !dueDatePattern.MatchString(due):
			errors["due"] = "Due date must be in YYYY-MM-DD format"
		case !isCalendarDate(due):
			errors["due"] = "Please enter a valid date"
		case due < now.Format(dueDateLayout):
			errors["due"] = "Due date cannot be in the past"
		default:
			in.Due = &due
		}
	}

	return CreateResult{
		Valid:  len(errors) == 0,
		Errors: errors,
		Input:  in,
	}
}

func isCalendarDate(s string) bool {
	_, err := time.Parse(dueDateLayout, s)
	return err == nil
}

// FilterResult carries both the filter criteria for the store and the
// sanitized raw values for re-rendering the filter form.
type FilterResult struct {
	Valid  bool
	Errors map[string]string

	Q         string
	Priority  model.Priority // "" means any
	Completed string         // "true", "false" or ""
}

// Criteria converts the sanitized filter values into store criteria.
func (r FilterResult) Criteria() Criteria {
	c := Criteria{Q: r.Q, Priority: r.Priority}
	switch r.Completed {
	case "true":
		v := true
		c.Completed = &v
	case "false":
		v := false
		c.Completed = &v
	}
	return c
}

// ValidateFilters checks a raw query mapping. An over-long q is reported as
// an error but the sanitized value is truncated rather than dropped, so the
// page can still render a usable filter form.
func ValidateFilters(query map[string]string) FilterResult {
	errors := map[string]string{}
	r := FilterResult{}

	q := strings.TrimSpace(query["q"])
	if len(q) > MaxQueryLen {
		errors["q"] = "Search query must be 100 characters or less"
		q = strings.ToValidUTF8(q[:MaxQueryLen], "")
	}
	r.Q = q

	if raw := strings.TrimSpace(query["priority"]); raw != "" {
		if p, ok := model.ParsePriority(raw); ok {
			r.Priority = p
		} else {
			errors["priority"] = "Invalid priority filter"
		}
	}

	if raw := strings.TrimSpace(query["completed"]); raw != "" {
		if raw == "true" || raw == "false" {
			r.Completed = raw
		} else {
			errors["completed"] = "Invalid status filter"
		}
	}

	r.Valid = len(errors) == 0
	r.Errors = errors
	return r
}

// ValidateTaskID rejects empty or absurdly long ids before any lookup.
func ValidateTaskID(id string) bool {
	return id != "" && len(id) <= MaxTaskIDLen
}
