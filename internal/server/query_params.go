package server

import (
	"errors"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

const (
	formatJSON = "json"
	formatPDF  = "pdf"
)

type reportQuery struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Format    string `form:"format"`
}

// window parses the report bounds. A bare date as endDate covers that whole day.
func (q reportQuery) window() (*time.Time, *time.Time, error) {
	start, err := parseOptionalTime(q.StartDate, false)
	if err != nil {
		return nil, nil, newValidationError("startDate", "invalid_start_date", "startDate must be a date (YYYY-MM-DD) or RFC3339 time")
	}
	end, err := parseOptionalTime(q.EndDate, true)
	if err != nil {
		return nil, nil, newValidationError("endDate", "invalid_end_date", "endDate must be a date (YYYY-MM-DD) or RFC3339 time")
	}
	return start, end, nil
}

func (q reportQuery) format() (string, error) {
	switch strings.ToLower(strings.TrimSpace(q.Format)) {
	case "", formatJSON:
		return formatJSON, nil
	case formatPDF:
		return formatPDF, nil
	default:
		return "", newValidationError("format", "invalid_format", "format must be json or pdf")
	}
}

func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		} else {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		}
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}

// parseBodyTime accepts the same layouts as query parameters for JSON date fields.
func parseBodyTime(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	parsed, err := parseOptionalTime(*value, false)
	if err != nil {
		return nil, newValidationError(field, "invalid_date", field+" must be a date (YYYY-MM-DD) or RFC3339 time")
	}
	return parsed, nil
}
