// Package config loads and validates environment variables at startup.
// Fail-fast: if the API token is missing, the run aborts before any request.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultSearchTerm = "exprom"
	DefaultDaysBack   = 30.0
	DefaultOutputFile = "form_submissions.xlsx"
	DefaultBaseURL    = "https://api.hubapi.com"

	dayMillis = 86_400_000
)

// ConfigurationError reports a required variable that is absent.
type ConfigurationError struct {
	Var string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is required", e.Var)
}

// Config holds all runtime configuration for one export run.
// It is built once and passed by value into each component.
type Config struct {
	Token             string
	SearchTerm        string // lower-cased
	DaysBack          float64
	Cutoff            time.Time
	OutputFile        string
	BaseURL           string
	AssumeNewestFirst bool   // stop paging a form at the first stale submission
	Schedule          string // cron spec, only read by the schedule command
}

// Load reads environment variables and returns a validated Config whose
// cutoff is computed relative to now.
func Load(now time.Time) (*Config, error) {
	token := os.Getenv("API_TOKEN")
	if token == "" {
		return nil, &ConfigurationError{Var: "API_TOKEN"}
	}

	term := os.Getenv("SEARCH_TERM")
	if term == "" {
		term = DefaultSearchTerm
	}

	daysBack := DefaultDaysBack
	if s := strings.TrimSpace(os.Getenv("DAYS_BACK")); s != "" {
		// Bad values fall back to the default rather than failing the run.
		if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 && !math.IsInf(v, 1) {
			daysBack = v
		}
	}

	output := os.Getenv("OUTPUT_FILE")
	if output == "" {
		output = DefaultOutputFile
	}

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	newestFirst := true
	if s := os.Getenv("ASSUME_NEWEST_FIRST"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("ASSUME_NEWEST_FIRST must be a boolean, got %q", s)
		}
		newestFirst = v
	}

	return &Config{
		Token:             token,
		SearchTerm:        strings.ToLower(term),
		DaysBack:          daysBack,
		Cutoff:            CutoffFrom(now, daysBack),
		OutputFile:        output,
		BaseURL:           strings.TrimRight(baseURL, "/"),
		AssumeNewestFirst: newestFirst,
		Schedule:          strings.TrimSpace(os.Getenv("EXPORT_SCHEDULE")),
	}, nil
}

// CutoffFrom returns now minus daysBack 24-hour periods, in milliseconds.
// Calendar and timezone effects are ignored.
func CutoffFrom(now time.Time, daysBack float64) time.Time {
	ms := now.UnixMilli() - int64(daysBack*dayMillis)
	return time.UnixMilli(ms).UTC()
}
