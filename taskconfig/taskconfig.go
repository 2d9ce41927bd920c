package taskconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Validation errors. Every error returned by Validate wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrEmptySelection   = errors.New("no keywords selected")
	ErrInvalidRangeMode = errors.New("range_mode must be last_24h, last_week, or custom")
)

// DateLayout is the calendar date format accepted for custom ranges.
const DateLayout = "2006-01-02"

// KeywordFlag is one of the built-in keyword checkboxes.
type KeywordFlag string

const (
	KeywordParking         KeywordFlag = "parking"
	KeywordNonMotorVehicle KeywordFlag = "non_motor_vehicle"
	KeywordSharedBike      KeywordFlag = "shared_bike"
)

// Term returns the search term a flag stands for.
func (k KeywordFlag) Term() string {
	switch k {
	case KeywordParking:
		return "停车"
	case KeywordNonMotorVehicle:
		return "非机动车"
	case KeywordSharedBike:
		return "共享单车"
	}
	return ""
}

// RangeMode selects how the collection window is chosen.
type RangeMode string

const (
	RangeLast24h  RangeMode = "last_24h"
	RangeLastWeek RangeMode = "last_week"
	RangeCustom   RangeMode = "custom"
)

// ParseRangeMode accepts the canonical names plus the short "24h" and "1w"
// forms. An empty string means custom.
func ParseRangeMode(s string) (RangeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "custom":
		return RangeCustom, nil
	case "last_24h", "24h":
		return RangeLast24h, nil
	case "last_week", "1w":
		return RangeLastWeek, nil
	}
	return "", ErrInvalidRangeMode
}

// RawInput is the unvalidated state of a collection form.
type RawInput struct {
	RangeMode       string `json:"range_mode"`
	StartDate       string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate         string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Parking         bool   `json:"parking"`
	NonMotorVehicle bool   `json:"non_motor_vehicle"`
	SharedBike      bool   `json:"shared_bike"`
	ExtraKeywords   string `json:"extra_keywords"`
}

// TaskConfig is a validated description of one collection run. Build it
// with Validate and treat it as read-only afterwards.
type TaskConfig struct {
	RangeMode     RangeMode     `json:"range_mode"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       time.Time     `json:"end_date"`
	KeywordFlags  []KeywordFlag `json:"keyword_flags"`
	ExtraKeywords []string      `json:"extra_keywords"`
}

// ValidationError describes why a RawInput was rejected.
type ValidationError struct {
	Kind   error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

var validate = validator.New()

// Validate turns raw form state into a TaskConfig. It never reads the wall
// clock: relative ranges are computed from now, so the same input and now
// always give the same result.
func Validate(raw RawInput, now time.Time) (TaskConfig, error) {
	mode, err := ParseRangeMode(raw.RangeMode)
	if err != nil {
		return TaskConfig{}, &ValidationError{Kind: ErrInvalidRangeMode, Detail: raw.RangeMode}
	}

	// Explicit dates mean nothing for relative ranges, even malformed ones.
	if mode != RangeCustom {
		raw.StartDate, raw.EndDate = "", ""
	}
	if err := validate.Struct(raw); err != nil {
		return TaskConfig{}, structError(err)
	}

	cfg := TaskConfig{RangeMode: mode}

	switch mode {
	case RangeLast24h:
		cfg.StartDate = now.AddDate(0, 0, -1)
		cfg.EndDate = now
	case RangeLastWeek:
		cfg.StartDate = now.AddDate(0, 0, -7)
		cfg.EndDate = now
	case RangeCustom:
		if raw.StartDate == "" || raw.EndDate == "" {
			return TaskConfig{}, &ValidationError{Kind: ErrInvalidDateRange, Detail: "start_date and end_date are required for a custom range"}
		}
		start, err := time.ParseInLocation(DateLayout, raw.StartDate, now.Location())
		if err != nil {
			return TaskConfig{}, &ValidationError{Kind: ErrInvalidDateRange, Detail: "bad start_date " + raw.StartDate}
		}
		end, err := time.ParseInLocation(DateLayout, raw.EndDate, now.Location())
		if err != nil {
			return TaskConfig{}, &ValidationError{Kind: ErrInvalidDateRange, Detail: "bad end_date " + raw.EndDate}
		}
		if start.After(end) {
			return TaskConfig{}, &ValidationError{
				Kind:   ErrInvalidDateRange,
				Detail: fmt.Sprintf("start %s is after end %s", raw.StartDate, raw.EndDate),
			}
		}
		cfg.StartDate = start
		cfg.EndDate = end
	}

	if raw.Parking {
		cfg.KeywordFlags = append(cfg.KeywordFlags, KeywordParking)
	}
	if raw.NonMotorVehicle {
		cfg.KeywordFlags = append(cfg.KeywordFlags, KeywordNonMotorVehicle)
	}
	if raw.SharedBike {
		cfg.KeywordFlags = append(cfg.KeywordFlags, KeywordSharedBike)
	}
	cfg.ExtraKeywords = SplitKeywords(raw.ExtraKeywords)

	if len(cfg.KeywordFlags) == 0 && len(cfg.ExtraKeywords) == 0 {
		return TaskConfig{}, &ValidationError{Kind: ErrEmptySelection, Detail: "select a keyword or enter extra keywords"}
	}

	return cfg, nil
}

// structError maps a validator failure onto our error kinds.
func structError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Kind: ErrInvalidDateRange, Detail: err.Error()}
	}

	fe := fieldErrs[0]
	return &ValidationError{
		Kind:   ErrInvalidDateRange,
		Detail: fmt.Sprintf("%s %v is not a %s date", fe.Field(), fe.Value(), DateLayout),
	}
}

// SplitKeywords splits free text on commas (ASCII or full-width), semicolons
// and whitespace, dropping blanks and repeats.
func SplitKeywords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '，' || r == ';' || r == '；' || r == '、' || unicode.IsSpace(r)
	})

	var keywords []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
	}
	return keywords
}

// Terms returns every search term: flag terms first, then extra keywords.
func (c TaskConfig) Terms() []string {
	terms := make([]string, 0, len(c.KeywordFlags)+len(c.ExtraKeywords))
	for _, flag := range c.KeywordFlags {
		terms = append(terms, flag.Term())
	}
	return append(terms, c.ExtraKeywords...)
}

// Covers reports whether t falls inside the collection window. A custom end
// date covers the whole calendar day.
func (c TaskConfig) Covers(t time.Time) bool {
	if t.Before(c.StartDate) {
		return false
	}
	if c.RangeMode == RangeCustom {
		return t.Before(c.EndDate.AddDate(0, 0, 1))
	}
	return !t.After(c.EndDate)
}
