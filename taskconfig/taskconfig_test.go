package taskconfig

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

// TestValidate_Last24h verifies the relative range is derived from now
func TestValidate_Last24h(t *testing.T) {
	cfg, err := Validate(RawInput{RangeMode: "last_24h", Parking: true}, testNow)
	require.NoError(t, err)

	assert.Equal(t, RangeLast24h, cfg.RangeMode)
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.Equal(t, testNow, cfg.EndDate)
	assert.Equal(t, []KeywordFlag{KeywordParking}, cfg.KeywordFlags)
}

// TestValidate_LastWeek verifies the week range
func TestValidate_LastWeek(t *testing.T) {
	cfg, err := Validate(RawInput{RangeMode: "1w", SharedBike: true}, testNow)
	require.NoError(t, err)

	assert.Equal(t, RangeLastWeek, cfg.RangeMode)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.Equal(t, testNow, cfg.EndDate)
}

// TestValidate_RelativeIgnoresExplicitDates verifies explicit dates have no
// effect outside custom mode, even when they are inverted or malformed
func TestValidate_RelativeIgnoresExplicitDates(t *testing.T) {
	plain, err := Validate(RawInput{RangeMode: "24h", Parking: true}, testNow)
	require.NoError(t, err)

	inputs := []RawInput{
		{RangeMode: "24h", Parking: true, StartDate: "2030-01-01", EndDate: "2020-01-01"},
		{RangeMode: "24h", Parking: true, StartDate: "not a date"},
	}
	for _, raw := range inputs {
		cfg, err := Validate(raw, testNow)
		require.NoError(t, err)
		assert.Equal(t, plain, cfg)
		assert.False(t, cfg.StartDate.After(cfg.EndDate))
	}
}

// TestValidate_Custom verifies calendar dates in the clock's location
func TestValidate_Custom(t *testing.T) {
	cfg, err := Validate(RawInput{
		RangeMode:       "custom",
		StartDate:       "2024-01-01",
		EndDate:         "2024-01-05",
		NonMotorVehicle: true,
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), cfg.EndDate)
}

// TestValidate_CustomSameDay verifies a single-day range is allowed
func TestValidate_CustomSameDay(t *testing.T) {
	cfg, err := Validate(RawInput{StartDate: "2024-01-05", EndDate: "2024-01-05", Parking: true}, testNow)
	require.NoError(t, err)
	assert.Equal(t, RangeCustom, cfg.RangeMode, "empty range mode means custom")
	assert.Equal(t, cfg.StartDate, cfg.EndDate)
}

// TestValidate_InvalidDateRange verifies start after end is rejected
func TestValidate_InvalidDateRange(t *testing.T) {
	_, err := Validate(RawInput{
		RangeMode: "custom",
		StartDate: "2024-01-06",
		EndDate:   "2024-01-05",
		Parking:   true,
	}, testNow)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDateRange))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Error(), "2024-01-06")
}

// TestValidate_CustomMissingDates verifies both dates are required
func TestValidate_CustomMissingDates(t *testing.T) {
	_, err := Validate(RawInput{RangeMode: "custom", StartDate: "2024-01-01", Parking: true}, testNow)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

// TestValidate_MalformedDate verifies date format checking
func TestValidate_MalformedDate(t *testing.T) {
	_, err := Validate(RawInput{StartDate: "01/02/2024", EndDate: "2024-01-05", Parking: true}, testNow)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

// TestValidate_EmptySelection verifies at least one keyword is required
func TestValidate_EmptySelection(t *testing.T) {
	_, err := Validate(RawInput{RangeMode: "last_24h"}, testNow)
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, err = Validate(RawInput{RangeMode: "last_24h", ExtraKeywords: " ,, ;  "}, testNow)
	assert.ErrorIs(t, err, ErrEmptySelection, "separators alone are not keywords")
}

// TestValidate_ExtraKeywordsOnly verifies extras satisfy the selection rule
func TestValidate_ExtraKeywordsOnly(t *testing.T) {
	cfg, err := Validate(RawInput{RangeMode: "last_week", ExtraKeywords: "电动车，充电桩"}, testNow)
	require.NoError(t, err)
	assert.Empty(t, cfg.KeywordFlags)
	assert.Equal(t, []string{"电动车", "充电桩"}, cfg.ExtraKeywords)
}

// TestValidate_InvalidRangeMode verifies unknown modes are rejected
func TestValidate_InvalidRangeMode(t *testing.T) {
	_, err := Validate(RawInput{RangeMode: "fortnight", Parking: true}, testNow)
	assert.ErrorIs(t, err, ErrInvalidRangeMode)
}

// TestValidate_Pure verifies the same input and clock give the same output
func TestValidate_Pure(t *testing.T) {
	raw := RawInput{RangeMode: "last_week", Parking: true, SharedBike: true, ExtraKeywords: "a b a"}

	first, err := Validate(raw, testNow)
	require.NoError(t, err)
	second, err := Validate(raw, testNow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestSplitKeywords verifies separators and deduplication
func TestSplitKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "comma", in: "a,b", want: []string{"a", "b"}},
		{name: "full-width comma", in: "停车场，路边", want: []string{"停车场", "路边"}},
		{name: "mixed whitespace", in: " a\tb\n c ", want: []string{"a", "b", "c"}},
		{name: "semicolons and enumeration comma", in: "a;b、c", want: []string{"a", "b", "c"}},
		{name: "duplicates keep first", in: "b a b", want: []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitKeywords(tt.in))
		})
	}
}

// TestTaskConfig_Terms verifies flag terms come before extras
func TestTaskConfig_Terms(t *testing.T) {
	cfg, err := Validate(RawInput{RangeMode: "24h", Parking: true, SharedBike: true, ExtraKeywords: "罚单"}, testNow)
	require.NoError(t, err)

	assert.Equal(t, []string{"停车", "共享单车", "罚单"}, cfg.Terms())
}

// TestTaskConfig_Covers verifies window membership
func TestTaskConfig_Covers(t *testing.T) {
	custom, err := Validate(RawInput{StartDate: "2024-01-01", EndDate: "2024-01-05", Parking: true}, testNow)
	require.NoError(t, err)

	assert.True(t, custom.Covers(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, custom.Covers(time.Date(2024, 1, 5, 23, 59, 0, 0, time.UTC)), "end date covers the whole day")
	assert.False(t, custom.Covers(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)))
	assert.False(t, custom.Covers(time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)))

	recent, err := Validate(RawInput{RangeMode: "24h", Parking: true}, testNow)
	require.NoError(t, err)

	assert.True(t, recent.Covers(testNow.Add(-time.Hour)))
	assert.True(t, recent.Covers(testNow))
	assert.False(t, recent.Covers(testNow.Add(time.Minute)))
}

// TestParseRangeMode verifies aliases
func TestParseRangeMode(t *testing.T) {
	for in, want := range map[string]RangeMode{
		"":          RangeCustom,
		"custom":    RangeCustom,
		"24h":       RangeLast24h,
		"LAST_24H":  RangeLast24h,
		"1w":        RangeLastWeek,
		"last_week": RangeLastWeek,
	} {
		got, err := ParseRangeMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRangeMode("2w")
	assert.ErrorIs(t, err, ErrInvalidRangeMode)
}
