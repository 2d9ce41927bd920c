package discovery

import (
	"testing"
	"time"

	"github.com/pevans/newsseeker/newsfeed"
	"github.com/pevans/newsseeker/taskconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: a custom-range config for 2024-01-01..2024-01-05
func testTaskConfig(t *testing.T, extra string) taskconfig.TaskConfig {
	t.Helper()
	cfg, err := taskconfig.Validate(taskconfig.RawInput{
		RangeMode:       "custom",
		StartDate:       "2024-01-01",
		EndDate:         "2024-01-05",
		Parking:         true,
		NonMotorVehicle: true,
		SharedBike:      true,
		ExtraKeywords:   extra,
	}, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return cfg
}

// Test helper: pointer to a UTC date
func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	return &d
}

// TestMatch verifies date and keyword filtering
func TestMatch(t *testing.T) {
	cfg := testTaskConfig(t, "E-Bike")

	tests := []struct {
		name string
		item newsfeed.NewsItem
		want []string
		ok   bool
	}{
		{
			name: "title match in range",
			item: newsfeed.NewsItem{Title: "共享单车停放新规", PublishedAt: datePtr(2024, 1, 3)},
			want: []string{"共享单车"},
			ok:   true,
		},
		{
			name: "summary match",
			item: newsfeed.NewsItem{Title: "城市交通", Summary: "非机动车道与停车位", PublishedAt: datePtr(2024, 1, 5)},
			want: []string{"停车", "非机动车"},
			ok:   true,
		},
		{
			name: "extra keyword ignores case",
			item: newsfeed.NewsItem{Title: "New e-bike rules", PublishedAt: datePtr(2024, 1, 2)},
			want: []string{"E-Bike"},
			ok:   true,
		},
		{
			name: "undated item is kept",
			item: newsfeed.NewsItem{Title: "停车难"},
			want: []string{"停车"},
			ok:   true,
		},
		{
			name: "out of range",
			item: newsfeed.NewsItem{Title: "停车难", PublishedAt: datePtr(2023, 12, 31)},
			ok:   false,
		},
		{
			name: "no keyword",
			item: newsfeed.NewsItem{Title: "天气预报", PublishedAt: datePtr(2024, 1, 3)},
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Match(tt.item, cfg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
