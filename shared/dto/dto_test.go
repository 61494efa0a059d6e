package dto_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"studio/shared/constant"
	"studio/shared/dto"
	"studio/shared/model"
	"studio/shared/timezone"

	"github.com/stretchr/testify/assert"
)

func TestMetadata_FromModel(t *testing.T) {
	created := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	modified := created.Add(2 * time.Hour)

	var metadata dto.Metadata
	metadata.FromModel(model.Metadata{
		CreatedAt:  created,
		ModifiedAt: modified,
		CreatedBy:  constant.ContextGuest,
		ModifiedBy: "admin",
	})

	assert.Equal(t, timezone.Format(created, constant.DateFormat), metadata.CreatedAt)
	assert.Equal(t, timezone.Format(modified, constant.DateFormat), metadata.ModifiedAt)
	assert.Equal(t, constant.ContextGuest, metadata.CreatedBy)
	assert.Equal(t, "admin", metadata.ModifiedBy)
}

func TestQueryParams_FromRequest(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		defaultRequest bool
		expected       dto.QueryParams
	}{
		{
			name:     "all parameters",
			query:    "page=2&limit=20&sort_by=name&sort_dir=asc",
			expected: dto.QueryParams{Page: 2, Limit: 20, SortBy: "name", SortDir: dto.SortDirAsc},
		},
		{
			name:           "defaults",
			defaultRequest: true,
			expected:       dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit},
		},
		{
			name:     "no defaults",
			expected: dto.QueryParams{},
		},
		{
			name:           "invalid numbers fall back to defaults",
			query:          "page=abc&limit=-5",
			defaultRequest: true,
			expected:       dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit},
		},
		{
			name:     "limit is clamped",
			query:    "limit=5000",
			expected: dto.QueryParams{Limit: constant.MaxValueLimit},
		},
		{
			name:     "unknown sort direction is ignored",
			query:    "sort_dir=sideways",
			expected: dto.QueryParams{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/bookings?"+tt.query, nil)

			var params dto.QueryParams
			params.FromRequest(req, tt.defaultRequest)

			assert.Equal(t, tt.expected, params)
		})
	}
}

func TestQueryParams_AllowSort(t *testing.T) {
	columns := map[string]string{
		"booking_date": "bookings.booking_date",
		"start_time":   "bookings.start_time",
	}

	tests := []struct {
		name     string
		params   dto.QueryParams
		expected dto.QueryParams
	}{
		{
			name:     "known column",
			params:   dto.QueryParams{SortBy: "start_time", SortDir: dto.SortDirAsc},
			expected: dto.QueryParams{SortBy: "bookings.start_time", SortDir: dto.SortDirAsc},
		},
		{
			name:     "unknown column uses fallback",
			params:   dto.QueryParams{SortBy: "1; DROP TABLE bookings"},
			expected: dto.QueryParams{SortBy: "bookings.booking_date", SortDir: dto.SortDirDesc},
		},
		{
			name:     "empty sort",
			params:   dto.QueryParams{},
			expected: dto.QueryParams{SortBy: "bookings.booking_date", SortDir: dto.SortDirDesc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := tt.params
			params.AllowSort(columns, "booking_date")

			assert.Equal(t, tt.expected, params)
		})
	}
}
