package validator_test

import (
	"net/http"
	"strings"
	"testing"

	"studio/shared/failure"
	"studio/shared/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pngDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

type roomRequest struct {
	Name         string  `json:"name"           validate:"required,max=20"`
	PricePerHour float64 `json:"price_per_hour" validate:"gt=0"`
	PhotoURL     string  `json:"photo_url"      validate:"omitempty,url"`
	Photo        string  `json:"photo"          validate:"omitempty,mimetypes=image/png image/jpeg,maxfilesize=1"`
}

type bookingRequest struct {
	Email  string `json:"email"  validate:"omitempty,email"`
	Status string `json:"status" validate:"omitempty,oneof=confirmed cancelled"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		data    roomRequest
		wantMsg string
	}{
		{
			name: "valid room",
			data: roomRequest{Name: "Studio A", PricePerHour: 65},
		},
		{
			name: "valid room with photo",
			data: roomRequest{Name: "Studio A", PricePerHour: 65, Photo: pngDataURL},
		},
		{
			name:    "missing name",
			data:    roomRequest{PricePerHour: 65},
			wantMsg: "name is required",
		},
		{
			name:    "zero price",
			data:    roomRequest{Name: "Studio A"},
			wantMsg: "price_per_hour must be greater than 0",
		},
		{
			name:    "name too long",
			data:    roomRequest{Name: strings.Repeat("a", 21), PricePerHour: 65},
			wantMsg: "name must be at most 20",
		},
		{
			name:    "bad url",
			data:    roomRequest{Name: "Studio A", PricePerHour: 65, PhotoURL: "not a url"},
			wantMsg: "photo_url must be a valid URL",
		},
		{
			name:    "photo is not a data url",
			data:    roomRequest{Name: "Studio A", PricePerHour: 65, Photo: "plain text"},
			wantMsg: "photo must be one of the types [image/png image/jpeg]",
		},
		{
			name:    "several fields",
			data:    roomRequest{},
			wantMsg: "name is required; price_per_hour must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateStruct(&tt.data)

			if tt.wantMsg == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
		})
	}
}

func TestValidateVar(t *testing.T) {
	tests := []struct {
		name    string
		field   any
		tag     string
		wantErr bool
	}{
		{name: "empty status allowed", field: "", tag: "omitempty,oneof=confirmed cancelled"},
		{name: "known status", field: "cancelled", tag: "omitempty,oneof=confirmed cancelled"},
		{name: "unknown status", field: "pending", tag: "omitempty,oneof=confirmed cancelled", wantErr: true},
		{name: "required missing", field: "", tag: "required", wantErr: true},
		{name: "email", field: "ana@example.com", tag: "email"},
		{name: "bad email", field: "ana@", tag: "email", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateVar(tt.field, tt.tag)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("decodes and validates", func(t *testing.T) {
		var req bookingRequest

		err := validator.Validate(strings.NewReader(`{"email":"ana@example.com","status":"confirmed"}`), &req)

		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", req.Email)
	})

	t.Run("malformed json", func(t *testing.T) {
		var req bookingRequest

		err := validator.Validate(strings.NewReader(`{"email":`), &req)

		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
		assert.Contains(t, err.Error(), "failed to decode request body")
	})

	t.Run("invalid field", func(t *testing.T) {
		var req bookingRequest

		err := validator.Validate(strings.NewReader(`{"status":"pending"}`), &req)

		require.Error(t, err)
		assert.Equal(t, "status must be one of [confirmed cancelled]", err.Error())
	})
}

func TestMaxFileSize(t *testing.T) {
	big := "data:image/png;base64," + strings.Repeat("A", 2*1024*1024)

	err := validator.ValidateStruct(&roomRequest{Name: "Studio A", PricePerHour: 65, Photo: big})

	require.Error(t, err)
	assert.Equal(t, "photo must not exceed 1 MB", err.Error())
}
