package slot_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"studio/internal/domains/booking/slot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    slot.TimeOfDay
		wantErr bool
	}{
		{name: "opening", input: "08:00", want: slot.Clock(8, 0)},
		{name: "midnight", input: "00:00", want: 0},
		{name: "last minute", input: "23:59", want: slot.Clock(23, 59)},
		{name: "half past", input: "10:30", want: slot.Clock(10, 30)},
		{name: "single digit hour", input: "8:00", wantErr: true},
		{name: "seconds", input: "08:00:00", wantErr: true},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "10:60", wantErr: true},
		{name: "no colon", input: "10.00", wantErr: true},
		{name: "letters", input: "ab:cd", wantErr: true},
		{name: "sign", input: "-1:00", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := slot.ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, slot.ErrMalformedTime)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestTimeOfDay_AddMinutes(t *testing.T) {
	start := slot.Clock(10, 0)

	end, err := start.AddMinutes(90)
	require.NoError(t, err)
	assert.Equal(t, "11:30", end.String())

	end, err = slot.Clock(23, 0).AddMinutes(59)
	require.NoError(t, err)
	assert.Equal(t, "23:59", end.String())

	_, err = slot.Clock(23, 30).AddMinutes(60)
	assert.ErrorIs(t, err, slot.ErrDayOverflow)

	_, err = slot.Clock(23, 0).AddMinutes(60)
	assert.ErrorIs(t, err, slot.ErrDayOverflow)

	_, err = start.AddMinutes(-30)
	assert.ErrorIs(t, err, slot.ErrDayOverflow)

	end, err = start.AddMinutes(math.MaxInt)
	assert.ErrorIs(t, err, slot.ErrDayOverflow)
	assert.Zero(t, end)
}

func TestTimeOfDay_On(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, loc)

	got := slot.Clock(21, 15).On(date)

	assert.Equal(t, time.Date(2025, 3, 14, 21, 15, 0, 0, loc), got)
}

func TestTimeOfDay_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		want    string
		wantErr bool
	}{
		{name: "time value", src: time.Date(0, 1, 1, 9, 45, 0, 0, time.UTC), want: "09:45"},
		{name: "bytes with seconds", src: []byte("14:00:00"), want: "14:00"},
		{name: "string", src: "21:30", want: "21:30"},
		{name: "garbage", src: "noon", wantErr: true},
		{name: "unsupported type", src: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got slot.TimeOfDay

			err := got.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestTimeOfDay_Value(t *testing.T) {
	val, err := slot.Clock(7, 5).Value()

	require.NoError(t, err)
	assert.Equal(t, "07:05", val)
}

func TestTimeOfDay_JSON(t *testing.T) {
	raw, err := json.Marshal(slot.Interval{Start: slot.Clock(10, 0), End: slot.Clock(11, 0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"10:00","end":"11:00"}`, string(raw))

	var parsed slot.TimeOfDay
	assert.ErrorIs(t, json.Unmarshal([]byte(`"7pm"`), &parsed), slot.ErrMalformedTime)
	assert.ErrorIs(t, json.Unmarshal([]byte(`1900`), &parsed), slot.ErrMalformedTime)
}
