// Package timezone pins the wall clock of the studio. Booking days, business hours and
// calendar exports are all read in the location configured by APP_TIMEZONE.
package timezone

import (
	"fmt"
	"time"

	"studio/config"

	"github.com/rs/zerolog/log"
)

var appLocation = time.UTC

func init() {
	name := config.Get().App.Timezone
	if name == "" {
		log.Warn().Msg("No timezone configured, using UTC")

		return
	}

	if err := SetLocation(name); err != nil {
		log.Error().Err(err).Str("timezone", name).Msg("Failed to load timezone, falling back to UTC")

		return
	}

	log.Info().Str("timezone", name).Msg("Application timezone initialized")
}

// SetLocation switches the application timezone to the IANA zone name.
func SetLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("failed to load location %q: %w", name, err)
	}

	appLocation = loc

	return nil
}

func GetLocation() *time.Location {
	return appLocation
}

// Now returns the current time in the application timezone.
func Now() time.Time {
	return time.Now().In(appLocation)
}

// Today returns midnight of the current studio day.
func Today() time.Time {
	return StartOfDay(Now())
}

// StartOfDay returns midnight of the day t falls on in the application timezone.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.In(appLocation).Date()

	return time.Date(year, month, day, 0, 0, 0, 0, appLocation)
}

func ToAppTime(t time.Time) time.Time {
	return t.In(appLocation)
}

// Parse reads value in the application timezone.
func Parse(layout, value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(layout, value, appLocation)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %q: %w", value, err)
	}

	return parsed, nil
}

func Format(t time.Time, layout string) string {
	return ToAppTime(t).Format(layout)
}
