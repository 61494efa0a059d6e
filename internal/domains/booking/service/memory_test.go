package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"studio/internal/domains/booking/model"
	"studio/internal/domains/booking/repository"
	"studio/shared/constant"
	gDto "studio/shared/dto"
	gRepo "studio/shared/repository"
)

// memoryRepo stores bookings in a map. InsertChecked is deliberately not atomic: it reads,
// waits, then writes, so only the caller's own locking keeps overlapping inserts apart.
type memoryRepo struct {
	mu       sync.Mutex
	bookings map[string]model.Booking
	pause    time.Duration
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{bookings: map[string]model.Booking{}}
}

var _ repository.Booking = (*memoryRepo)(nil)

func idFrom(filter gDto.FilterGroup) string {
	first, _ := filter.Filters[0].(gDto.Filter)
	id, _ := first.Value.(string)

	return id
}

func (m *memoryRepo) Get(_ context.Context, filter gDto.FilterGroup, _ ...string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.bookings[idFrom(filter)], nil
}

// matches applies the equality filters the service sends, so a stale status guard misses.
func matches(booking model.Booking, filter gDto.FilterGroup) bool {
	for _, item := range filter.Filters {
		f, ok := item.(gDto.Filter)
		if !ok || f.Operator != gDto.FilterOperatorEq {
			return false
		}

		switch f.Field {
		case model.FieldID:
			if booking.ID != f.Value {
				return false
			}
		case model.FieldStatus:
			if string(booking.Status) != f.Value {
				return false
			}
		default:
			return false
		}
	}

	return true
}

func (m *memoryRepo) Update(_ context.Context, req map[string]any, filter gDto.FilterGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[idFrom(filter)]
	if !ok || !matches(booking, filter) {
		return fmt.Errorf("failed to update data (booking): %w", gRepo.ErrNoRowsAffected)
	}

	if status, ok := req[model.FieldStatus].(model.Status); ok {
		booking.Status = status
	}

	m.bookings[booking.ID] = booking

	return nil
}

func (m *memoryRepo) ListConfirmed(_ context.Context, roomID string, date time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := date.Format(constant.DayFormat)
	res := []model.Booking{}

	for _, booking := range m.bookings {
		if booking.RoomID == roomID && booking.BookingDate.Format(constant.DayFormat) == day && booking.Status == model.StatusConfirmed {
			res = append(res, booking)
		}
	}

	sort.Slice(res, func(i, j int) bool { return res[i].StartTime < res[j].StartTime })

	return res, nil
}

func (m *memoryRepo) InsertChecked(ctx context.Context, _ string, booking model.Booking, check repository.ConflictCheck) error {
	confirmed, _ := m.ListConfirmed(ctx, booking.RoomID, booking.BookingDate)

	time.Sleep(m.pause)

	if err := check(confirmed); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.bookings[booking.ID] = booking

	return nil
}

func (m *memoryRepo) detail(booking model.Booking) model.Detail {
	return model.Detail{Booking: booking, RoomName: "Studio A", PricePerHour: 65}
}

func (m *memoryRepo) GetDetail(ctx context.Context, filter gDto.FilterGroup) (model.Detail, error) {
	booking, _ := m.Get(ctx, filter)
	if booking.ID == "" {
		return model.Detail{}, nil
	}

	return m.detail(booking), nil
}

func (m *memoryRepo) GetAllDetails(_ context.Context, _ gDto.QueryParams, _ gDto.FilterGroup) ([]model.Detail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make([]model.Detail, 0, len(m.bookings))
	for _, booking := range m.bookings {
		res = append(res, m.detail(booking))
	}

	return res, nil
}

func (m *memoryRepo) CountDetails(_ context.Context, _ gDto.FilterGroup) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.bookings), nil
}

func (m *memoryRepo) confirmedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, booking := range m.bookings {
		if booking.Status == model.StatusConfirmed {
			count++
		}
	}

	return count
}
