package model

import (
	"errors"
	"time"

	"studio/internal/domains/booking/slot"
	roomModel "studio/internal/domains/room/model"
	"studio/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID          = "id"
	FieldRoomID      = "room_id"
	FieldFullName    = "full_name"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldBookingDate = "booking_date"
	FieldStartTime   = "start_time"
	FieldEndTime     = "end_time"
	FieldStatus      = "status"
	FieldNotes       = "notes"
)

var (
	ErrMissingRequiredField = errors.New("please fill all required fields")
	ErrInvalidDateOrTime    = errors.New("invalid date/time")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrInvalidTransition    = errors.New("invalid booking status transition")

	// ErrRoomNotFound is shared with the room domain so callers can match either.
	ErrRoomNotFound = roomModel.ErrRoomNotFound
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// CanTransitionTo reports whether a booking may move from s to next.
// The only legal move is confirmed to cancelled.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusConfirmed && next == StatusCancelled
}

type Booking struct {
	ID          string         `db:"id"`
	RoomID      string         `db:"room_id"`
	FullName    string         `db:"full_name"`
	Email       string         `db:"email"`
	Phone       string         `db:"phone"`
	BookingDate time.Time      `db:"booking_date"`
	StartTime   slot.TimeOfDay `db:"start_time"`
	EndTime     slot.TimeOfDay `db:"end_time"`
	Status      Status         `db:"status"`
	Notes       string         `db:"notes"`
	model.Metadata
}

func (b Booking) Interval() slot.Interval {
	return slot.Interval{Start: b.StartTime, End: b.EndTime}
}

// Detail is a booking joined with the room it reserves.
type Detail struct {
	Booking
	RoomName     string  `db:"room_name"      table:"rooms" column:"name"`
	PricePerHour float64 `db:"price_per_hour" table:"rooms" column:"price_per_hour"`
}

func (Detail) GetJoinQuery() string {
	return "JOIN rooms ON rooms.id = bookings.room_id"
}

func (d Detail) TotalPrice() float64 {
	return d.PricePerHour * float64(d.Interval().Duration()) / 60
}
