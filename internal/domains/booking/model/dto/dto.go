package dto

import (
	"strings"
	"time"

	"studio/internal/domains/booking/model"
	"studio/internal/domains/booking/slot"
	"studio/shared"
	"studio/shared/constant"
	gDto "studio/shared/dto"
	gModel "studio/shared/model"
	"studio/shared/timezone"

	"github.com/google/uuid"
)

const DefaultDurationMinutes = 60

type CreateBookingRequest struct {
	RoomID          string `json:"-"`
	FullName        string `json:"full_name"        validate:"max=100"`
	Email           string `json:"email"            validate:"omitempty,email,max=100"`
	Phone           string `json:"phone"            validate:"max=30"`
	Date            string `json:"date"             example:"2025-06-02"`
	StartTime       string `json:"start_time"       example:"10:00"`
	DurationMinutes *int   `json:"duration_minutes" example:"60"`
	Notes           string `json:"notes"            validate:"max=1000"`
}

// Normalize trims surrounding whitespace from every text field.
func (c *CreateBookingRequest) Normalize() {
	c.RoomID = strings.TrimSpace(c.RoomID)
	c.FullName = strings.TrimSpace(c.FullName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Date = strings.TrimSpace(c.Date)
	c.StartTime = strings.TrimSpace(c.StartTime)
	c.Notes = strings.TrimSpace(c.Notes)
}

func (c *CreateBookingRequest) HasRequiredFields() bool {
	return c.RoomID != "" && c.FullName != "" && c.Email != "" && c.Date != "" && c.StartTime != ""
}

func (c *CreateBookingRequest) Duration() int {
	if c.DurationMinutes == nil {
		return DefaultDurationMinutes
	}

	return *c.DurationMinutes
}

func (c *CreateBookingRequest) ToModel(user string, date time.Time, interval slot.Interval) model.Booking {
	return model.Booking{
		ID:          uuid.NewString(),
		RoomID:      c.RoomID,
		FullName:    c.FullName,
		Email:       c.Email,
		Phone:       c.Phone,
		BookingDate: date,
		StartTime:   interval.Start,
		EndTime:     interval.End,
		Status:      model.StatusConfirmed,
		Notes:       c.Notes,
		Metadata:    gModel.NewMetadata(user),
	}
}

type CancelBookingRequest struct {
	Status model.Status `db:"status"`
}

type BookingResponse struct {
	ID              string         `json:"id"`
	RoomID          string         `json:"room_id"`
	FullName        string         `json:"full_name"`
	Email           string         `json:"email"`
	Phone           string         `json:"phone"`
	Date            string         `json:"date"`
	StartTime       slot.TimeOfDay `json:"start_time"       swaggertype:"string" example:"10:00"`
	EndTime         slot.TimeOfDay `json:"end_time"         swaggertype:"string" example:"11:00"`
	DurationMinutes int            `json:"duration_minutes"`
	Status          model.Status   `json:"status"`
	Notes           string         `json:"notes"`
	gDto.Metadata
}

// FromModel renders the booking date as stored; it is a calendar day, not an instant.
func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.RoomID = model.RoomID
	r.FullName = model.FullName
	r.Email = model.Email
	r.Phone = model.Phone
	r.Date = model.BookingDate.Format(constant.DayFormat)
	r.StartTime = model.StartTime
	r.EndTime = model.EndTime
	r.DurationMinutes = model.Interval().Duration()
	r.Status = model.Status
	r.Notes = model.Notes
	r.Metadata.FromModel(model.Metadata)
}

type BookingDetailResponse struct {
	BookingResponse
	RoomName     string  `json:"room_name"`
	PricePerHour float64 `json:"price_per_hour"`
	TotalPrice   float64 `json:"total_price"`
}

func (r *BookingDetailResponse) FromModel(detail model.Detail) {
	r.BookingResponse.FromModel(detail.Booking)
	r.RoomName = detail.RoomName
	r.PricePerHour = detail.PricePerHour
	r.TotalPrice = detail.TotalPrice()
}

type GetBookingsResponse struct {
	Bookings  []BookingDetailResponse `json:"bookings"`
	TotalPage int                     `json:"total_page"`
	TotalData int                     `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Detail, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingDetailResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}

type AvailabilityResponse struct {
	RoomID string          `json:"room_id"`
	Date   string          `json:"date"`
	Open   slot.TimeOfDay  `json:"open"   swaggertype:"string" example:"08:00"`
	Close  slot.TimeOfDay  `json:"close"  swaggertype:"string" example:"22:00"`
	Booked []slot.Interval `json:"booked"`
}

func (r *AvailabilityResponse) FromModels(roomID string, date time.Time, bookings []model.Booking) {
	r.RoomID = roomID
	r.Date = date.Format(constant.DayFormat)
	r.Open = slot.Open
	r.Close = slot.Close

	r.Booked = make([]slot.Interval, len(bookings))
	for i, booking := range bookings {
		r.Booked[i] = booking.Interval()
	}
}

type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingCancelled EventType = "booking.cancelled"
)

// BookingEvent is the payload published for every state change of a booking.
type BookingEvent struct {
	Type       EventType      `json:"type"`
	BookingID  string         `json:"booking_id"`
	RoomID     string         `json:"room_id"`
	Date       string         `json:"date"`
	StartTime  slot.TimeOfDay `json:"start_time"`
	EndTime    slot.TimeOfDay `json:"end_time"`
	Email      string         `json:"email"`
	OccurredAt string         `json:"occurred_at"`
}

func (e *BookingEvent) FromModel(eventType EventType, booking model.Booking) {
	e.Type = eventType
	e.BookingID = booking.ID
	e.RoomID = booking.RoomID
	e.Date = booking.BookingDate.Format(constant.DayFormat)
	e.StartTime = booking.StartTime
	e.EndTime = booking.EndTime
	e.Email = booking.Email
	e.OccurredAt = timezone.Format(timezone.Now(), constant.DateFormat)
}

// ListFilter narrows the booking listing. A zero To leaves the range open ended and an
// empty Status means confirmed.
type ListFilter struct {
	From   time.Time
	To     time.Time
	RoomID string
	Status model.Status
}

func (f ListFilter) ToFilterGroup() gDto.FilterGroup {
	status := f.Status
	if status == "" {
		status = model.StatusConfirmed
	}

	filters := []any{
		gDto.Filter{Field: model.FieldStatus, Value: string(status), Operator: gDto.FilterOperatorEq, Table: model.TableName},
		gDto.Filter{
			ArgName:  "date_from",
			Field:    model.FieldBookingDate,
			Value:    f.From.Format(constant.DayFormat),
			Operator: gDto.FilterOperatorGreaterEq,
			Table:    model.TableName,
		},
	}

	if !f.To.IsZero() {
		filters = append(filters, gDto.Filter{
			ArgName:  "date_to",
			Field:    model.FieldBookingDate,
			Value:    f.To.Format(constant.DayFormat),
			Operator: gDto.FilterOperatorLessEq,
			Table:    model.TableName,
		})
	}

	if f.RoomID != "" {
		filters = append(filters, gDto.Filter{Field: model.FieldRoomID, Value: f.RoomID, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	return gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters}
}
