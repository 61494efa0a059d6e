package booking

import (
	"net/http"
	"time"

	"studio/infras/otel"
	"studio/internal/domains/booking/model"
	"studio/internal/domains/booking/model/dto"
	"studio/internal/domains/booking/service"
	"studio/shared/constant"
	gDto "studio/shared/dto"
	"studio/shared/failure"
	"studio/shared/timezone"
	"studio/shared/validator"
	"studio/transport/http/middleware"
	"studio/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	requestParamStatus = "status"
	requestParamTo     = "to"
)

var sortColumns = map[string]string{
	model.FieldBookingDate:  model.TableName + "." + model.FieldBookingDate,
	model.FieldStartTime:    model.TableName + "." + model.FieldStartTime,
	model.FieldFullName:     model.TableName + "." + model.FieldFullName,
	constant.FieldCreatedAt: model.TableName + "." + constant.FieldCreatedAt,
}

type Handler struct {
	service    service.Booking
	middleware middleware.AuthRole
	otel       otel.Otel
}

func New(service service.Booking, middleware middleware.AuthRole, otel otel.Otel) Handler {
	return Handler{
		service:    service,
		middleware: middleware,
		otel:       otel,
	}
}

// RoomRouter registers the booking routes nested under /rooms.
func (handler *Handler) RoomRouter(router chi.Router) {
	router.Get("/{id}/availability", handler.GetAvailability)
	router.Post("/{id}/bookings", handler.CreateBooking)
}

// Router registers routes relative to the /bookings group.
func (handler *Handler) Router(router chi.Router) {
	router.Get("/{id}", handler.GetBookingByID)
	router.Get("/{id}/ics", handler.GetBookingCalendar)

	router.Group(func(admin chi.Router) {
		admin.Use(handler.middleware.Auth, handler.middleware.RBAC)
		admin.Get("/", handler.GetBookings)
		admin.Post("/{id}/cancel", handler.CancelBooking)
	})
}

func parseDay(value string) (time.Time, error) {
	if value == constant.Empty {
		return timezone.Today(), nil
	}

	day, err := timezone.Parse(constant.DayFormat, value)
	if err != nil {
		return time.Time{}, failure.BadRequest(model.ErrInvalidDateOrTime) // nolint:wrapcheck
	}

	return day, nil
}

// dayOrToday is the lenient form of parseDay used by public pages: a bad value means today.
func dayOrToday(value string) time.Time {
	day, err := parseDay(value)
	if err != nil {
		log.Debug().Str("date", value).Msg("unparsable date, using today")

		return timezone.Today()
	}

	return day
}

// CreateBooking books an hourly slot in a room.
// @Summary Book a room
// @Description Book a slot between 08:00 and 22:00. Overlapping a confirmed booking returns 409 with the clashing slot.
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param request body dto.CreateBookingRequest true "Create Booking Request"
// @Success 201 {object} response.Data[dto.BookingResponse] "Booking created"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id}/bookings [post]
func (handler *Handler) CreateBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateBooking")
	defer scope.End()

	req := dto.CreateBookingRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	req.RoomID = chi.URLParam(request, constant.RequestParamID)

	booking, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("room_id", req.RoomID).Msg("failed to create booking")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking " + booking.ID + " created")

	response.WithJSON(writer, http.StatusCreated, booking)
}

// GetAvailability lists the confirmed slots of a room on one day.
// @Summary Room availability
// @Description List booked slots of a room for a day. A missing or unparsable date means today.
// @Tags Booking
// @Produce json
// @Param id path string true "Room ID"
// @Param date query string false "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.AvailabilityResponse] "Booked slots"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id}/availability [get]
func (handler *Handler) GetAvailability(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetAvailability")
	defer scope.End()

	roomID := chi.URLParam(request, constant.RequestParamID)

	day := dayOrToday(request.URL.Query().Get(constant.RequestParamDate))

	availability, err := handler.service.ListAvailability(ctx, roomID, day)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to list availability")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, availability)
}

// GetBookings lists upcoming bookings for the admin dashboard.
// @Summary Get bookings
// @Description List bookings from a day onwards (defaults to today), optionally up to a day, for one room and status.
// @Tags Booking
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param date query string false "From day (YYYY-MM-DD)"
// @Param to query string false "Until day inclusive (YYYY-MM-DD)"
// @Param room_id query string false "Filter by room"
// @Param status query string false "confirmed or cancelled"
// @Success 200 {object} response.Data[dto.GetBookingsResponse] "List of bookings"
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [get]
// @Security BearerAuth
func (handler *Handler) GetBookings(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookings")
	defer scope.End()

	query := request.URL.Query()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)
	queryParams.AllowSort(sortColumns, model.FieldBookingDate)

	if query.Get(constant.RequestParamSortDir) == "" {
		queryParams.SortDir = gDto.SortDirAsc
	}

	from, err := parseDay(query.Get(constant.RequestParamDate))
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	status := query.Get(requestParamStatus)
	if err = validator.ValidateVar(status, "omitempty,oneof=confirmed cancelled"); err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	listFilter := dto.ListFilter{
		From:   from,
		RoomID: query.Get(model.FieldRoomID),
		Status: model.Status(status),
	}

	if to := query.Get(requestParamTo); to != constant.Empty {
		if listFilter.To, err = parseDay(to); err != nil {
			scope.TraceError(err)
			response.WithError(writer, err)

			return
		}
	}

	bookings, err := handler.service.GetAll(ctx, queryParams, listFilter.ToFilterGroup())
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get bookings")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, bookings)
}

// GetBookingByID retrieves a booking with its room and price.
// @Summary Get a booking
// @Description Retrieve a booking by ID, including the room name and total price.
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingDetailResponse] "Booking details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [get]
func (handler *Handler) GetBookingByID(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingByID")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	booking, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("booking_id", id).Msg("failed to get booking")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// GetBookingCalendar downloads the booking as an iCalendar file.
// @Summary Download booking calendar
// @Description Download a single-event .ics file for the booking.
// @Tags Booking
// @Produce text/calendar
// @Param id path string true "Booking ID"
// @Success 200 {file} file "iCalendar file"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id}/ics [get]
func (handler *Handler) GetBookingCalendar(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingCalendar")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	calendar, err := handler.service.Calendar(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("booking_id", id).Msg("failed to build booking calendar")

		response.WithError(writer, err)

		return
	}

	response.WithFile(writer, constant.ContentTypeCalendar, "booking-"+id+".ics", calendar)
}

// CancelBooking cancels a booking. Cancelling twice is a no-op.
// @Summary Cancel a booking
// @Description Mark a booking as cancelled so its slot becomes free again.
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Message "Booking cancelled"
// @Failure 401 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id}/cancel [post]
// @Security BearerAuth
func (handler *Handler) CancelBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelBooking")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	if err := handler.service.Cancel(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("booking_id", id).Msg("failed to cancel booking")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserName).(string)
	scope.AddEvent("Booking " + id + " cancelled by " + user)

	response.WithMessage(writer, http.StatusOK, "Booking cancelled")
}
