package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studio/config"
	"studio/infras/kafka"
	"studio/infras/otel"
	"studio/internal/domains/booking/model"
	"studio/internal/domains/booking/model/dto"
	"studio/internal/domains/booking/repository"
	"studio/internal/domains/booking/slot"
	roomModel "studio/internal/domains/room/model"
	roomRepo "studio/internal/domains/room/repository"
	"studio/shared"
	"studio/shared/cache"
	"studio/shared/constant"
	gDto "studio/shared/dto"
	"studio/shared/failure"
	"studio/shared/ical"
	"studio/shared/keylock"
	gRepo "studio/shared/repository"
	"studio/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"
	cacheAvailability  = "booking:availability"

	lockPrefix       = "booking"
	eventTypeHeader  = "event_type"
	currentStatusArg = "current_status"
)

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	FindConflict(ctx context.Context, roomID string, date time.Time, candidate slot.Interval) (slot.Interval, bool, error)
	ListAvailability(ctx context.Context, roomID string, date time.Time) (dto.AvailabilityResponse, error)
	Cancel(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (dto.BookingDetailResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Calendar(ctx context.Context, id string) ([]byte, error)
}

type serviceImpl struct {
	repo     repository.Booking
	roomRepo roomRepo.Room
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
	kafka    kafka.Client
	locker   *keylock.Locker
}

func New(repo repository.Booking, roomRepo roomRepo.Room, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, kafka kafka.Client) Booking {
	return &serviceImpl{
		repo:     repo,
		roomRepo: roomRepo,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
		kafka:    kafka,
		locker:   keylock.New(),
	}
}

// parseSlot resolves the requested day and the half-open interval the booking would occupy.
func parseSlot(req dto.CreateBookingRequest) (time.Time, slot.Interval, error) {
	date, err := timezone.Parse(constant.DayFormat, req.Date)
	if err != nil {
		return time.Time{}, slot.Interval{}, fmt.Errorf("%w: date must be YYYY-MM-DD", model.ErrInvalidDateOrTime)
	}

	start, err := slot.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return time.Time{}, slot.Interval{}, fmt.Errorf("%w: %w", model.ErrInvalidDateOrTime, err)
	}

	duration := req.Duration()
	if duration <= 0 {
		return time.Time{}, slot.Interval{}, fmt.Errorf("%w: duration must be positive", model.ErrInvalidDateOrTime)
	}

	end, err := start.AddMinutes(duration)
	if err != nil {
		return time.Time{}, slot.Interval{}, fmt.Errorf("%w: %w", model.ErrInvalidDateOrTime, err)
	}

	return date, slot.Interval{Start: start, End: end}, nil
}

func slotKey(roomID string, date time.Time) string {
	return shared.BuildCacheKey(roomID, date.Format(constant.DayFormat))
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	req.Normalize()

	if !req.HasRequiredFields() {
		return res, failure.BadRequest(model.ErrMissingRequiredField) // nolint:wrapcheck
	}

	date, interval, err := parseSlot(req)
	if err != nil {
		return res, failure.BadRequest(err) // nolint:wrapcheck
	}

	if err = slot.ValidateHours(interval.Start, interval.End); err != nil {
		return res, failure.BadRequest(err) // nolint:wrapcheck
	}

	if err = s.ensureRoom(ctx, req.RoomID); err != nil {
		return res, err
	}

	user, _ := ctx.Value(constant.ContextKeyUserName).(string)
	if user == constant.Empty {
		user = constant.ContextGuest
	}

	booking := req.ToModel(user, date, interval)
	key := slotKey(req.RoomID, date)

	unlock := s.locker.Lock(key)
	defer unlock()

	err = s.repo.InsertChecked(ctx, shared.BuildCacheKey(lockPrefix, key), booking, func(confirmed []model.Booking) error {
		if existing, found := slot.FindConflict(intervals(confirmed), interval); found {
			return &slot.ConflictError{Existing: existing}
		}

		return nil
	})

	var conflict *slot.ConflictError
	if errors.As(err, &conflict) {
		log.Info().Str("room_id", req.RoomID).Str("slot", interval.String()).Msg("booking rejected, slot taken")

		return res, failure.ConflictFrom(conflict) // nolint:wrapcheck
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to create booking")

		return res, fmt.Errorf("failed to create booking: %w", err)
	}

	s.afterChange(ctx, dto.EventBookingCreated, booking)

	res.FromModel(booking)

	return res, nil
}

func intervals(bookings []model.Booking) []slot.Interval {
	res := make([]slot.Interval, len(bookings))
	for i, booking := range bookings {
		res[i] = booking.Interval()
	}

	return res
}

func (s *serviceImpl) ensureRoom(ctx context.Context, roomID string) error {
	exists, err := s.roomRepo.Exist(ctx, shared.FilterByID(roomID, roomModel.FieldID, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to check if room exists")

		return fmt.Errorf("failed to check if room exists: %w", err)
	}

	if !exists {
		return failure.NotFoundFrom(model.ErrRoomNotFound) // nolint:wrapcheck
	}

	return nil
}

// afterChange drops every cached view the booking appears in and publishes the change.
// Failures here are logged only; the booking itself is already committed.
func (s *serviceImpl) afterChange(ctx context.Context, eventType dto.EventType, booking model.Booking) {
	availabilityKey := shared.BuildCacheKey(cacheAvailability, slotKey(booking.RoomID, booking.BookingDate))

	for _, key := range []string{availabilityKey, shared.BuildCacheKey(cacheGetBooking, booking.ID)} {
		if err := s.cache.Delete(ctx, key); err != nil {
			log.Error().Err(err).Str("cacheKey", key).Msg("failed to delete booking cache")
		}
	}

	shared.InvalidateCaches(ctx, s.cache, cacheGetAllBooking)
	shared.InvalidateCaches(ctx, s.cache, cacheCountBooking)

	var event dto.BookingEvent
	event.FromModel(eventType, booking)

	if err := s.kafka.SendMessages(ctx, s.cfg.Kafka.Topic.Booking, kafka.Message{
		Key:     booking.ID,
		Value:   event,
		Headers: map[string]string{eventTypeHeader: string(eventType)},
	}); err != nil {
		log.Error().Err(err).Str("booking_id", booking.ID).Str("type", string(eventType)).Msg("failed to publish booking event")
	}
}

func (s *serviceImpl) FindConflict(ctx context.Context, roomID string, date time.Time, candidate slot.Interval) (res slot.Interval, found bool, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".FindConflict")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	confirmed, err := s.repo.ListConfirmed(ctx, roomID, date)
	if err != nil {
		log.Error().Err(err).Msg("failed to list confirmed bookings")

		return res, false, fmt.Errorf("failed to list confirmed bookings: %w", err)
	}

	res, found = slot.FindConflict(intervals(confirmed), candidate)

	return res, found, nil
}

func (s *serviceImpl) ListAvailability(ctx context.Context, roomID string, date time.Time) (res dto.AvailabilityResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListAvailability")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheAvailability, slotKey(roomID, date))

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for availability")

		return res, nil
	}

	if err = s.ensureRoom(ctx, roomID); err != nil {
		return res, err
	}

	confirmed, err := s.repo.ListConfirmed(ctx, roomID, date)
	if err != nil {
		log.Error().Err(err).Msg("failed to list confirmed bookings")

		return res, fmt.Errorf("failed to list availability: %w", err)
	}

	res.FromModels(roomID, date, confirmed)

	if err := s.cache.Save(ctx, cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Error().Err(err).Msg("failed to save availability to cache")
	}

	return res, nil
}

func (s *serviceImpl) Cancel(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Cancel")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	booking, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return failure.NotFoundFrom(model.ErrBookingNotFound) // nolint:wrapcheck
	}

	if booking.Status == model.StatusCancelled {
		log.Debug().Str("booking_id", id).Msg("booking already cancelled")

		return nil
	}

	if !booking.Status.CanTransitionTo(model.StatusCancelled) {
		return failure.ConflictFrom(fmt.Errorf("%w: %s to %s", model.ErrInvalidTransition, booking.Status, model.StatusCancelled)) // nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserName).(string)

	filter.Operator = gDto.FilterGroupOperatorAnd
	filter.Filters = append(filter.Filters, gDto.Filter{
		ArgName:  currentStatusArg,
		Field:    model.FieldStatus,
		Value:    string(booking.Status),
		Operator: gDto.FilterOperatorEq,
		Table:    model.TableName,
	})

	updatedFields := shared.TransformFields(dto.CancelBookingRequest{Status: model.StatusCancelled}, user)

	err = s.repo.Update(ctx, updatedFields, filter)
	if errors.Is(err, gRepo.ErrNoRowsAffected) {
		// confirmed to cancelled is the only transition, so a concurrent writer already cancelled it
		log.Debug().Str("booking_id", id).Msg("booking cancelled concurrently")

		return nil
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to cancel booking")

		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	booking.Status = model.StatusCancelled
	s.afterChange(ctx, dto.EventBookingCancelled, booking)

	return nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingDetailResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	detail, err := s.repo.GetDetail(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if detail.ID == constant.Empty {
		return res, failure.NotFoundFrom(model.ErrBookingNotFound) // nolint:wrapcheck
	}

	res.FromModel(detail)

	if err := s.cache.Save(ctx, cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Error().Err(err).Msg("failed to save booking to cache")
	}

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		return res, err
	}

	models, err := s.repo.GetAllDetails(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	if err := s.cache.Save(ctx, cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Error().Err(err).Msg("failed to save bookings to cache")
	}

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, req, filter)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		return res, nil
	}

	res, err = s.repo.CountDetails(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	if err := s.cache.Save(ctx, cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Error().Err(err).Msg("failed to save booking count to cache")
	}

	return res, nil
}

func (s *serviceImpl) Calendar(ctx context.Context, id string) (res []byte, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Calendar")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	day, err := timezone.Parse(constant.DayFormat, booking.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date: %w", err)
	}

	calendar := ical.Calendar{
		ProductName: s.cfg.Business.Name,
		Event: ical.Event{
			UID:         fmt.Sprintf("%s@%s", booking.ID, s.cfg.Business.UIDHost),
			Summary:     "Studio Booking - " + booking.RoomName,
			Description: fmt.Sprintf("Booking for %s (%s)", booking.FullName, booking.Email),
			Location:    s.cfg.Business.Name,
			Start:       booking.StartTime.On(day),
			End:         booking.EndTime.On(day),
			Stamp:       timezone.Now(),
		},
	}

	return calendar.Bytes(), nil
}
