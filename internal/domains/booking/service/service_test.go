package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"studio/config"
	"studio/infras/kafka"
	kafkaMocks "studio/infras/kafka/mocks"
	"studio/infras/otel/mocks"
	bookingMocks "studio/internal/domains/booking/mocks"
	"studio/internal/domains/booking/model"
	"studio/internal/domains/booking/model/dto"
	"studio/internal/domains/booking/service"
	"studio/internal/domains/booking/slot"
	roomMocks "studio/internal/domains/room/mocks"
	roomModel "studio/internal/domains/room/model"
	"studio/shared"
	cacheMocks "studio/shared/cache/mocks"
	"studio/shared/constant"
	gDto "studio/shared/dto"
	"studio/shared/failure"
	gRepo "studio/shared/repository"
	"studio/shared/timezone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	roomA     = "room-a"
	roomB     = "room-b"
	bookDay   = "2025-06-02"
	errNoRoom = "missing-room"
)

var errDatabase = errors.New("database error")

type harness struct {
	svc   service.Booking
	repo  *memoryRepo
	kafka *kafkaMocks.MockClient
	cache *cacheMocks.MockRedisCache
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Kafka.Topic.Booking = "booking-events"
	cfg.Business.Name = "Lakeshore Creative Studios"
	cfg.Business.UIDHost = "lakeshore"

	return cfg
}

func expectRooms(roomRepo *roomMocks.MockRoom) {
	for _, id := range []string{roomA, roomB} {
		roomRepo.EXPECT().
			Exist(gomock.Any(), shared.FilterByID(id, roomModel.FieldID, roomModel.TableName)).
			Return(true, nil).
			AnyTimes()
	}

	roomRepo.EXPECT().
		Exist(gomock.Any(), shared.FilterByID(errNoRoom, roomModel.FieldID, roomModel.TableName)).
		Return(false, nil).
		AnyTimes()
}

// newHarness wires the service to the in-memory repository with a cache that always misses.
func newHarness(t *testing.T) harness {
	ctrl := gomock.NewController(t)

	roomRepo := roomMocks.NewMockRoom(ctrl)
	expectRooms(roomRepo)

	redisCache := cacheMocks.NewMockRedisCache(ctrl)
	redisCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss")).AnyTimes()
	redisCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	redisCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	redisCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	kafkaClient := kafkaMocks.NewMockClient(ctrl)

	repo := newMemoryRepo()

	return harness{
		svc:   service.New(repo, roomRepo, testConfig(), redisCache, mocks.NewOtel(), kafkaClient),
		repo:  repo,
		kafka: kafkaClient,
		cache: redisCache,
	}
}

func (h harness) allowEvents() {
	h.kafka.EXPECT().SendMessages(gomock.Any(), "booking-events", gomock.Any()).Return(nil).AnyTimes()
}

func request(roomID, start string, duration int) dto.CreateBookingRequest {
	return dto.CreateBookingRequest{
		RoomID:          roomID,
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		Phone:           "416-555-0100",
		Date:            bookDay,
		StartTime:       start,
		DurationMinutes: &duration,
	}
}

func day(t *testing.T) time.Time {
	t.Helper()

	date, err := timezone.Parse(constant.DayFormat, bookDay)
	require.NoError(t, err)

	return date
}

func TestBookingService_CreateRejectsInvalidInput(t *testing.T) {
	zero := 0

	tests := []struct {
		name    string
		req     func() dto.CreateBookingRequest
		wantErr []error
	}{
		{
			name: "missing full name",
			req: func() dto.CreateBookingRequest {
				r := request(roomA, "10:00", 60)
				r.FullName = "   "

				return r
			},
			wantErr: []error{model.ErrMissingRequiredField},
		},
		{
			name: "missing email",
			req: func() dto.CreateBookingRequest {
				r := request(roomA, "10:00", 60)
				r.Email = ""

				return r
			},
			wantErr: []error{model.ErrMissingRequiredField},
		},
		{
			name: "missing start time",
			req: func() dto.CreateBookingRequest {
				return request(roomA, "", 60)
			},
			wantErr: []error{model.ErrMissingRequiredField},
		},
		{
			name: "malformed start time",
			req: func() dto.CreateBookingRequest {
				return request(roomA, "10am", 60)
			},
			wantErr: []error{model.ErrInvalidDateOrTime, slot.ErrMalformedTime},
		},
		{
			name: "malformed date",
			req: func() dto.CreateBookingRequest {
				r := request(roomA, "10:00", 60)
				r.Date = "02/06/2025"

				return r
			},
			wantErr: []error{model.ErrInvalidDateOrTime},
		},
		{
			name: "zero duration",
			req: func() dto.CreateBookingRequest {
				r := request(roomA, "10:00", 60)
				r.DurationMinutes = &zero

				return r
			},
			wantErr: []error{model.ErrInvalidDateOrTime},
		},
		{
			name: "end past midnight",
			req: func() dto.CreateBookingRequest {
				return request(roomA, "23:30", 60)
			},
			wantErr: []error{model.ErrInvalidDateOrTime, slot.ErrDayOverflow},
		},
		{
			name: "duration beyond any day",
			req: func() dto.CreateBookingRequest {
				return request(roomA, "10:00", math.MaxInt)
			},
			wantErr: []error{model.ErrInvalidDateOrTime, slot.ErrDayOverflow},
		},
		{
			name: "before opening",
			req: func() dto.CreateBookingRequest {
				return request(roomA, "07:00", 60)
			},
			wantErr: []error{slot.ErrOutsideBusinessHours},
		},
		{
			name: "past closing",
			req: func() dto.CreateBookingRequest {
				return request(roomA, "21:30", 60)
			},
			wantErr: []error{slot.ErrOutsideBusinessHours},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			_, err := h.svc.Create(context.Background(), tt.req())

			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))

			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}

			assert.Zero(t, h.repo.confirmedCount())
		})
	}
}

func TestBookingService_CreateDefaultsToOneHour(t *testing.T) {
	h := newHarness(t)
	h.allowEvents()

	req := request(roomA, "10:00", 0)
	req.DurationMinutes = nil

	res, err := h.svc.Create(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "11:00", res.EndTime.String())
	assert.Equal(t, 60, res.DurationMinutes)
	assert.Equal(t, model.StatusConfirmed, res.Status)
	assert.Equal(t, constant.ContextGuest, res.CreatedBy)
}

func TestBookingService_CreateUnknownRoom(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Create(context.Background(), request(errNoRoom, "10:00", 60))

	assert.ErrorIs(t, err, model.ErrRoomNotFound)
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
}

func TestBookingService_NoDoubleBooking(t *testing.T) {
	h := newHarness(t)
	h.allowEvents()
	ctx := context.Background()

	_, err := h.svc.Create(ctx, request(roomA, "10:00", 60))
	require.NoError(t, err)

	_, err = h.svc.Create(ctx, request(roomA, "10:00", 60))
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))

	var conflict *slot.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "10:00", conflict.Existing.Start.String())
	assert.Equal(t, "11:00", conflict.Existing.End.String())
	assert.Contains(t, err.Error(), "10:00–11:00")

	_, err = h.svc.Create(ctx, request(roomA, "10:30", 60))
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))

	_, err = h.svc.Create(ctx, request(roomA, "09:00", 180))
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))

	assert.Equal(t, 1, h.repo.confirmedCount())
}

func TestBookingService_AdjacentSlotsAllowed(t *testing.T) {
	h := newHarness(t)
	h.allowEvents()
	ctx := context.Background()

	for _, start := range []string{"10:00", "11:00", "09:00", "08:00", "21:00"} {
		_, err := h.svc.Create(ctx, request(roomA, start, 60))
		require.NoError(t, err, start)
	}

	_, err := h.svc.Create(ctx, request(roomB, "10:00", 60))
	require.NoError(t, err, "other rooms are independent")

	assert.Equal(t, 6, h.repo.confirmedCount())
}

func TestBookingService_CancelFreesSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var published []dto.EventType

	h.kafka.EXPECT().SendMessages(gomock.Any(), "booking-events", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, messages ...kafka.Message) error {
			for _, msg := range messages {
				event, ok := msg.Value.(dto.BookingEvent)
				require.True(t, ok)
				assert.Equal(t, msg.Key, event.BookingID)
				assert.Equal(t, string(event.Type), msg.Headers["event_type"])

				published = append(published, event.Type)
			}

			return nil
		}).
		AnyTimes()

	first, err := h.svc.Create(ctx, request(roomA, "10:00", 60))
	require.NoError(t, err)

	require.NoError(t, h.svc.Cancel(ctx, first.ID))
	require.NoError(t, h.svc.Cancel(ctx, first.ID), "cancelling twice is a no-op")

	second, err := h.svc.Create(ctx, request(roomA, "10:00", 60))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	assert.Equal(t, []dto.EventType{dto.EventBookingCreated, dto.EventBookingCancelled, dto.EventBookingCreated}, published)

	cancelled, err := h.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
}

func TestBookingService_CancelUnknownBooking(t *testing.T) {
	h := newHarness(t)

	err := h.svc.Cancel(context.Background(), "does-not-exist")

	assert.ErrorIs(t, err, model.ErrBookingNotFound)
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
}

func TestBookingService_ConcurrentCommits(t *testing.T) {
	h := newHarness(t)
	h.allowEvents()
	h.repo.pause = 5 * time.Millisecond

	const attempts = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)

	for i := range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// Every attempt overlaps 10:00-11:00 in some way.
			_, err := h.svc.Create(context.Background(), request(roomA, fmt.Sprintf("10:%02d", i*5), 60))

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				succeeded++
			case failure.GetCode(err) == http.StatusConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, 1, h.repo.confirmedCount())
}

func TestBookingService_ListAvailabilityRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.allowEvents()
	ctx := context.Background()

	_, err := h.svc.Create(ctx, request(roomA, "14:00", 90))
	require.NoError(t, err)

	_, err = h.svc.Create(ctx, request(roomA, "09:00", 60))
	require.NoError(t, err)

	cancelled, err := h.svc.Create(ctx, request(roomA, "18:00", 60))
	require.NoError(t, err)
	require.NoError(t, h.svc.Cancel(ctx, cancelled.ID))

	_, err = h.svc.Create(ctx, request(roomB, "12:00", 60))
	require.NoError(t, err)

	res, err := h.svc.ListAvailability(ctx, roomA, day(t))
	require.NoError(t, err)

	assert.Equal(t, bookDay, res.Date)
	assert.Equal(t, slot.Open, res.Open)
	assert.Equal(t, slot.Close, res.Close)
	require.Len(t, res.Booked, 2)
	assert.Equal(t, "09:00–10:00", res.Booked[0].String())
	assert.Equal(t, "14:00–15:30", res.Booked[1].String())

	conflict, found, err := h.svc.FindConflict(ctx, roomA, day(t), slot.Interval{Start: slot.Clock(15, 0), End: slot.Clock(16, 0)})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "14:00–15:30", conflict.String())

	_, found, err = h.svc.FindConflict(ctx, roomA, day(t), slot.Interval{Start: slot.Clock(18, 0), End: slot.Clock(19, 0)})
	require.NoError(t, err)
	assert.False(t, found, "cancelled bookings do not block")
}

func TestBookingService_ListAvailabilityUnknownRoom(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.ListAvailability(context.Background(), errNoRoom, day(t))

	assert.ErrorIs(t, err, model.ErrRoomNotFound)
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
}

func TestBookingService_ListAvailabilityCacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)

	repo := bookingMocks.NewMockBooking(ctrl)
	roomRepo := roomMocks.NewMockRoom(ctrl)
	redisCache := cacheMocks.NewMockRedisCache(ctrl)

	redisCache.EXPECT().
		Get(gomock.Any(), "booking:availability:"+roomA+":"+bookDay, gomock.Any()).
		Return(nil)

	svc := service.New(repo, roomRepo, testConfig(), redisCache, mocks.NewOtel(), kafkaMocks.NewMockClient(ctrl))

	_, err := svc.ListAvailability(context.Background(), roomA, day(t))

	assert.NoError(t, err)
}

func TestBookingService_CreateStorageError(t *testing.T) {
	ctrl := gomock.NewController(t)

	repo := bookingMocks.NewMockBooking(ctrl)
	roomRepo := roomMocks.NewMockRoom(ctrl)
	expectRooms(roomRepo)

	repo.EXPECT().
		InsertChecked(gomock.Any(), "booking:"+roomA+":"+bookDay, gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("failed to insert booking: %w: %w", gRepo.ErrStorage, errDatabase))

	svc := service.New(repo, roomRepo, testConfig(), cacheMocks.NewMockRedisCache(ctrl), mocks.NewOtel(), kafkaMocks.NewMockClient(ctrl))

	_, err := svc.Create(context.Background(), request(roomA, "10:00", 60))

	assert.ErrorIs(t, err, gRepo.ErrStorage)
	assert.Equal(t, http.StatusInternalServerError, failure.GetCode(err))
}

func TestBookingService_CreateSurvivesEventFailure(t *testing.T) {
	h := newHarness(t)
	h.kafka.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	_, err := h.svc.Create(context.Background(), request(roomA, "10:00", 60))

	assert.NoError(t, err)
	assert.Equal(t, 1, h.repo.confirmedCount())
}

func TestBookingService_CancelStorageError(t *testing.T) {
	ctrl := gomock.NewController(t)

	repo := bookingMocks.NewMockBooking(ctrl)
	repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{ID: "b1", Status: model.StatusConfirmed}, nil)
	repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(fmt.Errorf("update: %w", gRepo.ErrStorage))

	svc := service.New(repo, roomMocks.NewMockRoom(ctrl), testConfig(), cacheMocks.NewMockRedisCache(ctrl), mocks.NewOtel(), kafkaMocks.NewMockClient(ctrl))

	err := svc.Cancel(context.Background(), "b1")

	assert.ErrorIs(t, err, gRepo.ErrStorage)
}

func TestBookingService_CancelGuardsCurrentStatus(t *testing.T) {
	ctrl := gomock.NewController(t)

	repo := bookingMocks.NewMockBooking(ctrl)
	repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{ID: "b1", Status: model.StatusConfirmed}, nil)
	repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req map[string]any, filter gDto.FilterGroup) error {
			_, args := filter.GetWhereClause()

			assert.Equal(t, map[string]any{"id": "b1", "current_status": "confirmed"}, args)
			assert.Equal(t, model.StatusCancelled, req[model.FieldStatus])

			return nil
		})

	redisCache := cacheMocks.NewMockRedisCache(ctrl)
	redisCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	redisCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	kafkaClient := kafkaMocks.NewMockClient(ctrl)
	kafkaClient.EXPECT().SendMessages(gomock.Any(), "booking-events", gomock.Any()).Return(nil)

	svc := service.New(repo, roomMocks.NewMockRoom(ctrl), testConfig(), redisCache, mocks.NewOtel(), kafkaClient)

	require.NoError(t, svc.Cancel(context.Background(), "b1"))
}

func TestBookingService_CancelLostRace(t *testing.T) {
	ctrl := gomock.NewController(t)

	repo := bookingMocks.NewMockBooking(ctrl)
	repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{ID: "b1", Status: model.StatusConfirmed}, nil)
	repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(fmt.Errorf("update: %w", gRepo.ErrNoRowsAffected))

	// no cache or kafka expectations: nothing may be invalidated or published
	svc := service.New(repo, roomMocks.NewMockRoom(ctrl), testConfig(), cacheMocks.NewMockRedisCache(ctrl), mocks.NewOtel(), kafkaMocks.NewMockClient(ctrl))

	assert.NoError(t, svc.Cancel(context.Background(), "b1"))
}

func TestBookingService_CancelSkipsStaleRow(t *testing.T) {
	h := newHarness(t)
	h.allowEvents()
	ctx := context.Background()

	created, err := h.svc.Create(ctx, request(roomA, "10:00", 60))
	require.NoError(t, err)

	stale := shared.FilterByID(created.ID, model.FieldID, model.TableName)
	stale.Filters = append(stale.Filters, gDto.Filter{
		ArgName:  "current_status",
		Field:    model.FieldStatus,
		Value:    string(model.StatusCancelled),
		Operator: gDto.FilterOperatorEq,
		Table:    model.TableName,
	})

	err = h.repo.Update(ctx, map[string]any{model.FieldStatus: model.StatusCancelled}, stale)

	require.ErrorIs(t, err, gRepo.ErrNoRowsAffected)
	assert.Equal(t, 1, h.repo.confirmedCount())
}

func TestBookingService_GetDetail(t *testing.T) {
	h := newHarness(t)
	h.allowEvents()
	ctx := context.Background()

	created, err := h.svc.Create(ctx, request(roomA, "10:00", 90))
	require.NoError(t, err)

	res, err := h.svc.Get(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, "Studio A", res.RoomName)
	assert.Equal(t, bookDay, res.Date)
	assert.InDelta(t, 97.5, res.TotalPrice, 0.001)

	_, err = h.svc.Get(ctx, "unknown")
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
}

func TestBookingService_GetAll(t *testing.T) {
	h := newHarness(t)
	h.allowEvents()
	ctx := context.Background()

	for _, start := range []string{"10:00", "12:00"} {
		_, err := h.svc.Create(ctx, request(roomA, start, 60))
		require.NoError(t, err)
	}

	res, err := h.svc.GetAll(ctx, gDto.QueryParams{Page: 1, Limit: 10}, dto.ListFilter{From: day(t)}.ToFilterGroup())

	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalData)
	assert.Len(t, res.Bookings, 2)
}

func TestBookingService_Calendar(t *testing.T) {
	h := newHarness(t)
	h.allowEvents()
	ctx := context.Background()

	created, err := h.svc.Create(ctx, request(roomA, "10:00", 90))
	require.NoError(t, err)

	ics, err := h.svc.Calendar(ctx, created.ID)
	require.NoError(t, err)

	out := string(ics)
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "UID:"+created.ID+"@lakeshore")
	assert.Contains(t, out, "SUMMARY:Studio Booking - Studio A")
	assert.Contains(t, out, "DTSTART:"+slot.Clock(10, 0).On(day(t)).UTC().Format("20060102T150405Z")+"\r\n")
	assert.Contains(t, out, "DTEND:"+slot.Clock(11, 30).On(day(t)).UTC().Format("20060102T150405Z")+"\r\n")

	_, err = h.svc.Calendar(ctx, "unknown")
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
}
