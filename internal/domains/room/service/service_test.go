package service_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"studio/config"
	"studio/infras/otel/mocks"
	s3Mocks "studio/infras/s3/mocks"
	roomMocks "studio/internal/domains/room/mocks"
	"studio/internal/domains/room/model"
	"studio/internal/domains/room/model/dto"
	"studio/internal/domains/room/service"
	cacheMocks "studio/shared/cache/mocks"
	"studio/shared/constant"
	gDto "studio/shared/dto"
	"studio/shared/failure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const pngPhoto = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

type fixture struct {
	repo  *roomMocks.MockRoom
	cache *cacheMocks.MockRedisCache
	s3    *s3Mocks.MockS3
	svc   service.Room
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	f := fixture{
		repo:  roomMocks.NewMockRoom(ctrl),
		cache: cacheMocks.NewMockRedisCache(ctrl),
		s3:    s3Mocks.NewMockS3(ctrl),
	}
	f.svc = service.New(f.repo, cfg, f.cache, mocks.NewOtel(), f.s3)

	return f
}

func adminContext() context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserName, "admin")
}

func TestRoomService_Create(t *testing.T) {
	tests := []struct {
		name     string
		req      dto.CreateRoomRequest
		setup    func(f fixture)
		wantCode int
	}{
		{
			name: "creates a room and clears listing caches",
			req:  dto.CreateRoomRequest{Name: "Studio D", SizeSqft: 500, PricePerHour: 55},
			setup: func(f fixture) {
				f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, room model.Room) error {
						assert.Equal(t, "Studio D", room.Name)
						assert.Equal(t, "admin", room.CreatedBy)
						assert.NotEmpty(t, room.ID)

						return nil
					})
				f.cache.EXPECT().Clear(gomock.Any(), "room:gets:*").Return(nil)
				f.cache.EXPECT().Clear(gomock.Any(), "room:count:*").Return(nil)
			},
		},
		{
			name:     "rejects zero price",
			req:      dto.CreateRoomRequest{Name: "Studio D", PricePerHour: 0},
			setup:    func(fixture) {},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "rejects negative price",
			req:      dto.CreateRoomRequest{Name: "Studio D", PricePerHour: -10},
			setup:    func(fixture) {},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "rejects missing name",
			req:      dto.CreateRoomRequest{PricePerHour: 40},
			setup:    func(fixture) {},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "rejects blank name",
			req:      dto.CreateRoomRequest{Name: "   ", PricePerHour: 50},
			setup:    func(fixture) {},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "stores trimmed name",
			req:  dto.CreateRoomRequest{Name: "  Studio E  ", PricePerHour: 50},
			setup: func(f fixture) {
				f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, room model.Room) error {
						assert.Equal(t, "Studio E", room.Name)

						return nil
					})
				f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).Times(2)
			},
		},
		{
			name:     "rejects photo that is not a data URL",
			req:      dto.CreateRoomRequest{Name: "Studio D", PricePerHour: 40, Photo: "not-a-photo"},
			setup:    func(fixture) {},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "uploads photo before insert",
			req:  dto.CreateRoomRequest{Name: "Studio D", PricePerHour: 40, Photo: pngPhoto},
			setup: func(f fixture) {
				f.s3.EXPECT().UploadFileBytes(gomock.Any(), model.EntityName, gomock.Any(), "image/png", gomock.Any()).
					Return("https://cdn.example.com/room/a.png", nil)
				f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, room model.Room) error {
						assert.Equal(t, "https://cdn.example.com/room/a.png", room.PhotoURL)

						return nil
					})
				f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).Times(2)
			},
		},
		{
			name: "removes uploaded photo when insert fails",
			req:  dto.CreateRoomRequest{Name: "Studio D", PricePerHour: 40, Photo: pngPhoto},
			setup: func(f fixture) {
				f.s3.EXPECT().UploadFileBytes(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return("https://cdn.example.com/room/a.png", nil)
				f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("database error"))
				f.s3.EXPECT().GetObjectNameFromURL("https://cdn.example.com/room/a.png").Return("room/a.png")
				f.s3.EXPECT().DeleteFile(gomock.Any(), constant.Empty, "room/a.png").Return(nil)
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			res, err := f.svc.Create(adminContext(), tt.req)
			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.req.Name), res.Name)
		})
	}
}

func TestRoomService_CreatePriceError(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(adminContext(), dto.CreateRoomRequest{Name: "Studio D"})

	assert.ErrorIs(t, err, model.ErrInvalidPrice)
}

func TestRoomService_Get(t *testing.T) {
	t.Run("cache hit", func(t *testing.T) {
		f := newFixture(t)
		f.cache.EXPECT().Get(gomock.Any(), "room:get:r1", gomock.Any()).Return(nil)

		_, err := f.svc.Get(context.Background(), "r1")

		assert.NoError(t, err)
	})

	t.Run("loads from repository and caches", func(t *testing.T) {
		f := newFixture(t)
		f.cache.EXPECT().Get(gomock.Any(), "room:get:r1", gomock.Any()).Return(errors.New("cache miss"))
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).
			Return(model.Room{ID: "r1", Name: "Studio A", PricePerHour: 65}, nil)
		f.cache.EXPECT().Save(gomock.Any(), "room:get:r1", gomock.Any(), 3600).Return(nil)

		res, err := f.svc.Get(context.Background(), "r1")

		require.NoError(t, err)
		assert.Equal(t, "Studio A", res.Name)
		assert.InDelta(t, 65.0, res.PricePerHour, 0.001)
	})

	t.Run("unknown room", func(t *testing.T) {
		f := newFixture(t)
		f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Room{}, nil)

		_, err := f.svc.Get(context.Background(), "missing")

		assert.ErrorIs(t, err, model.ErrRoomNotFound)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}

func TestRoomService_GetAll(t *testing.T) {
	f := newFixture(t)
	params := gDto.QueryParams{Page: 1, Limit: 10}

	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss")).Times(2)
	f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(3, nil)
	f.repo.EXPECT().GetAll(gomock.Any(), params, gomock.Any()).Return([]model.Room{
		{ID: "a", Name: "Studio A"},
		{ID: "b", Name: "Studio B"},
		{ID: "c", Name: "Studio C"},
	}, nil)
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	res, err := f.svc.GetAll(context.Background(), params, gDto.FilterGroup{})

	require.NoError(t, err)
	assert.Len(t, res.Rooms, 3)
	assert.Equal(t, 3, res.TotalData)
	assert.Equal(t, 1, res.TotalPage)
}

func TestRoomModel_Cost(t *testing.T) {
	room := model.Room{PricePerHour: 65}

	assert.InDelta(t, 97.5, room.Cost(90), 0.001)
}

func TestRoomService_Seed(t *testing.T) {
	t.Run("inserts default studios into an empty table", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Count(gomock.Any(), gDto.FilterGroup{}).Return(0, nil)
		f.repo.EXPECT().InsertBulk(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rooms []model.Room) error {
				require.Len(t, rooms, 3)
				assert.Equal(t, "Studio A - Dance", rooms[0].Name)
				assert.InDelta(t, 95.0, rooms[2].PricePerHour, 0.001)
				assert.Equal(t, constant.ContextSystem, rooms[1].CreatedBy)

				return nil
			})
		f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		assert.NoError(t, f.svc.Seed(context.Background()))
	})

	t.Run("skips when rooms exist", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Count(gomock.Any(), gDto.FilterGroup{}).Return(3, nil)

		assert.NoError(t, f.svc.Seed(context.Background()))
	})

	t.Run("count failure", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(0, errors.New("connection refused"))

		assert.Error(t, f.svc.Seed(context.Background()))
	})
}
