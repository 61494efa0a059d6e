package middleware_test

import (
	"errors"
	"net/http"
	"testing"

	"studio/config"
	otelMocks "studio/infras/otel/mocks"
	cacheMocks "studio/shared/cache/mocks"
	"studio/shared/constant"
	"studio/transport/http/middleware"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func limited(t *testing.T, enable bool) (http.Handler, *cacheMocks.MockRedisCache) {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.RateLimiter.Enable = enable
	cfg.App.RateLimiter.MaxRequests = 3
	cfg.App.RateLimiter.WindowSeconds = 60

	redisCache := cacheMocks.NewMockRedisCache(gomock.NewController(t))
	mw := middleware.NewAppMiddleware(otelMocks.NewOtel(), cfg, redisCache)

	ok := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	return mw.RateLimit()(ok), redisCache
}

func TestRateLimit(t *testing.T) {
	t.Run("under the limit", func(t *testing.T) {
		handler, redisCache := limited(t, true)
		redisCache.EXPECT().Increment(gomock.Any(), "limiter:10.0.0.1:curl", 60).Return(int64(1), nil)

		recorder := serve(handler, http.MethodGet, "/v1/rooms", map[string]string{
			constant.RequestHeaderForwardedFor: "10.0.0.1, 172.16.0.1",
			constant.RequestHeaderUserAgent:    "curl",
		})

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "3", recorder.Header().Get(constant.RequestHeaderRateLimit))
		assert.Equal(t, "2", recorder.Header().Get(constant.RequestHeaderRateLimitRemaining))
		assert.Equal(t, "60", recorder.Header().Get(constant.RequestHeaderRateLimitWindow))
	})

	t.Run("over the limit", func(t *testing.T) {
		handler, redisCache := limited(t, true)
		redisCache.EXPECT().Increment(gomock.Any(), "limiter:10.0.0.2:unknown", 60).Return(int64(4), nil)

		recorder := serve(handler, http.MethodGet, "/v1/rooms", map[string]string{
			constant.RequestHeaderRealIP: "10.0.0.2",
		})

		assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
		assert.Equal(t, "0", recorder.Header().Get(constant.RequestHeaderRateLimitRemaining))
		assert.JSONEq(t, `{"message":"REQUEST LIMIT EXCEEDED"}`, recorder.Body.String())
	})

	t.Run("redis unavailable", func(t *testing.T) {
		handler, redisCache := limited(t, true)
		redisCache.EXPECT().Increment(gomock.Any(), gomock.Any(), 60).Return(int64(0), errors.New("connection refused"))

		recorder := serve(handler, http.MethodGet, "/v1/rooms", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Empty(t, recorder.Header().Get(constant.RequestHeaderRateLimit))
	})

	t.Run("disabled", func(t *testing.T) {
		handler, _ := limited(t, false)

		recorder := serve(handler, http.MethodGet, "/v1/rooms", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

