package handler

import (
	"net/http"

	"studio/config"
	"studio/di"
	"studio/shared/logger"
)

func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	logger.InitLogger(config.Get())

	handler := di.InitializeService()
	handler.ServeHTTP(w, r)
}
