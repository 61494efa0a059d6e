package router

import (
	"studio/internal/handlers/auth"
	"studio/internal/handlers/booking"
	"studio/internal/handlers/room"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Auth    auth.Handler
	Room    room.Handler
	Booking booking.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		routerGroup.Route("/auth", r.DomainHandlers.Auth.Router)
		routerGroup.Route("/rooms", func(rooms chi.Router) {
			r.DomainHandlers.Room.Router(rooms)
			r.DomainHandlers.Booking.RoomRouter(rooms)
		})
		routerGroup.Route("/bookings", r.DomainHandlers.Booking.Router)
	})
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}
