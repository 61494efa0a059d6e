package di

import (
	"context"
	"fmt"

	authService "studio/internal/domains/auth/service"
	roomService "studio/internal/domains/room/service"
)

// Seeder fills an empty database with the admin account and the default studios.
type Seeder struct {
	Auth authService.Auth
	Room roomService.Room
}

func (s *Seeder) Run(ctx context.Context) error {
	if err := s.Auth.SeedAdmin(ctx); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	if err := s.Room.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed rooms: %w", err)
	}

	return nil
}
