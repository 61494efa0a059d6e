package dto

import (
	"strings"

	"studio/internal/domains/room/model"
	"studio/shared"
	"studio/shared/constant"
	gDto "studio/shared/dto"
	gModel "studio/shared/model"

	"github.com/google/uuid"
)

type CreateRoomRequest struct {
	Name         string  `json:"name"           validate:"required,max=100"`
	SizeSqft     int     `json:"size_sqft"      validate:"gte=0"`
	PricePerHour float64 `json:"price_per_hour" validate:"gt=0"`
	Description  string  `json:"description"    validate:"omitempty,max=1000"`
	PhotoURL     string  `json:"photo_url"      validate:"omitempty,url,max=500"`
	Photo        string  `json:"photo"          validate:"omitempty,mimetypes=image/png image/jpg image/jpeg image/webp,maxfilesize=2"`
}

// Normalize trims surrounding whitespace from the text fields.
func (c *CreateRoomRequest) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	c.PhotoURL = strings.TrimSpace(c.PhotoURL)
}

func (c *CreateRoomRequest) ToModel(user, photoURL string) model.Room {
	return model.Room{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(c.Name),
		SizeSqft:     c.SizeSqft,
		PricePerHour: c.PricePerHour,
		Description:  strings.TrimSpace(c.Description),
		PhotoURL:     photoURL,
		Metadata:     gModel.NewMetadata(user),
	}
}

var defaultRooms = []CreateRoomRequest{
	{Name: "Studio A - Dance", SizeSqft: 800, PricePerHour: 65, Description: "Sprung floor with full-length mirrors and a ballet barre."},
	{Name: "Studio B - Photo", SizeSqft: 600, PricePerHour: 75, Description: "Cyclorama wall, strobes and a blackout option."},
	{Name: "Studio C - Masterclass", SizeSqft: 1000, PricePerHour: 95, Description: "Large room with PA system and seating for workshops."},
}

// DefaultRooms returns the studios created on a fresh install.
func DefaultRooms() []model.Room {
	rooms := make([]model.Room, len(defaultRooms))
	for i, req := range defaultRooms {
		rooms[i] = req.ToModel(constant.ContextSystem, constant.Empty)
	}

	return rooms
}

type RoomResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	SizeSqft     int     `json:"size_sqft"`
	PricePerHour float64 `json:"price_per_hour"`
	Description  string  `json:"description"`
	PhotoURL     string  `json:"photo_url"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.ID = model.ID
	r.Name = model.Name
	r.SizeSqft = model.SizeSqft
	r.PricePerHour = model.PricePerHour
	r.Description = model.Description
	r.PhotoURL = model.PhotoURL
	r.Metadata.FromModel(model.Metadata)
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod)
	}
}
