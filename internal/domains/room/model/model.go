package model

import (
	"errors"

	"studio/shared/model"
)

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID           = "id"
	FieldName         = "name"
	FieldSizeSqft     = "size_sqft"
	FieldPricePerHour = "price_per_hour"
	FieldDescription  = "description"
	FieldPhotoURL     = "photo_url"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrInvalidPrice     = errors.New("price_per_hour must be greater than zero")
	ErrMissingRoomName  = errors.New("name is required")
	ErrInvalidRoomPhoto = errors.New("photo must be a base64 encoded image")
)

type Room struct {
	ID           string  `db:"id"`
	Name         string  `db:"name"`
	SizeSqft     int     `db:"size_sqft"`
	PricePerHour float64 `db:"price_per_hour"`
	Description  string  `db:"description"`
	PhotoURL     string  `db:"photo_url"`
	model.Metadata
}

// Cost returns the price of booking the room for the given number of minutes.
func (r Room) Cost(minutes int) float64 {
	return r.PricePerHour * float64(minutes) / 60
}
