package model

import (
	"time"

	"studio/shared/model"
)

const (
	TableName  = "admins"
	EntityName = "admin"

	FieldID           = "id"
	FieldUsername     = "username"
	FieldPasswordHash = "password_hash"
	FieldLastLogin    = "last_login"
)

type Admin struct {
	ID           string     `db:"id"`
	Username     string     `db:"username"`
	PasswordHash string     `db:"password_hash"`
	LastLogin    *time.Time `db:"last_login"`
	model.Metadata
}
