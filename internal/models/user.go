package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Subject   string    `bun:"subject,notnull,default:''" json:"-"`
	Email     string    `bun:"email,unique,notnull" json:"email"`
	Name      string    `bun:"name,notnull,default:''" json:"name"`
	IsActive  bool      `bun:"is_active,notnull,default:true" json:"is_active"`
	IsStaff   bool      `bun:"is_staff,notnull,default:false" json:"is_staff"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Claims are the identity facts a verified bearer token carries.
type Claims struct {
	Subject string
	Email   string
	Name    string
	Roles   []string
}

func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
