// Package accounts registers users and issues their access tokens.
package accounts

import (
	"strings"

	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is a registered user. The password hash is stored but never
// serialized to clients.
type Account struct {
	crud.Base    `bson:",inline"`
	Name         string `json:"name" bson:"name" binding:"required"`
	Email        string `json:"email" bson:"email" binding:"required,email"`
	PasswordHash string `json:"-" bson:"password"`
	Role         string `json:"role" bson:"role"`
}

// Fields that are unique across accounts.
var UniqueFields = []string{"email"}

// ProtectedFields cannot be changed through the generic account routes.
var ProtectedFields = []string{"password", "email", "role"}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
