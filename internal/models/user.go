package models

import (
	"strings"
	"time"
)

// FallbackIDPrefix tags identities synthesized by the local fallback store.
const FallbackIDPrefix = "dev-"

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password" json:"-"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type IdentityOrigin string

const (
	OriginRemote   IdentityOrigin = "remote"
	OriginFallback IdentityOrigin = "fallback"
)

// Identity is the resolved "who is calling" value. Only the auth service
// builds one; everything else reads it.
type Identity struct {
	ID       string         `json:"id"`
	Username string         `json:"username"`
	IsAdmin  bool           `json:"is_admin"`
	Origin   IdentityOrigin `json:"origin"`
}

func RemoteIdentity(u User) Identity {
	return Identity{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin, Origin: OriginRemote}
}

func FallbackIdentity(u User) Identity {
	return Identity{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin, Origin: OriginFallback}
}

func (i Identity) IsZero() bool {
	return i.ID == ""
}

// IsFallback reports whether the identity came from the local store. The id
// prefix is checked as well so a mislabelled identity is never trusted as remote.
func (i Identity) IsFallback() bool {
	return i.Origin == OriginFallback || IsFallbackID(i.ID)
}

func IsFallbackID(id string) bool {
	return strings.HasPrefix(id, FallbackIDPrefix)
}
