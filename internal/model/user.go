package model

import "time"

// Roles carried in the access token's role claim.
const (
    RoleAdmin = "ADMIN"
    RoleUser  = "USER"
)

// User represents an account as stored in the `users` table.  IDs are
// UUID strings issued at registration; the first account registered
// becomes ADMIN.
//
// Fields:
//  ID           – users.id (UUID).
//  Name         – display name.
//  Email        – unique, stored lower-cased.
//  PasswordHash – bcrypt hash.
//  Role         – ADMIN or USER.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           string    // users.id
    Name         string    // users.name
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    CreatedAt    time.Time // users.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token handed to the client is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    string     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
}
