package userprofile

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

func Roles() []string {
	return []string{string(RoleAdmin), string(RoleManager), string(RoleMember)}
}

// UserProfile is a planning participant referenced by email from imported
// rows. It is not an authentication principal.
type UserProfile struct {
	id         uuid.UUID
	tenantID   uuid.UUID
	email      string
	fullName   string
	role       Role
	department string
	createdAt  time.Time
	updatedAt  time.Time
}

type Option func(*UserProfile)

func WithID(id uuid.UUID) Option {
	return func(u *UserProfile) { u.id = id }
}

func WithRole(role Role) Option {
	return func(u *UserProfile) { u.role = role }
}

func WithDepartment(department string) Option {
	return func(u *UserProfile) { u.department = strings.TrimSpace(department) }
}

func New(tenantID uuid.UUID, email, fullName string, opts ...Option) UserProfile {
	u := UserProfile{
		id:       uuid.New(),
		tenantID: tenantID,
		email:    NormalizeEmail(email),
		fullName: strings.TrimSpace(fullName),
		role:     RoleMember,
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	email string,
	fullName string,
	role Role,
	department string,
	createdAt time.Time,
	updatedAt time.Time,
) UserProfile {
	return UserProfile{
		id:         id,
		tenantID:   tenantID,
		email:      NormalizeEmail(email),
		fullName:   fullName,
		role:       role,
		department: department,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (u UserProfile) ID() uuid.UUID        { return u.id }
func (u UserProfile) TenantID() uuid.UUID  { return u.tenantID }
func (u UserProfile) Email() string        { return u.email }
func (u UserProfile) FullName() string     { return u.fullName }
func (u UserProfile) Role() Role           { return u.role }
func (u UserProfile) Department() string   { return u.department }
func (u UserProfile) CreatedAt() time.Time { return u.createdAt }
func (u UserProfile) UpdatedAt() time.Time { return u.updatedAt }
func (u UserProfile) IsZero() bool         { return u.id == uuid.Nil && u.email == "" }

// NormalizeEmail lowercases and trims an address. Emails are the natural key
// for user profiles, so every lookup and every write goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
