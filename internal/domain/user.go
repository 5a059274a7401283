package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRole represents the global role of a user account.
type UserRole string

// Possible user roles.
const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
	UserRoleGuest UserRole = "GUEST"
)

// User-specific validation errors.
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
	ErrInvalidUserRole     = errors.New("invalid user role")
)

// User represents a registered account. The plaintext Password field is
// only populated transiently during registration or password changes and
// must be hashed before the user is persisted.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	Password       string    `json:"-"`
	HashedPassword string    `json:"-"`
	Role           UserRole  `json:"role"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given email, display name and plaintext
// password. New accounts default to the USER role and are active.
// The caller is responsible for hashing the password before storage.
func NewUser(email, displayName, password string) (*User, error) {
	user := &User{
		ID:          uuid.New(),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DisplayName: displayName,
		Password:    password,
		Role:        UserRoleUser,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// IsAdmin reports whether the user holds the global ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Email == "" {
		return ErrEmptyEmail
	}

	if !validateEmailFormat(u.Email) {
		return ErrInvalidEmail
	}

	switch u.Role {
	case UserRoleAdmin, UserRoleUser, UserRoleGuest:
	default:
		return ErrInvalidUserRole
	}

	if u.Password != "" {
		if len(u.Password) < 8 {
			return ErrPasswordTooShort
		}
		if len(u.Password) > 72 {
			// bcrypt's practical input limit
			return ErrPasswordTooLong
		}
	} else if u.HashedPassword == "" {
		return ErrEmptyPassword
	}

	return nil
}

// validateEmailFormat performs basic validation of email format: a single @
// with a dotted domain part. Full RFC 5322 validation is left to the request
// validation layer which uses a dedicated validator.
func validateEmailFormat(email string) bool {
	atIndex := strings.Index(email, "@")
	if atIndex <= 0 || atIndex == len(email)-1 {
		return false
	}

	domain := email[atIndex+1:]
	dotIndex := strings.Index(domain, ".")
	return dotIndex > 0 && dotIndex < len(domain)-1
}

// UserSettings holds per-user preferences. Exactly one row exists per user;
// it is created lazily with defaults on first read.
type UserSettings struct {
	UserID             uuid.UUID `json:"user_id"`
	Theme              string    `json:"theme"`
	Language           string    `json:"language"`
	NotificationsOn    bool      `json:"notifications_on"`
	DefaultWorkspaceID uuid.UUID `json:"default_workspace_id,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultUserSettings returns the settings applied to a user that has never
// saved any preferences.
func DefaultUserSettings(userID uuid.UUID) *UserSettings {
	return &UserSettings{
		UserID:          userID,
		Theme:           "light",
		Language:        "zh-CN",
		NotificationsOn: true,
		UpdatedAt:       time.Now().UTC(),
	}
}
