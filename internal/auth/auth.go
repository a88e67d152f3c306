// Package auth handles credential verification and the role hierarchy.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"unicode"

	"library-service/internal/models"
	"library-service/internal/store"
	"library-service/internal/util"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 8 characters with an uppercase letter and a digit")
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Manager performs registration, login and password changes against the
// user store.
type Manager struct {
	store  *store.Store
	logger *zap.Logger
}

// NewManager creates a new auth manager
func NewManager(st *store.Store) *Manager {
	return &Manager{
		store:  st,
		logger: util.GetLogger(),
	}
}

// ValidEmail reports whether email has a plausible address shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidPassword enforces the password policy: at least 8 characters, one
// uppercase letter and one digit.
func ValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && digit
}

// HasPermission reports whether user's role ranks at or above required.
// Pure function, no side effects.
func HasPermission(user *models.User, required models.Role) bool {
	if user == nil {
		return false
	}
	return user.Role.Rank() >= required.Rank()
}

// Register creates a new active USER account.
func (m *Manager) Register(ctx context.Context, email, password, firstName, lastName string) (*models.User, error) {
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !ValidPassword(password) {
		return nil, ErrWeakPassword
	}

	if _, err := m.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := m.store.CreateUser(ctx, user); err != nil {
		// The email check above is advisory; the unique constraint is the
		// authority when two registrations race.
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	m.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// isUniqueViolation reports whether err stems from a Postgres unique
// constraint, however deeply wrapped.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// VerifyCredentials checks email/password against an active account and
// returns the user on success.
func (m *Manager) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := m.store.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		util.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		util.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		util.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	util.LoginsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// ChangePassword replaces a user's password after verifying the old one.
func (m *Manager) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	if !ValidPassword(newPassword) {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := m.store.UpdatePasswordHash(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	return nil
}

// DeactivateUser deactivates another user's account. ADMIN only; an admin
// cannot deactivate their own account.
func (m *Manager) DeactivateUser(ctx context.Context, admin *models.User, userID int64) error {
	if !HasPermission(admin, models.RoleAdmin) {
		return models.ErrPermissionDenied
	}
	if admin.ID == userID {
		return fmt.Errorf("cannot deactivate own account: %w", models.ErrPermissionDenied)
	}
	return m.store.SetUserActive(ctx, userID, false)
}

// ActivateUser reactivates a deactivated account. ADMIN only.
func (m *Manager) ActivateUser(ctx context.Context, admin *models.User, userID int64) error {
	if !HasPermission(admin, models.RoleAdmin) {
		return models.ErrPermissionDenied
	}
	return m.store.SetUserActive(ctx, userID, true)
}

// ListUsers returns all accounts. ADMIN only.
func (m *Manager) ListUsers(ctx context.Context, admin *models.User) ([]models.User, error) {
	if !HasPermission(admin, models.RoleAdmin) {
		return nil, models.ErrPermissionDenied
	}
	return m.store.ListUsers(ctx)
}

// SearchUsers matches accounts by email or name fragment. ADMIN only.
func (m *Manager) SearchUsers(ctx context.Context, admin *models.User, keyword string) ([]models.User, error) {
	if !HasPermission(admin, models.RoleAdmin) {
		return nil, models.ErrPermissionDenied
	}
	return m.store.SearchUsers(ctx, keyword)
}

// UserStats aggregates a user's activity. ADMIN only.
func (m *Manager) UserStats(ctx context.Context, admin *models.User, userID int64) (*store.UserStats, error) {
	if !HasPermission(admin, models.RoleAdmin) {
		return nil, models.ErrPermissionDenied
	}
	if _, err := m.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return m.store.GetUserStats(ctx, userID)
}

// UpdateProfile updates the caller's own profile fields.
func (m *Manager) UpdateProfile(ctx context.Context, user *models.User) error {
	return m.store.UpdateUserProfile(ctx, user)
}

// ChangeRole assigns a new role to another user. ADMIN only; an admin
// cannot change their own role.
func (m *Manager) ChangeRole(ctx context.Context, admin *models.User, userID int64, role models.Role) error {
	if !HasPermission(admin, models.RoleAdmin) {
		return models.ErrPermissionDenied
	}
	if admin.ID == userID {
		return fmt.Errorf("cannot change own role: %w", models.ErrPermissionDenied)
	}
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	return m.store.UpdateUserRole(ctx, userID, role)
}
