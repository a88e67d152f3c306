package store

import (
	"context"
	"database/sql"
	"fmt"

	"library-service/internal/models"
)

// CreateUser inserts a new user account
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, address, phone, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, registration_date`

	err := s.db.GetContext(ctx, user, query,
		user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Address, user.Phone, user.Role, user.IsActive)
	return models.WrapPersistence("CreateUser", err)
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
	}
	if err != nil {
		return nil, models.WrapPersistence("GetUserByEmail", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, models.WrapPersistence("GetUserByID", err)
	}
	return &user, nil
}

// ListUsers retrieves all users
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY id")
	return users, models.WrapPersistence("ListUsers", err)
}

// SearchUsers matches users by email or name fragment
func (s *Store) SearchUsers(ctx context.Context, keyword string) ([]models.User, error) {
	var users []models.User
	err := s.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1
		ORDER BY id`, "%"+keyword+"%")
	return users, models.WrapPersistence("SearchUsers", err)
}

// UpdateUserRole changes a user's role
func (s *Store) UpdateUserRole(ctx context.Context, userID int64, role models.Role) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET role = $1 WHERE id = $2", role, userID)
	if err != nil {
		return models.WrapPersistence("UpdateUserRole", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	return nil
}

// SetUserActive activates or deactivates a user account
func (s *Store) SetUserActive(ctx context.Context, userID int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET is_active = $1 WHERE id = $2", active, userID)
	if err != nil {
		return models.WrapPersistence("SetUserActive", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	return nil
}

// UpdateUserProfile updates the mutable profile fields
func (s *Store) UpdateUserProfile(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET first_name = $1, last_name = $2, address = $3, phone = $4 WHERE id = $5",
		user.FirstName, user.LastName, user.Address, user.Phone, user.ID)
	return models.WrapPersistence("UpdateUserProfile", err)
}

// UpdatePasswordHash replaces a user's password hash
func (s *Store) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1 WHERE id = $2", hash, userID)
	return models.WrapPersistence("UpdatePasswordHash", err)
}

// UserStats aggregates a user's order and review activity
type UserStats struct {
	OrdersCount  int   `db:"orders_count"`
	ReviewsCount int   `db:"reviews_count"`
	TotalSpent   int64 `db:"total_spent"`
}

// GetUserStats computes order/review counts and the total spent on
// delivered orders
func (s *Store) GetUserStats(ctx context.Context, userID int64) (*UserStats, error) {
	var stats UserStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE user_id = $1) AS orders_count,
			(SELECT COUNT(*) FROM reviews WHERE user_id = $1) AS reviews_count,
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders
				WHERE user_id = $1 AND status = $2) AS total_spent`,
		userID, models.OrderStatusDelivered)
	if err != nil {
		return nil, models.WrapPersistence("GetUserStats", err)
	}
	return &stats, nil
}

// UpsertReview creates a review or updates the user's existing review of the
// same publication
func (s *Store) UpsertReview(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (user_id, publication_id, rating, comment, is_approved)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (user_id, publication_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment
		RETURNING id, is_approved, created_at`

	err := s.db.GetContext(ctx, review, query,
		review.UserID, review.PublicationID, review.Rating, review.Comment)
	return models.WrapPersistence("UpsertReview", err)
}

// GetReviewsByUser retrieves a user's reviews, newest first
func (s *Store) GetReviewsByUser(ctx context.Context, userID int64) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews,
		"SELECT * FROM reviews WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return reviews, models.WrapPersistence("GetReviewsByUser", err)
}

// GetReviewsByPublication retrieves the approved reviews for a publication
func (s *Store) GetReviewsByPublication(ctx context.Context, publicationID int64) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews
		WHERE publication_id = $1 AND is_approved
		ORDER BY created_at DESC`, publicationID)
	return reviews, models.WrapPersistence("GetReviewsByPublication", err)
}

// GetReviewSummary returns the average rating and review count for a
// publication
func (s *Store) GetReviewSummary(ctx context.Context, publicationID int64) (avg float64, count int, err error) {
	row := struct {
		Avg   float64 `db:"avg_rating"`
		Count int     `db:"review_count"`
	}{}
	err = s.db.GetContext(ctx, &row, `
		SELECT COALESCE(AVG(rating), 0) AS avg_rating, COUNT(*) AS review_count
		FROM reviews WHERE publication_id = $1 AND is_approved`, publicationID)
	if err != nil {
		return 0, 0, models.WrapPersistence("GetReviewSummary", err)
	}
	return row.Avg, row.Count, nil
}
