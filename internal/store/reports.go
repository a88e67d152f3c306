package store

import (
	"context"
	"time"

	"library-service/internal/models"
)

// Report row types. All reports are plain SQL aggregations; only PAID and
// DELIVERED orders count as sales.

type SalesByDayRow struct {
	Day         time.Time `db:"day" json:"day"`
	OrdersCount int       `db:"orders_count" json:"orders_count"`
	Revenue     int64     `db:"revenue" json:"revenue"`
	ItemsSold   int       `db:"items_sold" json:"items_sold"`
}

type TopPublicationRow struct {
	PublicationID int64   `db:"publication_id" json:"publication_id"`
	Title         string  `db:"title" json:"title"`
	UnitsSold     int     `db:"units_sold" json:"units_sold"`
	Revenue       int64   `db:"revenue" json:"revenue"`
	AverageRating float64 `db:"average_rating" json:"average_rating"`
}

type UserActivityRow struct {
	UserID       int64  `db:"user_id" json:"user_id"`
	Email        string `db:"email" json:"email"`
	FirstName    string `db:"first_name" json:"first_name"`
	LastName     string `db:"last_name" json:"last_name"`
	OrdersCount  int    `db:"orders_count" json:"orders_count"`
	TotalSpent   int64  `db:"total_spent" json:"total_spent"`
	ReviewsCount int    `db:"reviews_count" json:"reviews_count"`
}

type InventoryRow struct {
	PublicationID int64  `db:"publication_id" json:"publication_id"`
	Title         string `db:"title" json:"title"`
	StockQuantity int    `db:"stock_quantity" json:"stock_quantity"`
	StockValue    int64  `db:"stock_value" json:"stock_value"`
}

type GenreStatsRow struct {
	Genre             string `db:"genre" json:"genre"`
	PublicationsCount int    `db:"publications_count" json:"publications_count"`
	UnitsSold         int    `db:"units_sold" json:"units_sold"`
	Revenue           int64  `db:"revenue" json:"revenue"`
}

// GetSalesByDay aggregates sales per calendar day over [start, end]
func (s *Store) GetSalesByDay(ctx context.Context, start, end time.Time) ([]SalesByDayRow, error) {
	var rows []SalesByDayRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT date_trunc('day', o.created_at) AS day,
			COUNT(DISTINCT o.id) AS orders_count,
			COALESCE(SUM(ol.quantity * ol.unit_price), 0) AS revenue,
			COALESCE(SUM(ol.quantity), 0) AS items_sold
		FROM orders o
		JOIN order_lines ol ON ol.order_id = o.id
		WHERE o.status IN ($1, $2) AND o.created_at >= $3 AND o.created_at <= $4
		GROUP BY day
		ORDER BY day`,
		models.OrderStatusPaid, models.OrderStatusDelivered, start, end)
	return rows, models.WrapPersistence("GetSalesByDay", err)
}

// GetTopPublications returns the best-selling publications
func (s *Store) GetTopPublications(ctx context.Context, limit int) ([]TopPublicationRow, error) {
	if limit <= 0 {
		limit = 10
	}
	// Orders and reviews are aggregated separately; a single flat join
	// would fan out and multiply units_sold by the review count.
	var rows []TopPublicationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT p.id AS publication_id, p.title,
			s.units_sold, s.revenue,
			COALESCE(r.average_rating, 0) AS average_rating
		FROM publications p
		JOIN (
			SELECT publication_id,
				SUM(quantity) AS units_sold,
				SUM(quantity * unit_price) AS revenue
			FROM order_lines
			GROUP BY publication_id
		) s ON s.publication_id = p.id
		LEFT JOIN (
			SELECT publication_id, AVG(rating) AS average_rating
			FROM reviews
			GROUP BY publication_id
		) r ON r.publication_id = p.id
		ORDER BY s.units_sold DESC
		LIMIT $1`, limit)
	return rows, models.WrapPersistence("GetTopPublications", err)
}

// GetUserActivity returns the most active users by order count
func (s *Store) GetUserActivity(ctx context.Context, limit int) ([]UserActivityRow, error) {
	if limit <= 0 {
		limit = 10
	}
	// Same shape as GetTopPublications: aggregating orders and reviews in
	// one join would inflate total_spent for users with reviews.
	var rows []UserActivityRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT u.id AS user_id, u.email, u.first_name, u.last_name,
			COALESCE(o.orders_count, 0) AS orders_count,
			COALESCE(o.total_spent, 0) AS total_spent,
			COALESCE(r.reviews_count, 0) AS reviews_count
		FROM users u
		LEFT JOIN (
			SELECT user_id, COUNT(*) AS orders_count,
				SUM(total_amount) AS total_spent
			FROM orders
			GROUP BY user_id
		) o ON o.user_id = u.id
		LEFT JOIN (
			SELECT user_id, COUNT(*) AS reviews_count
			FROM reviews
			GROUP BY user_id
		) r ON r.user_id = u.id
		ORDER BY orders_count DESC
		LIMIT $1`, limit)
	return rows, models.WrapPersistence("GetUserActivity", err)
}

// GetLowStock returns publications at or below the threshold, emptiest first
func (s *Store) GetLowStock(ctx context.Context, threshold int) ([]InventoryRow, error) {
	var rows []InventoryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id AS publication_id, title, stock_quantity,
			price * stock_quantity AS stock_value
		FROM publications
		WHERE stock_quantity < $1
		ORDER BY stock_quantity, id`, threshold)
	return rows, models.WrapPersistence("GetLowStock", err)
}

// GetInventoryValue returns the total value of stock on hand
func (s *Store) GetInventoryValue(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(price * stock_quantity), 0) FROM publications")
	return total, models.WrapPersistence("GetInventoryValue", err)
}

// GetGenreStats aggregates sales per genre
func (s *Store) GetGenreStats(ctx context.Context) ([]GenreStatsRow, error) {
	var rows []GenreStatsRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT g.name AS genre,
			COUNT(DISTINCT p.id) AS publications_count,
			COALESCE(SUM(ol.quantity), 0) AS units_sold,
			COALESCE(SUM(ol.quantity * ol.unit_price), 0) AS revenue
		FROM genres g
		JOIN publication_genres pg ON pg.genre_id = g.id
		JOIN publications p ON p.id = pg.publication_id
		LEFT JOIN order_lines ol ON ol.publication_id = p.id
		GROUP BY g.id, g.name
		ORDER BY revenue DESC`)
	return rows, models.WrapPersistence("GetGenreStats", err)
}
