package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"library-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetPublicationByID retrieves a publication by ID
func (s *Store) GetPublicationByID(ctx context.Context, id int64) (*models.Publication, error) {
	var pub models.Publication
	err := s.db.GetContext(ctx, &pub, "SELECT * FROM publications WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("publication %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, models.WrapPersistence("GetPublicationByID", err)
	}
	return &pub, nil
}

// GetPublications retrieves publications ordered by id
func (s *Store) GetPublications(ctx context.Context, limit int) ([]models.Publication, error) {
	if limit <= 0 {
		limit = 50
	}
	var pubs []models.Publication
	err := s.db.SelectContext(ctx, &pubs,
		"SELECT * FROM publications ORDER BY id LIMIT $1", limit)
	return pubs, models.WrapPersistence("GetPublications", err)
}

// PublicationFilter carries optional catalog search criteria. Zero values
// mean the criterion is skipped.
type PublicationFilter struct {
	Title    string
	Author   string
	Genre    string
	MinYear  int
	MaxYear  int
	MinPrice int64
	MaxPrice int64
	Limit    int
}

// SearchPublications retrieves publications matching the filter
func (s *Store) SearchPublications(ctx context.Context, f PublicationFilter) ([]models.Publication, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Title != "" {
		add("p.title ILIKE $%d", "%"+f.Title+"%")
	}
	if f.Author != "" {
		add(`EXISTS (SELECT 1 FROM publication_authors pa
			JOIN authors a ON a.id = pa.author_id
			WHERE pa.publication_id = p.id AND a.full_name ILIKE $%d)`, "%"+f.Author+"%")
	}
	if f.Genre != "" {
		add(`EXISTS (SELECT 1 FROM publication_genres pg
			JOIN genres g ON g.id = pg.genre_id
			WHERE pg.publication_id = p.id AND g.name ILIKE $%d)`, "%"+f.Genre+"%")
	}
	if f.MinYear > 0 {
		add("p.publication_year >= $%d", f.MinYear)
	}
	if f.MaxYear > 0 {
		add("p.publication_year <= $%d", f.MaxYear)
	}
	if f.MinPrice > 0 {
		add("p.price >= $%d", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		add("p.price <= $%d", f.MaxPrice)
	}

	query := "SELECT p.* FROM publications p"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY p.id LIMIT $%d", len(args))

	var pubs []models.Publication
	err := s.db.SelectContext(ctx, &pubs, query, args...)
	return pubs, models.WrapPersistence("SearchPublications", err)
}

// CreatePublication inserts a new publication
func (s *Store) CreatePublication(ctx context.Context, pub *models.Publication) error {
	query := `
		INSERT INTO publications (title, description, isbn, publication_year, price,
			stock_quantity, pages, language, publisher_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, 0))
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, pub, query,
		pub.Title, pub.Description, pub.ISBN, pub.PublicationYear, pub.Price,
		pub.StockQuantity, pub.Pages, pub.Language, pub.PublisherID)
	return models.WrapPersistence("CreatePublication", err)
}

// UpdatePublication updates mutable publication fields
func (s *Store) UpdatePublication(ctx context.Context, pub *models.Publication) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE publications
		SET title = $1, description = $2, price = $3, stock_quantity = $4,
			pages = $5, language = $6, updated_at = NOW()
		WHERE id = $7`,
		pub.Title, pub.Description, pub.Price, pub.StockQuantity,
		pub.Pages, pub.Language, pub.ID)
	if err != nil {
		return models.WrapPersistence("UpdatePublication", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("publication %d: %w", pub.ID, models.ErrNotFound)
	}
	return nil
}

// DeletePublication removes a publication and its catalog links
func (s *Store) DeletePublication(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM publications WHERE id = $1", id)
	if err != nil {
		return models.WrapPersistence("DeletePublication", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("publication %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// AdjustStock sets the absolute stock level for a publication. Administrative
// path only; checkout decrements through its own transaction.
func (s *Store) AdjustStock(ctx context.Context, id int64, quantity int) error {
	if quantity < 0 {
		return models.ErrInvalidQuantity
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE publications SET stock_quantity = $1, updated_at = NOW() WHERE id = $2",
		quantity, id)
	if err != nil {
		return models.WrapPersistence("AdjustStock", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("publication %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// GetPublicationAuthors retrieves the authors linked to a publication
func (s *Store) GetPublicationAuthors(ctx context.Context, publicationID int64) ([]models.Author, error) {
	var authors []models.Author
	err := s.db.SelectContext(ctx, &authors, `
		SELECT a.* FROM authors a
		JOIN publication_authors pa ON pa.author_id = a.id
		WHERE pa.publication_id = $1
		ORDER BY a.full_name`, publicationID)
	return authors, models.WrapPersistence("GetPublicationAuthors", err)
}

// GetPublicationGenres retrieves the genres linked to a publication
func (s *Store) GetPublicationGenres(ctx context.Context, publicationID int64) ([]models.Genre, error) {
	var genres []models.Genre
	err := s.db.SelectContext(ctx, &genres, `
		SELECT g.* FROM genres g
		JOIN publication_genres pg ON pg.genre_id = g.id
		WHERE pg.publication_id = $1
		ORDER BY g.name`, publicationID)
	return genres, models.WrapPersistence("GetPublicationGenres", err)
}

// GetOrCreateAuthor finds an author by exact name, creating it if absent.
// The upsert makes concurrent get-or-creates of the same name converge on
// one row.
func (s *Store) GetOrCreateAuthor(ctx context.Context, fullName string) (*models.Author, error) {
	var author models.Author
	err := s.db.GetContext(ctx, &author,
		"SELECT * FROM authors WHERE full_name = $1", fullName)
	if err == nil {
		return &author, nil
	}
	if err != sql.ErrNoRows {
		return nil, models.WrapPersistence("GetOrCreateAuthor", err)
	}

	err = s.db.GetContext(ctx, &author, `
		INSERT INTO authors (full_name) VALUES ($1)
		ON CONFLICT (full_name) DO UPDATE SET full_name = EXCLUDED.full_name
		RETURNING *`, fullName)
	if err != nil {
		return nil, models.WrapPersistence("GetOrCreateAuthor", err)
	}
	return &author, nil
}

// GetOrCreateGenre finds a genre by exact name, creating it if absent
func (s *Store) GetOrCreateGenre(ctx context.Context, name string) (*models.Genre, error) {
	var genre models.Genre
	err := s.db.GetContext(ctx, &genre, "SELECT * FROM genres WHERE name = $1", name)
	if err == nil {
		return &genre, nil
	}
	if err != sql.ErrNoRows {
		return nil, models.WrapPersistence("GetOrCreateGenre", err)
	}

	err = s.db.GetContext(ctx, &genre, `
		INSERT INTO genres (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING *`, name)
	if err != nil {
		return nil, models.WrapPersistence("GetOrCreateGenre", err)
	}
	return &genre, nil
}

// SetPublicationAuthors replaces a publication's author links
func (s *Store) SetPublicationAuthors(ctx context.Context, publicationID int64, authorIDs []int64) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM publication_authors WHERE publication_id = $1", publicationID); err != nil {
		return models.WrapPersistence("SetPublicationAuthors", err)
	}
	for _, authorID := range authorIDs {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO publication_authors (publication_id, author_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			publicationID, authorID); err != nil {
			return models.WrapPersistence("SetPublicationAuthors", err)
		}
	}
	return nil
}

// SetPublicationGenres replaces a publication's genre links
func (s *Store) SetPublicationGenres(ctx context.Context, publicationID int64, genreIDs []int64) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM publication_genres WHERE publication_id = $1", publicationID); err != nil {
		return models.WrapPersistence("SetPublicationGenres", err)
	}
	for _, genreID := range genreIDs {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO publication_genres (publication_id, genre_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			publicationID, genreID); err != nil {
			return models.WrapPersistence("SetPublicationGenres", err)
		}
	}
	return nil
}

// GetPublisherByID retrieves a publisher
func (s *Store) GetPublisherByID(ctx context.Context, id int64) (*models.Publisher, error) {
	var p models.Publisher
	err := s.db.GetContext(ctx, &p, "SELECT * FROM publishers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("publisher %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, models.WrapPersistence("GetPublisherByID", err)
	}
	return &p, nil
}
