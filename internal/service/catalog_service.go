package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"library-service/internal/models"
	"library-service/internal/redisclient"
	"library-service/internal/store"
	"library-service/internal/util"

	"go.uber.org/zap"
)

// catalogCacheTTL bounds how stale a cached catalog listing may get even if
// an invalidation is missed.
const catalogCacheTTL = 5 * time.Minute

// CatalogService serves the publication catalog and its administrative
// operations. Listing reads go through Redis; every catalog write
// invalidates the cache.
type CatalogService struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. redis may be nil to
// disable caching.
func NewCatalogService(st *store.Store, redis *redisclient.Client) *CatalogService {
	return &CatalogService{
		store:  st,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// ListPublications returns the catalog listing, cached.
func (cs *CatalogService) ListPublications(ctx context.Context, limit int) ([]models.Publication, error) {
	key := fmt.Sprintf("publications:%d", limit)

	if cs.redis != nil {
		var cached []models.Publication
		hit, err := cs.redis.CacheGet(ctx, key, &cached)
		if err != nil {
			cs.logger.Warn("Catalog cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	pubs, err := cs.store.GetPublications(ctx, limit)
	if err != nil {
		return nil, err
	}

	if cs.redis != nil {
		if err := cs.redis.CacheSet(ctx, key, pubs, catalogCacheTTL); err != nil {
			cs.logger.Warn("Catalog cache write failed", zap.Error(err))
		}
	}
	return pubs, nil
}

// SearchPublications runs a filtered catalog search. Searches are not
// cached; the filter space is too wide to be worth it.
func (cs *CatalogService) SearchPublications(ctx context.Context, f store.PublicationFilter) ([]models.Publication, error) {
	return cs.store.SearchPublications(ctx, f)
}

// GetPublication returns a publication with authors, genres, publisher and
// review summary resolved.
func (cs *CatalogService) GetPublication(ctx context.Context, id int64) (*models.PublicationDetail, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetPublication")
	defer span.End()

	pub, err := cs.store.GetPublicationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.PublicationDetail{Publication: *pub}

	if detail.Authors, err = cs.store.GetPublicationAuthors(ctx, id); err != nil {
		return nil, err
	}
	if detail.Genres, err = cs.store.GetPublicationGenres(ctx, id); err != nil {
		return nil, err
	}
	if pub.PublisherID != 0 {
		publisher, err := cs.store.GetPublisherByID(ctx, pub.PublisherID)
		if err == nil {
			detail.Publisher = publisher
		}
	}
	if detail.AverageRating, detail.ReviewCount, err = cs.store.GetReviewSummary(ctx, id); err != nil {
		return nil, err
	}
	return detail, nil
}

// CreatePublication adds a catalog entry and links its authors and genres
// by name, creating missing ones. LIBRARIAN+.
func (cs *CatalogService) CreatePublication(ctx context.Context, actor *models.User, pub *models.Publication, authorNames, genreNames []string) error {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return models.ErrPermissionDenied
	}
	if pub.Price < 0 {
		return fmt.Errorf("price must be non-negative")
	}
	if pub.StockQuantity < 0 {
		return models.ErrInvalidQuantity
	}
	if err := cs.store.CreatePublication(ctx, pub); err != nil {
		return err
	}
	if err := cs.linkAuthorsAndGenres(ctx, pub.ID, authorNames, genreNames); err != nil {
		return err
	}
	cs.invalidateCache(ctx)
	cs.logger.Info("Publication created",
		zap.Int64("publication_id", pub.ID), zap.String("title", pub.Title))
	return nil
}

// UpdatePublication edits a catalog entry. Author and genre links are
// replaced with the given names; nil slices leave the links untouched.
// LIBRARIAN+.
func (cs *CatalogService) UpdatePublication(ctx context.Context, actor *models.User, pub *models.Publication, authorNames, genreNames []string) error {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return models.ErrPermissionDenied
	}
	if pub.Price < 0 {
		return fmt.Errorf("price must be non-negative")
	}
	if pub.StockQuantity < 0 {
		return models.ErrInvalidQuantity
	}
	if err := cs.store.UpdatePublication(ctx, pub); err != nil {
		return err
	}
	if err := cs.linkAuthorsAndGenres(ctx, pub.ID, authorNames, genreNames); err != nil {
		return err
	}
	cs.invalidateCache(ctx)
	return nil
}

// linkAuthorsAndGenres resolves names to rows, creating missing authors and
// genres, and replaces the publication's links. A nil slice means "leave
// alone"; an empty non-nil slice clears the links.
func (cs *CatalogService) linkAuthorsAndGenres(ctx context.Context, publicationID int64, authorNames, genreNames []string) error {
	if authorNames != nil {
		authorIDs := make([]int64, 0, len(authorNames))
		for _, name := range normalizeNames(authorNames) {
			author, err := cs.store.GetOrCreateAuthor(ctx, name)
			if err != nil {
				return err
			}
			authorIDs = append(authorIDs, author.ID)
		}
		if err := cs.store.SetPublicationAuthors(ctx, publicationID, authorIDs); err != nil {
			return err
		}
	}

	if genreNames != nil {
		genreIDs := make([]int64, 0, len(genreNames))
		for _, name := range normalizeNames(genreNames) {
			genre, err := cs.store.GetOrCreateGenre(ctx, name)
			if err != nil {
				return err
			}
			genreIDs = append(genreIDs, genre.ID)
		}
		if err := cs.store.SetPublicationGenres(ctx, publicationID, genreIDs); err != nil {
			return err
		}
	}
	return nil
}

// normalizeNames trims whitespace and drops empties and duplicates,
// preserving first-seen order.
func normalizeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// DeletePublication removes a catalog entry. LIBRARIAN+.
func (cs *CatalogService) DeletePublication(ctx context.Context, actor *models.User, id int64) error {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return models.ErrPermissionDenied
	}
	if err := cs.store.DeletePublication(ctx, id); err != nil {
		return err
	}
	cs.invalidateCache(ctx)
	return nil
}

// AdjustStock sets the stock level directly. LIBRARIAN+.
func (cs *CatalogService) AdjustStock(ctx context.Context, actor *models.User, id int64, quantity int) error {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return models.ErrPermissionDenied
	}
	if err := cs.store.AdjustStock(ctx, id, quantity); err != nil {
		return err
	}
	cs.invalidateCache(ctx)
	return nil
}

// AddReview records or updates the actor's review of a publication.
func (cs *CatalogService) AddReview(ctx context.Context, actor *models.User, publicationID int64, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}
	if _, err := cs.store.GetPublicationByID(ctx, publicationID); err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:        actor.ID,
		PublicationID: publicationID,
		Rating:        rating,
		Comment:       comment,
	}
	if err := cs.store.UpsertReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// ListMyReviews returns the actor's reviews, newest first.
func (cs *CatalogService) ListMyReviews(ctx context.Context, actor *models.User) ([]models.Review, error) {
	return cs.store.GetReviewsByUser(ctx, actor.ID)
}

// ListPublicationReviews returns a publication's approved reviews.
func (cs *CatalogService) ListPublicationReviews(ctx context.Context, publicationID int64) ([]models.Review, error) {
	return cs.store.GetReviewsByPublication(ctx, publicationID)
}

func (cs *CatalogService) invalidateCache(ctx context.Context) {
	if cs.redis == nil {
		return
	}
	if err := cs.redis.CacheInvalidate(ctx, "publications:*"); err != nil {
		cs.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}
