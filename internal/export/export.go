// Package export writes catalog, user and order snapshots to JSON or CSV
// files for offline processing.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"library-service/internal/auth"
	"library-service/internal/models"
	"library-service/internal/store"
	"library-service/internal/util"

	"go.uber.org/zap"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"

	KindUsers        = "users"
	KindPublications = "publications"
	KindOrders       = "orders"

	// exportLimit caps snapshot size to keep export files bounded.
	exportLimit = 10000
)

// ErrUnknownFormat is returned when the requested format is not json or csv.
var ErrUnknownFormat = fmt.Errorf("unknown export format")

// ErrUnknownKind is returned when the requested data set is not exportable.
var ErrUnknownKind = fmt.Errorf("unknown export kind")

// Exporter serializes store snapshots to files under a configured directory.
type Exporter struct {
	store  *store.Store
	dir    string
	logger *zap.Logger
}

// NewExporter creates a new exporter writing into dir
func NewExporter(st *store.Store, dir string) *Exporter {
	return &Exporter{
		store:  st,
		dir:    dir,
		logger: util.GetLogger(),
	}
}

// Export writes the requested data set in the requested format and returns
// the path of the written file. Only LIBRARIAN and ADMIN may export.
func (e *Exporter) Export(ctx context.Context, actor *models.User, kind, format string) (string, error) {
	if !auth.HasPermission(actor, models.RoleLibrarian) {
		return "", models.ErrPermissionDenied
	}
	if format != FormatJSON && format != FormatCSV {
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	var (
		payload interface{}
		rows    [][]string
		err     error
	)

	switch kind {
	case KindUsers:
		payload, rows, err = e.users(ctx)
	case KindPublications:
		payload, rows, err = e.publications(ctx)
	case KindOrders:
		payload, rows, err = e.orders(ctx)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(e.dir, fmt.Sprintf("%s-%s.%s", kind, time.Now().Format("20060102-150405"), format))
	if format == FormatJSON {
		err = writeJSON(path, payload)
	} else {
		err = writeCSV(path, rows)
	}
	if err != nil {
		return "", err
	}

	util.ExportsTotal.WithLabelValues(kind, format).Inc()
	e.logger.Info("Export written",
		zap.String("kind", kind),
		zap.String("format", format),
		zap.String("path", path))
	return path, nil
}

func (e *Exporter) users(ctx context.Context) (interface{}, [][]string, error) {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return nil, nil, err
	}

	rows := [][]string{{"id", "email", "first_name", "last_name", "role", "is_active", "registration_date"}}
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.Email,
			u.FirstName,
			u.LastName,
			string(u.Role),
			strconv.FormatBool(u.IsActive),
			u.RegistrationDate.Format(time.RFC3339),
		})
	}
	return users, rows, nil
}

func (e *Exporter) publications(ctx context.Context) (interface{}, [][]string, error) {
	pubs, err := e.store.GetPublications(ctx, exportLimit)
	if err != nil {
		return nil, nil, err
	}

	rows := [][]string{{"id", "title", "isbn", "publication_year", "price", "stock_quantity"}}
	for _, p := range pubs {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Title,
			p.ISBN,
			strconv.Itoa(p.PublicationYear),
			strconv.FormatInt(p.Price, 10),
			strconv.Itoa(p.StockQuantity),
		})
	}
	return pubs, rows, nil
}

func (e *Exporter) orders(ctx context.Context) (interface{}, [][]string, error) {
	orders, err := e.store.ListOrders(ctx, exportLimit)
	if err != nil {
		return nil, nil, err
	}

	rows := [][]string{{"id", "order_number", "user_id", "status", "total_amount", "created_at"}}
	for _, o := range orders {
		rows = append(rows, []string{
			strconv.FormatInt(o.ID, 10),
			o.OrderNumber,
			strconv.FormatInt(o.UserID, 10),
			o.Status,
			strconv.FormatInt(o.TotalAmount, 10),
			o.CreatedAt.Format(time.RFC3339),
		})
	}
	return orders, rows, nil
}

func writeJSON(path string, payload interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to write JSON export: %w", err)
	}
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV export: %w", err)
	}
	return nil
}
