package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"library-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRequiresLibrarian(t *testing.T) {
	e := NewExporter(nil, t.TempDir())

	user := &models.User{ID: 1, Role: models.RoleUser}
	_, err := e.Export(context.Background(), user, KindUsers, FormatJSON)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	_, err = e.Export(context.Background(), nil, KindUsers, FormatJSON)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestExportUnknownFormat(t *testing.T) {
	e := NewExporter(nil, t.TempDir())

	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	_, err := e.Export(context.Background(), admin, KindUsers, "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestExportUnknownKind(t *testing.T) {
	e := NewExporter(nil, t.TempDir())

	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	_, err := e.Export(context.Background(), admin, "invoices", FormatCSV)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pubs.json")
	pubs := []models.Publication{
		{ID: 1, Title: "Dune", Price: 1999, StockQuantity: 3},
		{ID: 2, Title: "Hyperion", Price: 1499, StockQuantity: 0},
	}

	require.NoError(t, writeJSON(path, pubs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []models.Publication
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Dune", decoded[0].Title)
	assert.Equal(t, int64(1999), decoded[0].Price)
	assert.Equal(t, 0, decoded[1].StockQuantity)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	rows := [][]string{
		{"id", "order_number", "status"},
		{"1", "ORD-20260830-0001-abc12345", "PENDING"},
	}

	require.NoError(t, writeCSV(path, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rows[0], got[0])
	assert.Equal(t, rows[1], got[1])
}
