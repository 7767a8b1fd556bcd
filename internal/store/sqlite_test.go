package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededAccessor(t *testing.T) *Accessor {
	t.Helper()
	a := New(filepath.Join(t.TempDir(), "test.sqlite"), nil)
	t.Cleanup(func() { a.Close() })

	for _, stmt := range []string{
		`CREATE TABLE Products (ProductID INTEGER PRIMARY KEY, ProductName TEXT NOT NULL, UnitPrice REAL)`,
		`CREATE TABLE "Order Details" (OrderID INTEGER, ProductID INTEGER, Quantity INTEGER)`,
		`INSERT INTO Products VALUES (1, 'Chai', 18.0), (2, 'Chang', 19.0)`,
		`INSERT INTO "Order Details" VALUES (10248, 1, 12), (10248, 2, 10)`,
	} {
		res := a.Execute(stmt)
		require.True(t, res.Success, "seed failed: %s", res.Error)
	}
	return a
}

func TestListTables(t *testing.T) {
	a := seededAccessor(t)

	names, err := a.ListTables()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Products", "Order Details"}, names)
}

func TestTableSchema(t *testing.T) {
	a := seededAccessor(t)

	cols, err := a.TableSchema("Products")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "ProductID", cols[0].Name)
	assert.True(t, cols[0].PrimaryKey)
	assert.Equal(t, "ProductName", cols[1].Name)
	assert.True(t, cols[1].NotNull)
	assert.Equal(t, "REAL", cols[2].Type)
}

func TestExecute_PreservesColumnOrderAndRows(t *testing.T) {
	a := seededAccessor(t)

	res := a.Execute(`SELECT ProductName AS product, UnitPrice AS price FROM Products ORDER BY ProductID`)
	require.True(t, res.Success)
	assert.Equal(t, []string{"product", "price"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Chai", res.Rows[0]["product"])
	assert.Equal(t, 18.0, res.Rows[0]["price"])
}

func TestExecute_ZeroRowsIsSuccess(t *testing.T) {
	a := seededAccessor(t)

	res := a.Execute(`SELECT ProductName FROM Products WHERE UnitPrice > 1000`)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"ProductName"}, res.Columns)
	assert.Empty(t, res.Rows)
}

func TestExecute_SyntaxErrorCarriedInResult(t *testing.T) {
	a := seededAccessor(t)

	res := a.Execute(`SELECT COUNT(*) FROM Order Details`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "syntax error")
}

func TestExecute_QuotedMultiWordTable(t *testing.T) {
	a := seededAccessor(t)

	res := a.Execute(`SELECT SUM(Quantity) AS total FROM "Order Details"`)
	require.True(t, res.Success)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(22), res.Rows[0]["total"])
}

func TestExecute_BadPathCarriedInResult(t *testing.T) {
	a := New(filepath.Join(t.TempDir(), "missing", "sub", "db.sqlite"), nil)
	res := a.Execute("SELECT 1")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "Chai", normalizeValue([]byte("Chai")))
	assert.Equal(t, int64(3), normalizeValue(int64(3)))
	assert.Nil(t, normalizeValue(nil))
}

func TestFilterUserTables(t *testing.T) {
	got := FilterUserTables([]string{"Orders", "sqlite_sequence", "SQLITE_stat1", "Products"})
	assert.Equal(t, []string{"Orders", "Products"}, got)
}
