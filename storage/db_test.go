package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testDatabase(t *testing.T, db Database) {
	t.Helper()

	has, err := db.Has([]byte("missing"))
	require.NoError(t, err)
	require.False(t, has)

	_, err = db.Get([]byte("missing"))
	require.Error(t, err)

	require.NoError(t, db.Put([]byte("key"), []byte("value")))
	has, err = db.Has([]byte("key"))
	require.NoError(t, err)
	require.True(t, has)

	value, err := db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)

	require.NoError(t, db.Put([]byte("key"), []byte("updated")))
	value, err = db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("updated"), value)
}

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	defer db.Close()
	testDatabase(t, db)
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	value := []byte("original")
	require.NoError(t, db.Put([]byte("key"), value))
	value[0] = 'X'

	stored, err := db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), stored)

	stored[0] = 'Y'
	again, err := db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), again)
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()
	testDatabase(t, db)
}

func TestLevelDBPersists(t *testing.T) {
	dir := t.TempDir()

	db, err := NewLevelDB(dir)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("durable"), []byte("yes")))
	db.Close()

	reopened, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get([]byte("durable"))
	require.NoError(t, err)
	require.Equal(t, []byte("yes"), value)
}
