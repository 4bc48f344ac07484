package etags

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/kobosync/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_etags_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.AnnotationETag{}))

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return NewRepository(db), cleanup
}

func TestRepository_PutAndGet(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.Get("b1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Put("b1", "first"))
	etag, err := repo.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, "first", etag)

	require.NoError(t, repo.Put("b1", "second"))
	etag, err = repo.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, "second", etag)
}

func TestRepository_GetMany(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.Put("b1", "x"))
	require.NoError(t, repo.Put("b2", "y"))

	tags, err := repo.GetMany([]string{"b1", "b2", "b3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b1": "x", "b2": "y"}, tags)

	tags, err = repo.GetMany(nil)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestRepository_Delete(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.Put("b1", "x"))
	require.NoError(t, repo.Delete("b1"))

	_, err := repo.Get("b1")
	assert.ErrorIs(t, err, ErrNotFound)
}
