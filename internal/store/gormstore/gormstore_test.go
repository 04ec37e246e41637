package gormstore_test

import (
	"fmt"
	"testing"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/gormstore"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gormstore.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestGateway(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Gateway {
		return gormstore.New(openSQLite(t))
	})
}
