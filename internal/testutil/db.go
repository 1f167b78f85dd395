// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/survey_builder/internal/repo"
	"github.com/Skotchmaster/survey_builder/pkg/db"
)

// NewDB opens a private in-memory SQLite database with the schema applied.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	gdb, err := db.Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(context.Background(), gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}
