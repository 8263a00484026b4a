package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"round_dao/internal/domain"
	"round_dao/internal/engine"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(gdb))
	return NewSnapshotStore(gdb)
}

func TestSnapshotStore_LatestEmpty(t *testing.T) {
	store := newTestStore(t)
	payload, found, err := store.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, payload)
}

func TestSnapshotStore_SaveAndLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []byte(`{"v":1}`), engine.Summary{Users: 1}))
	require.NoError(t, store.Save(ctx, []byte(`{"v":2}`), engine.Summary{Users: 2, Proposals: 3, Rounds: 4, Payments: 5}))

	payload, found, err := store.Latest(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"v":2}`, string(payload))

	row, found, err := store.LatestRow(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 7, row.SizeBytes)
	assert.Equal(t, 2, row.Users)
	assert.Equal(t, 3, row.Proposals)
	assert.Equal(t, 4, row.Rounds)
	assert.Equal(t, 5, row.Payments)
	assert.NotZero(t, row.CreatedAt)
}

func TestSnapshotStore_Prune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, []byte(fmt.Sprintf(`{"v":%d}`, i)), engine.Summary{}))
	}

	deleted, err := store.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	var count int64
	require.NoError(t, store.db.Model(&domain.StateSnapshot{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	payload, _, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":4}`, string(payload))

	deleted, err = store.Prune(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSnapshotStore_EngineRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	src := engine.New(engine.Options{AdminIdentity: "admin"})
	_, err := src.CreateUser("admin", "alice")
	require.NoError(t, err)
	require.NoError(t, src.SaveTo(ctx, store))

	dst := engine.New(engine.Options{AdminIdentity: "admin"})
	found, err := dst.LoadFrom(ctx, store, 0)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, dst.Summary().Users)
}
