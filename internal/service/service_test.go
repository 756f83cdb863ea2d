package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/n1k0r/librenotes-server/internal/domain"
	"github.com/n1k0r/librenotes-server/internal/store"
	"github.com/n1k0r/librenotes-server/internal/store/sqlite"
	"github.com/n1k0r/librenotes-server/internal/store/storetest"
)

// testEnv is a store on disk plus a stopped clock shared by the store and
// the services built on it.
type testEnv struct {
	ctx   context.Context
	clock *storetest.Clock
	store store.Store
	sync  *SyncService
	tags  *TagService
	notes *NoteService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := storetest.NewClock(storetest.Epoch)
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "notes.db"), slog.New(slog.DiscardHandler), sqlite.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.DiscardHandler)
	return &testEnv{
		ctx:   context.Background(),
		clock: clock,
		store: st,
		sync:  NewSyncService(st, logger, WithSyncClock(clock.Now)),
		tags:  NewTagService(st, logger),
		notes: NewNoteService(st, logger),
	}
}

func (e *testEnv) user(t *testing.T, name string) string {
	t.Helper()
	u := &domain.User{ID: "user-" + name, Username: name, PasswordHash: "hash"}
	u.InitTimestamps(e.clock.Now())
	require.NoError(t, e.store.CreateUser(e.ctx, u))
	return u.ID
}

func ptr[T any](v T) *T { return &v }

func storeFilter(tagUUID uuid.UUID) store.NoteFilter {
	return store.NoteFilter{TagUUID: &tagUUID}
}
