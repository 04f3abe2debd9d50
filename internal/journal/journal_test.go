package journal

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/door-controller/internal/logic"
)

var (
	_ Journal = (*Memory)(nil)
	_ Journal = (*SQLite)(nil)
)

func activity(typ logic.ActivityType, uid string, at time.Time) logic.Activity {
	a := logic.Activity{
		Timestamp: at,
		Type:      typ,
		State:     logic.StateAwaitingCredential,
		Armed:     true,
	}
	if uid != "" {
		a.Method = logic.MethodCard
		a.UID = uid
	}
	return a
}

func TestHasherIsKeyed(t *testing.T) {
	a := NewHasher([]byte("site-a"))
	b := NewHasher([]byte("site-b"))

	h1 := a.Hash("DEADBEEF")
	require.Len(t, h1, HashSize)
	require.Equal(t, h1, a.Hash("DEADBEEF"), "hash must be stable")
	require.NotEqual(t, h1, a.Hash("CAFEBABE"))
	require.NotEqual(t, h1, b.Hash("DEADBEEF"), "different secrets must give different hashes")
	require.Nil(t, a.Hash(""))
}

func TestMemoryRecent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(NewHasher(nil))
	base := time.Date(2026, 3, 7, 14, 5, 9, 0, time.UTC)

	require.NoError(t, m.Record(ctx, activity(logic.ActivityDoorOpened, "DEADBEEF", base)))
	require.NoError(t, m.Record(ctx, activity(logic.ActivityDoorClosed, "", base.Add(time.Second))))
	require.NoError(t, m.Record(ctx, activity(logic.ActivityDenied, "CAFEBABE", base.Add(2*time.Second))))

	got, err := m.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, logic.ActivityDenied, got[0].Type)
	require.Equal(t, logic.ActivityDoorClosed, got[1].Type)
	require.Empty(t, got[1].HashHex())

	all := m.Entries()
	require.Len(t, all, 3)
	require.Equal(t, int64(1), all[0].ID)
	require.Len(t, all[0].HashHex(), 2*HashSize)

	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Record(ctx, activity(logic.ActivityAlert, "", base)), ErrClosed)
}

func TestSQLiteRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	h := NewHasher([]byte("test"))
	path := filepath.Join(t.TempDir(), "data", "journal.db")

	s, err := Open(ctx, path, h)
	require.NoError(t, err)

	base := time.Date(2026, 3, 7, 14, 5, 9, 0, time.UTC)
	require.NoError(t, s.Record(ctx, activity(logic.ActivityDoorOpened, "DEADBEEF", base)))
	require.NoError(t, s.Record(ctx, activity(logic.ActivityDoorClosed, "", base.Add(time.Second))))
	a := activity(logic.ActivityDenied, "DEADBEEF", base.Add(2*time.Second))
	a.Attempts = 2
	require.NoError(t, s.Record(ctx, a))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.Equal(t, logic.ActivityDenied, got[0].Type)
	require.Equal(t, 2, got[0].Attempts)
	require.Equal(t, logic.MethodCard, got[0].Method)
	require.Equal(t, h.Hash("DEADBEEF"), got[0].UIDHash)
	require.True(t, got[0].Armed)
	require.True(t, got[0].Time.Equal(base.Add(2*time.Second)))

	require.Nil(t, got[1].UIDHash)
	require.Equal(t, logic.StateAwaitingCredential, got[1].State)

	n, err := s.CountByUID(ctx, "DEADBEEF")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, s.Close())
}

func TestSQLiteReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	h := NewHasher([]byte("test"))
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(ctx, path, h)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, activity(logic.ActivityPasswordSet, "", time.Now())))
	require.NoError(t, s.Close())

	// Migrations must be idempotent.
	s, err = Open(ctx, path, h)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, logic.ActivityPasswordSet, got[0].Type)
}

func TestSQLiteRecordCancelled(t *testing.T) {
	h := NewHasher(nil)
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "j.db"), h)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Record(ctx, activity(logic.ActivityAlert, "", time.Now()))
	require.Error(t, err)
}

func TestSQLiteRecordDoesNotWaitForCommit(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "j.db"), NewHasher(nil))
	require.NoError(t, err)

	// Hold the worker inside a transaction.
	started := make(chan struct{})
	release := make(chan struct{})
	held := make(chan error, 1)
	go func() {
		held <- s.writer.do(ctx, func(context.Context, *sql.Tx) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	const extra = 5
	busy := 0
	begin := time.Now()
	for i := 0; i < queueSize+extra; i++ {
		err := s.Record(ctx, activity(logic.ActivityDoorOpened, "DEADBEEF", begin))
		if errors.Is(err, ErrBacklog) {
			busy++
			continue
		}
		require.NoError(t, err)
	}
	require.Less(t, time.Since(begin), time.Second, "Record must not wait for the worker")
	require.Equal(t, extra, busy)
	require.Equal(t, uint64(extra), s.Dropped())

	close(release)
	require.NoError(t, <-held)

	n, err := s.CountByUID(ctx, "DEADBEEF")
	require.NoError(t, err)
	require.Equal(t, queueSize, n)

	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Record(ctx, activity(logic.ActivityAlert, "", begin)), ErrClosed)
}

func TestWorkerFinishesJobAfterCallerGivesUp(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "j.db"), NewHasher(nil))
	require.NoError(t, err)
	defer s.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	go s.writer.do(ctx, func(context.Context, *sql.Tx) error {
		close(started)
		<-release
		return nil
	})
	<-started

	// The caller stops waiting while its job is still queued.
	callerCtx, cancel := context.WithCancel(ctx)
	ran := make(chan error, 1)
	queued := make(chan error, 1)
	go func() {
		queued <- s.writer.do(callerCtx, func(txCtx context.Context, tx *sql.Tx) error {
			ran <- txCtx.Err()
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-queued, context.Canceled)

	close(release)
	select {
	case err := <-ran:
		require.NoError(t, err, "job ran with a cancelled context")
	case <-time.After(time.Second):
		t.Fatal("queued job never ran")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"0001_init.sql", 1, false},
		{"0012_add_index.sql", 12, false},
		{"0000_base.sql", 0, false},
		{"init.sql", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVersion(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, v)
		})
	}
}
