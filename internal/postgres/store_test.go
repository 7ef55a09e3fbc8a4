package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/teamtemp/internal/source"
)

// testDSN returns TEAMTEMP_TEST_DATABASE_URL or skips the test.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEAMTEMP_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEAMTEMP_TEST_DATABASE_URL not set")
	}
	return dsn
}

// openTestStore opens an empty store on the test database.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), testDSN(t), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Save(context.Background(), nil) // nolint:errcheck
		store.Close()                        // nolint:errcheck
	})
	require.NoError(t, store.Save(context.Background(), nil))
	return store
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	want := []source.Source{
		source.NewSource("https://example.com/a", "A", created),
		source.NewSource("https://example.com/b", "", created.Add(time.Second)),
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].URL, got[i].URL)
		assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt))
	}
}

func TestStore_FailedSaveRollsBack(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	original := []source.Source{source.NewSource("https://example.com/a", "A", time.Now())}
	require.NoError(t, store.Save(ctx, original))

	dup := source.NewSource("https://example.com/x", "", time.Now())
	clash := dup
	clash.ID = "other-id"
	require.Error(t, store.Save(ctx, []source.Source{dup, clash}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, original[0].ID, got[0].ID)
}

func TestOpen_UpgradesLegacyTable(t *testing.T) {
	ctx := context.Background()
	dsn := testDSN(t)

	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Exec(context.Background(), `DROP TABLE IF EXISTS sources`) // nolint:errcheck
		conn.Close(context.Background())                                 // nolint:errcheck
	})

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS sources`,
		`CREATE TABLE sources (
			id text primary key,
			url text not null,
			tribe text default '',
			created_ts double precision not null
		)`,
		`INSERT INTO sources (id, url, tribe, created_ts) VALUES
			('b1', 'https://example.com/b', NULL, 1700000100),
			('a1', 'https://example.com/a', 'Core', 1700000000),
			('a2', 'https://example.com/a', 'Later', 1700000200)`,
	} {
		_, err := conn.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	store, err := Open(ctx, dsn, 5*time.Second)
	require.NoError(t, err)
	defer store.Close() // nolint:errcheck

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2, "duplicate url keeps the oldest entry")
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "Core", got[0].Tribe)
	assert.True(t, got[0].CreatedAt.Equal(time.Unix(1700000000, 0)))
	assert.Equal(t, "b1", got[1].ID)
	assert.Equal(t, "", got[1].Tribe)

	added := source.NewSource("https://example.com/c", "New", time.Now())
	require.NoError(t, store.Save(ctx, append(got, added)))

	clash := source.NewSource("https://example.com/a", "", time.Now())
	clash.ID = "other-id"
	assert.Error(t, store.Save(ctx, append(got, clash)), "url must be unique after upgrade")

	reopened, err := Open(ctx, dsn, 5*time.Second)
	require.NoError(t, err, "second open is a no-op")
	reopened.Close() // nolint:errcheck
}

func TestOpen_BadURL(t *testing.T) {
	_, err := Open(context.Background(), "://not-a-dsn", time.Second)
	assert.Error(t, err)
}
