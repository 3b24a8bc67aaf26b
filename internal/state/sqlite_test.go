package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deployhook/internal/testutil"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := Open(context.Background(), Config{
		Driver: DriverSQLite,
		DSN:    ":memory:",
		Logger: testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database driver")
	assert.Contains(t, err.Error(), "sqlite, postgres")
}

func TestNormalizeDriver(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: DriverSQLite},
		{in: "sqlite", want: DriverSQLite},
		{in: "SQLite", want: DriverSQLite},
		{in: "postgres", want: DriverPostgres},
		{in: "postgresql", want: DriverPostgres},
		{in: " PostgreSQL ", want: DriverPostgres},
	}
	for _, tt := range tests {
		got, err := NormalizeDriver(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := NormalizeDriver("mysql")
	assert.ErrorContains(t, err, "available: sqlite, postgres")
}

func TestOpen_DriverCase(t *testing.T) {
	store, err := Open(context.Background(), Config{Driver: "SQLITE", DSN: ":memory:"})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	assert.Equal(t, DriverSQLite, store.Dialect())
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	version, err := store.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))
}

func TestSQLiteStore_ListReposEmpty(t *testing.T) {
	store := setupTestStore(t)

	repos, err := store.ListRepos(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, repos, "empty list must not be nil so it encodes as []")
	assert.Empty(t, repos)
}

func TestSQLiteStore_RepoLifecycle(t *testing.T) {
	tests := []struct {
		name       string
		repo       core.Repo
		wantBranch string
		wantErr    error
	}{
		{
			name:       "explicit branch",
			repo:       core.Repo{Name: "lmars/foo", Branch: "production", App: "foo"},
			wantBranch: "production",
		},
		{
			name:       "default branch",
			repo:       core.Repo{Name: "lmars/bar", App: "bar"},
			wantBranch: core.DefaultBranch,
		},
		{
			name:    "missing app",
			repo:    core.Repo{Name: "lmars/baz"},
			wantErr: core.ErrInvalidRepo,
		},
		{
			name:    "missing name",
			repo:    core.Repo{App: "baz"},
			wantErr: core.ErrInvalidRepo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			ctx := context.Background()

			repo := tt.repo
			err := store.CreateRepo(ctx, &repo)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, repo.ID)
			require.NotNil(t, repo.CreatedAt)

			got, err := store.GetRepo(ctx, repo.Name, tt.wantBranch)
			require.NoError(t, err)
			assert.Equal(t, repo.ID, got.ID)
			assert.Equal(t, tt.repo.App, got.App)
			assert.Equal(t, tt.wantBranch, got.Branch)
			require.NotNil(t, got.CreatedAt)
			assert.WithinDuration(t, *repo.CreatedAt, *got.CreatedAt, time.Millisecond)
		})
	}
}

func TestSQLiteStore_CreateRepoDuplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRepo(ctx, &core.Repo{Name: "lmars/foo", App: "foo"}))

	err := store.CreateRepo(ctx, &core.Repo{Name: "lmars/foo", Branch: "master", App: "other"})
	assert.ErrorIs(t, err, core.ErrRepoExists)

	// Same name on another branch is fine.
	require.NoError(t, store.CreateRepo(ctx, &core.Repo{Name: "lmars/foo", Branch: "dev", App: "foo-dev"}))
}

func TestSQLiteStore_GetRepoNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRepo(context.Background(), "lmars/missing", "master")
	assert.ErrorIs(t, err, core.ErrRepoNotFound)
}

func TestSQLiteStore_ListReposOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a/one", "a/two", "a/three"} {
		require.NoError(t, store.CreateRepo(ctx, &core.Repo{Name: name, App: "app"}))
	}

	repos, err := store.ListRepos(ctx)
	require.NoError(t, err)
	require.Len(t, repos, 3)
	assert.Equal(t, "a/one", repos[0].Name)
	assert.Equal(t, "a/two", repos[1].Name)
	assert.Equal(t, "a/three", repos[2].Name)
}

func TestMigrationFiles(t *testing.T) {
	for _, dialect := range Drivers {
		files, err := MigrationFiles(dialect)
		require.NoError(t, err)
		assert.Contains(t, files, "00001_create_repos.sql")
	}

	_, err := MigrationFiles("mysql")
	assert.Error(t, err)
}
