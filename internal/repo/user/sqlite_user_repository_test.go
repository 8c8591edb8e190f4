package user_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/homecase-users/internal/domain"
	"github.com/mkrupp/homecase-users/internal/repo/user"
)

func ptr[T any](v T) *T { return &v }

func setupRepo(t *testing.T) *user.SQLiteUserRepository {
	t.Helper()

	repo, err := user.NewSQLiteUserRepository(user.SQLiteUserRepositoryConfig{
		DatabasePath: ":memory:",
		BusyTimeout:  time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestSQLiteUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := setupRepo(t)

	created, err := repo.CreateUser(ctx, domain.NewUser{Name: "Ann", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: 1, Name: "Ann", Email: "a@x.com"}, created)

	got, err := repo.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, *got)

	withAge, err := repo.CreateUser(ctx, domain.NewUser{Name: "Bob", Email: "b@x.com", Age: ptr[int64](41)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), withAge.ID)

	got, err = repo.GetUserByID(ctx, withAge.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Age)
	assert.Equal(t, int64(41), *got.Age)
}

func TestSQLiteUserRepository_DuplicateEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := setupRepo(t)

	_, err := repo.CreateUser(ctx, domain.NewUser{Name: "Ann", Email: "a@x.com"})
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, domain.NewUser{Name: "Other", Email: "a@x.com"})
	require.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "failed insert must not create a record")
}

func TestSQLiteUserRepository_GetMissing(t *testing.T) {
	t.Parallel()

	_, err := setupRepo(t).GetUserByID(context.Background(), 42)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSQLiteUserRepository_ListEmpty(t *testing.T) {
	t.Parallel()

	users, err := setupRepo(t).ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestSQLiteUserRepository_ListAfterCreatesAndDeletes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := setupRepo(t)

	const n, m = 6, 2

	for i := range n {
		_, err := repo.CreateUser(ctx, domain.NewUser{Name: fmt.Sprint("u", i), Email: fmt.Sprintf("u%d@x.com", i)})
		require.NoError(t, err)
	}

	require.NoError(t, repo.DeleteUser(ctx, 2))
	require.NoError(t, repo.DeleteUser(ctx, 5))

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, n-m)

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	assert.Equal(t, []int64{1, 3, 4, 6}, ids, "insertion order")
}

func TestSQLiteUserRepository_IDsNeverReused(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := setupRepo(t)

	first, err := repo.CreateUser(ctx, domain.NewUser{Name: "Ann", Email: "a@x.com"})
	require.NoError(t, err)
	require.NoError(t, repo.DeleteUser(ctx, first.ID))

	second, err := repo.CreateUser(ctx, domain.NewUser{Name: "Ann", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestSQLiteUserRepository_Update(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      int64
		patch   domain.UserPatch
		want    domain.User
		wantErr error
	}{
		{
			name:  "partial keeps other fields",
			id:    1,
			patch: domain.UserPatch{Age: domain.Some[int64](30)},
			want:  domain.User{ID: 1, Name: "Ann", Email: "a@x.com", Age: ptr[int64](30)},
		},
		{
			name:  "same email on same user",
			id:    1,
			patch: domain.UserPatch{Name: domain.Some("Anna"), Email: domain.Some("a@x.com")},
			want:  domain.User{ID: 1, Name: "Anna", Email: "a@x.com", Age: ptr[int64](20)},
		},
		{
			name:  "null clears age",
			id:    1,
			patch: domain.UserPatch{Age: domain.Null[int64]()},
			want:  domain.User{ID: 1, Name: "Ann", Email: "a@x.com"},
		},
		{
			name:    "email of another user",
			id:      1,
			patch:   domain.UserPatch{Email: domain.Some("b@x.com")},
			wantErr: domain.ErrUserAlreadyExists,
		},
		{
			name:    "missing user",
			id:      99,
			patch:   domain.UserPatch{Name: domain.Some("Ghost")},
			wantErr: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			repo := setupRepo(t)

			_, err := repo.CreateUser(ctx, domain.NewUser{Name: "Ann", Email: "a@x.com", Age: ptr[int64](20)})
			require.NoError(t, err)
			_, err = repo.CreateUser(ctx, domain.NewUser{Name: "Bob", Email: "b@x.com"})
			require.NoError(t, err)

			got, err := repo.UpdateUser(ctx, tt.id, tt.patch)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				stored, err := repo.GetUserByID(ctx, 1)
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", stored.Email, "failed update must not change the record")

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			stored, err := repo.GetUserByID(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *stored)
		})
	}
}

func TestSQLiteUserRepository_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := setupRepo(t)

	created, err := repo.CreateUser(ctx, domain.NewUser{Name: "Ann", Email: "a@x.com"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteUser(ctx, created.ID))

	_, err = repo.GetUserByID(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	require.ErrorIs(t, repo.DeleteUser(ctx, created.ID), domain.ErrUserNotFound)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSQLiteUserRepository_ConcurrentCreates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := setupRepo(t)

	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	// every worker races for the same email; exactly one may win
	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.CreateUser(ctx, domain.NewUser{Name: fmt.Sprint("w", i), Email: "same@x.com"})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, successes)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSQLiteUserRepository_FileBacked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := user.SQLiteUserRepositoryConfig{
		DatabasePath: filepath.Join(t.TempDir(), "users.db"),
		BusyTimeout:  time.Second,
	}

	repo, err := user.SQLiteUserRepositoryFactory(cfg)()
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, domain.NewUser{Name: "Ann", Email: "a@x.com"})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := user.NewSQLiteUserRepository(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetUserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}
