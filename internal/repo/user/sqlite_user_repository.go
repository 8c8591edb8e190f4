package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/homecase-users/internal/domain"
	"github.com/mkrupp/homecase-users/internal/infra/logging"
)

const usersTable = "users"

//nolint:gochecknoglobals
var userColumns = []string{"id", "name", "email", "age"}

// SQLiteUserRepositoryConfig holds configuration for the SQLite user repository.
type SQLiteUserRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file, or ":memory:"
	// for a store that lives as long as the process
	DatabasePath string `env:"DATABASE_PATH" default:":memory:"`

	// BusyTimeout is how long SQLite waits on a locked database file
	BusyTimeout time.Duration `env:"BUSY_TIMEOUT" default:"5s"`
}

// SQLiteUserRepository implements Repository using SQLite as the storage backend.
type SQLiteUserRepository struct {
	db   *sqlx.DB
	sql  sq.StatementBuilderType
	log  logging.Logger
	inst *instrumentation
	lock *sync.Mutex // go-sqlite does not support concurrent writes; reads are serialized too
}

var _ Repository = (*SQLiteUserRepository)(nil)

// SQLiteUserRepositoryFactory creates a factory function that returns a new SQLiteUserRepository.
// The factory function implements the RepositoryFactory type.
func SQLiteUserRepositoryFactory(cfg SQLiteUserRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteUserRepository(cfg)
	}
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository with the given configuration.
// It initializes the database connection and creates the schema if needed.
// Returns an error if database connection or initialization fails.
func NewSQLiteUserRepository(cfg SQLiteUserRepositoryConfig) (*SQLiteUserRepository, error) {
	log := logging.GetLogger("repo.user.sqlite_user_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sqlx.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// An in-memory database exists per connection, so the pool must hold
	// exactly one connection that is never recycled.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping db: %w", err), db.Close())
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds())); err != nil {
		return nil, errors.Join(fmt.Errorf("set busy timeout: %w", err), db.Close())
	}

	if err := initializeDB(db); err != nil {
		return nil, errors.Join(fmt.Errorf("initialize db: %w", err), db.Close())
	}

	inst, err := newInstrumentation(log)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("new instrumentation: %w", err), db.Close())
	}

	return &SQLiteUserRepository{
		db:   db,
		sql:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		log:  log,
		inst: inst,
		lock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sqlx.DB) error {
	// AUTOINCREMENT keeps ids strictly increasing, even across deletes.
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			name  TEXT    NOT NULL,
			email TEXT    NOT NULL UNIQUE,
			age   INTEGER
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// mapWriteError tags constraint violations with domain.ErrUserAlreadyExists.
func mapWriteError(err error) error {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			fallthrough
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return errors.Join(domain.ErrUserAlreadyExists, err)
		default:
			break
		}
	}

	return err
}

// mapReadError tags missing rows with domain.ErrUserNotFound.
func mapReadError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Join(domain.ErrUserNotFound, err)
	}

	return err
}

// nullableInt converts an optional integer to a driver value, nil meaning NULL.
func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}

	return *v
}

func (r *SQLiteUserRepository) selectUsers() sq.SelectBuilder {
	return r.sql.Select(userColumns...).From(usersTable)
}

func (r *SQLiteUserRepository) getUser(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.User, error) {
	query, args, err := r.selectUsers().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var user domain.User
	if err := sqlx.GetContext(ctx, q, &user, query, args...); err != nil {
		return nil, fmt.Errorf("query user: %w", mapReadError(err))
	}

	return &user, nil
}

// CreateUser implements Repository.CreateUser using SQLite.
func (r *SQLiteUserRepository) CreateUser(ctx context.Context, newUser domain.NewUser) (user domain.User, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	err = r.inst.observe(ctx, "create", func(ctx context.Context) error {
		query, args, err := r.sql.Insert(usersTable).
			Columns("name", "email", "age").
			Values(newUser.Name, newUser.Email, nullableInt(newUser.Age)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("insert user: %w", mapWriteError(err))
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		user = domain.User{
			ID:    id,
			Name:  newUser.Name,
			Email: newUser.Email,
			Age:   newUser.Age,
		}

		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	return user, nil
}

// ListUsers implements Repository.ListUsers using SQLite.
func (r *SQLiteUserRepository) ListUsers(ctx context.Context) (users []domain.User, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	users = make([]domain.User, 0)

	err = r.inst.observe(ctx, "list", func(ctx context.Context) error {
		query, args, err := r.selectUsers().OrderBy("id").ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}

		if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
			return fmt.Errorf("query users: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}

// GetUserByID implements Repository.GetUserByID using SQLite.
func (r *SQLiteUserRepository) GetUserByID(ctx context.Context, id int64) (user *domain.User, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	err = r.inst.observe(ctx, "get", func(ctx context.Context) error {
		user, err = r.getUser(ctx, r.db, id)

		return err
	})

	return user, err
}

// UpdateUser implements Repository.UpdateUser using SQLite.
// The lookup, merge and write run in one transaction.
func (r *SQLiteUserRepository) UpdateUser(
	ctx context.Context,
	id int64,
	patch domain.UserPatch,
) (user domain.User, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	err = r.inst.observe(ctx, "update", func(ctx context.Context) error {
		return r.transaction(ctx, func(tx *sqlx.Tx) error {
			existing, err := r.getUser(ctx, tx, id)
			if err != nil {
				return err
			}

			user = patch.Apply(*existing)

			query, args, err := r.sql.Update(usersTable).
				SetMap(map[string]any{
					"name":  user.Name,
					"email": user.Email,
					"age":   nullableInt(user.Age),
				}).
				Where(sq.Eq{"id": id}).
				ToSql()
			if err != nil {
				return fmt.Errorf("build update: %w", err)
			}

			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update user: %w", mapWriteError(err))
			}

			return nil
		})
	})
	if err != nil {
		return domain.User{}, err
	}

	return user, nil
}

// DeleteUser implements Repository.DeleteUser using SQLite.
func (r *SQLiteUserRepository) DeleteUser(ctx context.Context, id int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.inst.observe(ctx, "delete", func(ctx context.Context) error {
		query, args, err := r.sql.Delete(usersTable).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}

		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}

		if affected == 0 {
			return fmt.Errorf("delete user: %w", domain.ErrUserNotFound)
		}

		return nil
	})
}

func (r *SQLiteUserRepository) transaction(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()

			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteUserRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
