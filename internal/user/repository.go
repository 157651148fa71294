package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrUsernameTaken は username の一意制約違反を表します。
	ErrUsernameTaken = errors.New("username already taken")
	// ErrNotFound は該当するユーザーが存在しないことを表します。
	ErrNotFound = errors.New("user not found")
)

// DBTX はリポジトリが必要とする database/sql の部分集合です。
// *sql.DB と *sql.Tx の両方が満たします。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository は user テーブルへのアクセスをまとめます。
type Repository struct {
	db DBTX
}

// NewRepository はリポジトリを作成します。
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// Create はユーザーを1行挿入し、採番された id を返します。
// username が既に存在する場合は ErrUsernameTaken を返します。
// 事前チェックはせず、ストレージの一意制約違反に反応します（check-then-act 競合の回避）。
func (r *Repository) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO user (username, password) VALUES (?, ?)`,
		username, passwordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return id, nil
}

// GetByName は username の完全一致（大文字小文字を区別）で1件取得します。
func (r *Repository) GetByName(ctx context.Context, username string) (*User, error) {
	u := &User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password FROM user WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	return u, nil
}

// GetByID は id で1件取得します。
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	u := &User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password FROM user WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
