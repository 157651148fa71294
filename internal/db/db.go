// Package db はリクエスト単位のデータベースハンドル管理とスキーマ初期化を提供します。
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/yourusername/tinyblog/internal/db/migrations"
)

// ContextKey は、ハンドラー間でリクエスト用ハンドルを共有するためのキーです。
const ContextKey = "db.handle"

// Handle は1リクエスト分のデータベース接続を表します。
// 最初の Acquire で接続を開き、以降は同じ接続を返します。
// リクエスト間で共有してはいけません。
type Handle struct {
	dsn  string
	conn *sql.DB
}

// NewHandle は未接続のハンドルを作成します。
func NewHandle(dsn string) *Handle {
	return &Handle{dsn: dsn}
}

// Acquire は接続を返します。初回呼び出しで接続を開いてキャッシュし、
// 2回目以降はキャッシュ済みの接続をそのまま返します。
func (h *Handle) Acquire() (*sql.DB, error) {
	if h.conn != nil {
		return h.conn, nil
	}

	conn, err := Open(h.dsn)
	if err != nil {
		return nil, err
	}
	// sql.Open は遅延接続のため、ここで実際に接続を確立する
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	h.conn = conn
	return h.conn, nil
}

// Release は接続を閉じます。一度も Acquire されていない場合は何もしません。
// 複数回呼んでも安全です。
func (h *Handle) Release() error {
	if h.conn == nil {
		return nil
	}
	conn := h.conn
	h.conn = nil
	return conn.Close()
}

// Middleware はリクエストごとに新しいハンドルをコンテキストへ登録し、
// レスポンス返却後（panic 時も含む）に必ず接続を解放するミドルウェアを返します。
func Middleware(dsn string) gin.HandlerFunc {
	return func(c *gin.Context) {
		handle := NewHandle(dsn)
		c.Set(ContextKey, handle)
		defer func() {
			_ = handle.Release()
		}()
		c.Next()
	}
}

// FromContext はミドルウェアが登録したハンドルを取り出します。
func FromContext(c *gin.Context) *Handle {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil
	}
	handle, ok := v.(*Handle)
	if !ok {
		return nil
	}
	return handle
}

// Open はSQLiteデータベースへの接続を開きます。
func Open(dsn string) (*sql.DB, error) {
	// 複数リクエストが同一ファイルへ同時アクセスするため busy_timeout を設定する
	return sql.Open("sqlite", dsn+"?_pragma=busy_timeout(5000)")
}

// InitSchema は既存のデータを破棄してスキーマを作り直します。
// 運用者による明示的な初期化専用で、リクエスト処理中には呼びません。
func InitSchema(ctx context.Context, conn *sql.DB) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	// 初回実行時はバージョン管理テーブルがまだ無いため、先に作成しておく
	if _, err := goose.EnsureDBVersionContext(ctx, conn); err != nil {
		return fmt.Errorf("failed to ensure version table: %w", err)
	}

	// 一旦すべてロールバックしてから再適用する（破壊的な作り直し）
	if err := goose.ResetContext(ctx, conn, "."); err != nil {
		return fmt.Errorf("failed to reset schema: %w", err)
	}
	if err := goose.UpContext(ctx, conn, "."); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
