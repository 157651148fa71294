// Package migrations はスキーマ定義のマイグレーションファイルを埋め込みます。
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
