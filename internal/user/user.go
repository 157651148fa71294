// Package user は user テーブルのモデルとリポジトリを提供します。
package user

// User は登録済みユーザーを表します。
// Password には bcrypt ハッシュのみを保存し、平文は決して保存しません。
type User struct {
	ID       int64
	Username string
	Password string
}
