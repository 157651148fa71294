// Package auth はユーザー登録・ログイン・セッション解決を提供します。
package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/tinyblog/internal/db"
	"github.com/yourusername/tinyblog/internal/user"
)

const (
	SessionCookieName = "tb_session"
	sessionKeyUserID  = "user_id"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// Manager は認証処理をまとめた構造体です。
type Manager struct{}

// NewManager は認証マネージャーを作成します。
func NewManager() *Manager {
	return &Manager{}
}

// ShowRegister は GET /auth/register のハンドラーです。
func (m *Manager) ShowRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "auth/register.html", gin.H{})
}

// Register は POST /auth/register のハンドラーです。
// 入力検証 → bcrypt ハッシュ化 → INSERT の順で処理し、
// 一意制約違反は登録済みエラーとして画面に返します。
func (m *Manager) Register(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	var errMsg string
	if username == "" {
		errMsg = "Username is required"
	} else if password == "" {
		errMsg = "Password is required"
	}

	if errMsg == "" {
		hash, err := hashPassword(password)
		if err != nil {
			c.String(http.StatusInternalServerError, "failed to hash password")
			return
		}

		repo, err := m.repository(c)
		if err != nil {
			c.String(http.StatusInternalServerError, "database unavailable")
			return
		}

		_, err = repo.Create(c.Request.Context(), username, hash)
		switch {
		case errors.Is(err, user.ErrUsernameTaken):
			errMsg = fmt.Sprintf("User %s is already registered.", username)
		case err != nil:
			c.String(http.StatusInternalServerError, "failed to register user")
			return
		default:
			c.Redirect(http.StatusSeeOther, "/auth/login")
			return
		}
	}

	c.HTML(http.StatusBadRequest, "auth/register.html", gin.H{"Error": errMsg})
}

// ShowLogin は GET /auth/login のハンドラーです。
func (m *Manager) ShowLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "auth/login.html", gin.H{})
}

// Login は POST /auth/login のハンドラーです。
// ユーザー名未登録とパスワード不一致はあえて別メッセージで返します
// （元の挙動を保つ意図的なトレードオフ）。失敗時はセッションに触れません。
func (m *Manager) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	repo, err := m.repository(c)
	if err != nil {
		c.String(http.StatusInternalServerError, "database unavailable")
		return
	}

	var errMsg string
	u, err := repo.GetByName(c.Request.Context(), username)
	switch {
	case errors.Is(err, user.ErrNotFound):
		errMsg = "Incorrect username."
	case err != nil:
		c.String(http.StatusInternalServerError, "failed to look up user")
		return
	case !checkPassword(u.Password, password):
		errMsg = "Incorrect password."
	}

	if errMsg == "" {
		// 以前のセッション内容をすべて破棄してから user_id を設定する
		session := sessions.Default(c)
		session.Clear()
		session.Set(sessionKeyUserID, u.ID)
		if err := session.Save(); err != nil {
			c.String(http.StatusInternalServerError, "failed to save session")
			return
		}
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	c.HTML(http.StatusUnauthorized, "auth/login.html", gin.H{"Error": errMsg})
}

// Logout は GET /auth/logout のハンドラーです。
// 検証なしでセッションを全消去します。何度呼んでも安全です。
func (m *Manager) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		c.String(http.StatusInternalServerError, "failed to clear session")
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// LoadCurrentUser は、すべてのリクエストの前にセッションの user_id から
// ログイン中ユーザーを解決するミドルウェアを返します。
// user_id がない場合や該当ユーザーが削除済みの場合は未ログイン扱いです。
func (m *Manager) LoadCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := readUserID(session.Get(sessionKeyUserID))
		if !ok {
			c.Next()
			return
		}

		repo, err := m.repository(c)
		if err != nil {
			c.String(http.StatusInternalServerError, "database unavailable")
			c.Abort()
			return
		}

		u, err := repo.GetByID(c.Request.Context(), id)
		if errors.Is(err, user.ErrNotFound) {
			// セッションが残っていてもユーザーが消えていれば未ログイン扱い
			c.Next()
			return
		}
		if err != nil {
			c.String(http.StatusInternalServerError, "failed to load current user")
			c.Abort()
			return
		}

		c.Set(ContextUserKey, u)
		c.Next()
	}
}

// RequireLogin は未ログインのリクエストをログイン画面へ誘導するミドルウェアを返します。
// 状態は一切変更しません。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, "/auth/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser は LoadCurrentUser が解決したユーザーを返します。未ログインなら nil です。
func CurrentUser(c *gin.Context) *user.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	u, ok := v.(*user.User)
	if !ok {
		return nil
	}
	return u
}

func (m *Manager) repository(c *gin.Context) (*user.Repository, error) {
	handle := db.FromContext(c)
	if handle == nil {
		return nil, errors.New("database middleware is not installed")
	}
	conn, err := handle.Acquire()
	if err != nil {
		return nil, err
	}
	return user.NewRepository(conn), nil
}

// hashPassword はパスワードの salted bcrypt ハッシュを返します。
// bcrypt は先頭72バイトしか見ないため、長さ制限なしで受け付けられるよう
// 先に SHA-256 でダイジェスト化してから bcrypt にかけます。
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(digestPassword(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkPassword は平文パスワードを保存済みハッシュと照合します。
func checkPassword(storedHash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), digestPassword(password)) == nil
}

func digestPassword(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	// NUL バイトを含まないよう base64 に揃えてから bcrypt に渡す
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func readUserID(v interface{}) (int64, bool) {
	switch id := v.(type) {
	case int64:
		return id, true
	case int:
		return int64(id), true
	default:
		return 0, false
	}
}
