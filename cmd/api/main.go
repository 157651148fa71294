// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/tinyblog/internal/auth"
	"github.com/yourusername/tinyblog/internal/config"
	"github.com/yourusername/tinyblog/internal/db"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()
	router.SetHTMLTemplate(auth.Templates())

	// リクエストIDの付与（ログ突き合わせ用）
	router.Use(requestID())

	// セッションストアの設定（署名付きクッキー、サーバー側には何も保存しない）
	secret := cfg.SessionSecret
	if secret == "" {
		// 開発時のみ。release モードでは config.Validate が未設定を弾く
		secret = "dev-insecure-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAgeSec,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		// フォームPOSTでもクッキーが送られるよう Lax にする
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true

	router.Use(cors.New(corsConfig))

	// リクエストごとのDBハンドル（遅延オープン、終了時に必ずクローズ）
	router.Use(db.Middleware(cfg.DatabasePath))

	// ルーティングの設定
	setupRoutes(router)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "tinyblog-api",
		"version": "0.1.0",
	})
}

// handleIndex はトップページのハンドラーです。ログイン状態を表示します。
func handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"User": auth.CurrentUser(c),
	})
}

// handleMe はログイン中ユーザーの情報を返すハンドラーです。
func handleMe(c *gin.Context) {
	u := auth.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"id":       u.ID,
		"username": u.Username,
	})
}

// setupRoutes は認証周りの配線を行います。
func setupRoutes(router *gin.Engine) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	authManager := auth.NewManager()

	// すべてのリクエストの前にセッションからログイン中ユーザーを解決する
	router.Use(authManager.LoadCurrentUser())

	router.GET("/", handleIndex)

	authRoutes := router.Group("/auth")
	{
		authRoutes.GET("/register", authManager.ShowRegister)
		authRoutes.POST("/register", authManager.Register)
		authRoutes.GET("/login", authManager.ShowLogin)
		authRoutes.POST("/login", authManager.Login)
		authRoutes.GET("/logout", authManager.Logout)
	}

	// ログイン必須のエンドポイントはここにぶら下げる
	protected := router.Group("")
	protected.Use(authManager.RequireLogin())
	{
		protected.GET("/me", handleMe)
	}
}

// requestID は各リクエストに一意のIDを割り当てるミドルウェアです。
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
