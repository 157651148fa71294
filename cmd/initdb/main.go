// Package main はデータベース初期化コマンドのエントリーポイントです。
// 既存のテーブルをすべて破棄して作り直すため、初回セットアップ専用です。
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/tinyblog/internal/config"
	"github.com/yourusername/tinyblog/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	conn, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	if err := db.InitSchema(context.Background(), conn); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	fmt.Println("Initialized the database.")
}
