// Основной пакет сервиса AIBridge. Отвечает за запуск сервиса, инициализацию базы данных, миграцию моделей и запуск HTTP-сервера с планировщиком синхронизации каталогов.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/config"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dao"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/gormlogger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var version string = "DEV"

var models = []any{&dao.LdapConfig{}, &dao.LdapUser{}}

func main() {
	paramQueries := flag.Bool("paramQueries", true, "Mask queries params in log")
	noMigration := flag.Bool("noMigration", false, "Turn off DB migration")
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")
	flag.Parse()

	PrintBanner()

	cfg := config.ReadConfig()

	if *trace {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Set prod log format
	if version != "DEV" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
	}

	slog.Info("AIBridge start.")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseDSN,
		PreferSimpleProtocol: false, // disables implicit prepared statement usage
	}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.NewGormLogger(slog.Default(), time.Second*4, *paramQueries),
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}

	if !*noMigration {
		slog.Info("Migrate models")
		if err := db.AutoMigrate(models...); err != nil {
			slog.Error("Migration fail", "err", err)
			os.Exit(1)
		}
	}

	aibridge.Server(db, cfg, version)
}

func PrintBanner() {
	fmt.Printf(`    _    ___ ____       _     _
   / \  |_ _| __ ) _ __(_) __| | __ _  ___
  / _ \  | ||  _ \| '__| |/ _` + "`" + ` |/ _` + "`" + ` |/ _ \
 / ___ \ | || |_) | |  | | (_| | (_| |  __/
/_/   \_\___|____/|_|  |_|\__,_|\__, |\___|
                                |___/ %s

`, version)
}
