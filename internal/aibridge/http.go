// Пакет aibridge собирает сервис моста каталогов: HTTP-поверхность для
// административных операций, планировщик фоновой синхронизации и проверку
// учётных данных через внешние каталоги.
//
// Основные возможности:
//   - Запуск синхронизации по расписанию и вручную.
//   - Аутентификация пользователей через каталог арендатора (search-then-bind).
//   - Чтение и административное управление закешированными пользователями каталога.
//   - Метрики prometheus по HTTP и проходам синхронизации.
package aibridge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	authprovider "github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/auth-provider"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/apierrors"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/config"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/cronmanager"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/directory"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/maintenance"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type Services struct {
	db           *gorm.DB
	synchronizer *maintenance.LdapSynchronizer
	authProvider authprovider.AuthProvider
}

var cfg *config.Config
var appVersion string

func newServices(db *gorm.DB, client directory.Client, c *config.Config) *Services {
	return &Services{
		db:           db,
		synchronizer: maintenance.NewLdapSynchronizer(db, client, c),
		authProvider: authprovider.NewLdapProvider(db, client),
	}
}

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "AIBridge")
		return next(c)
	}
}

// TokenAuthMiddleware проверяет server-to-server токен административного API.
func TokenAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.Request().Header.Get(echo.HeaderAuthorization)
		if token != "Bearer "+cfg.RootToken {
			return EErrorDefined(c, apierrors.ErrNotAuthorized)
		}
		return next(c)
	}
}

// Server запускает HTTP-сервис и cron-диспетчер фоновой синхронизации.
// Блокируется до остановки сервера.
func Server(db *gorm.DB, c *config.Config, version string) {
	cfg = c
	appVersion = version

	client := directory.NewLdapClient(time.Duration(cfg.LdapDialTimeout) * time.Second)
	s := newServices(db, client, cfg)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(ServerHeader)
	e.Use(echoprometheus.NewMiddleware("aibridge"))

	e.GET("/api/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"version": appVersion})
	})
	e.GET("/metrics", echoprometheus.NewHandler())

	ldapGroup := e.Group("/api/ldap", TokenAuthMiddleware)
	s.AddLdapServices(ldapGroup)

	// Scheduler: fixed tick, per-tenant intervals honored inside SyncAllEnabled
	cronManager := cronmanager.NewCronManager(cronmanager.JobRegistry{
		"ldap-sync": {
			Func:     s.synchronizer.SyncJob,
			Schedule: "@every " + strconv.Itoa(cfg.SyncPeriod) + "s",
		},
	})
	if err := cronManager.LoadJobs(); err != nil {
		slog.Error("Load cron jobs", "err", err)
		os.Exit(1)
	}
	cronManager.Start()

	// Create a channel to handle termination signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		cronManager.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown", "err", err)
		}
	}()

	if err := e.Start(cfg.ListenAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server fail", "err", err)
	}
}
