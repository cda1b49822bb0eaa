package main

import (
	"context"
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "bookhub/internal/adapters/http_server"
	"bookhub/internal/adapters/observability"
	redisstore "bookhub/internal/adapters/redis"
	"bookhub/internal/app"
	"bookhub/internal/catalog"
	"bookhub/internal/domain"
	"bookhub/internal/shared"
	"bookhub/internal/storage/localid"
	mysqlrepo "bookhub/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// backend + session. Bootstrap gates everything else; a missing
	// backend config or failed sign-in ends the process, no retry.
	var auth domain.Authenticator
	var store *redisstore.Store
	if cfg.RedisAddr != "" {
		store = redisstore.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.AppID, cfg.SubmitRPS)
		auth = store
	}
	boot := app.RunBootstrap(ctx, cfg.RedisAddr, cfg.AuthToken, auth, localid.New(cfg.IdentityFile))
	<-boot.Done()
	if err := boot.Err(); err != nil {
		log.Fatal().Err(err).Msg("session bootstrap failed")
	}

	// catalog: database-backed when a DSN is configured, embedded otherwise
	var repo domain.CatalogRepository = catalog.Static{}
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("catalog database connection ok")
		repo = mysqlrepo.New(db)
	}
	cat := app.NewCatalogService(repo, store.Cache(), cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Catalog: cat, Store: store, Boot: boot})

	log.Info().Str("addr", cfg.HTTPAddr).Str("app", cfg.AppID).Msg("hub listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
