package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"bookhub/internal/adapters/observability"
	redisstore "bookhub/internal/adapters/redis"
	"bookhub/internal/app"
	"bookhub/internal/catalog"
	"bookhub/internal/domain"
	"bookhub/internal/shared"
	mysqlrepo "bookhub/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("workers", cfg.Workers).
		Int("books", len(catalog.Books)).
		Msg("seeder starting")

	if cfg.MySQLDSN == "" {
		log.Fatal().Msg("MYSQL_DSN is required; nothing to seed into")
	}
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		cache = redisstore.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.AppID, cfg.SubmitRPS).Cache()
	}
	seed := app.NewSeedService(repo, cache)
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, b := range catalog.Books {
		b := b

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(book domain.Book) {
			defer wg.Done()
			defer sem.Release(int64(1))

			if err := seed.SeedBook(ctx, book); err != nil {
				log.Warn().Str("id", book.ID).Err(err).Msg("seed failed")
				return
			}
			log.Info().Str("id", book.ID).Msg("seed ok")
		}(b)
	}

	wg.Wait()
	log.Info().Msg("seeding completed")
}
