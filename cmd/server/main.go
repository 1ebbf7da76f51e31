package main

import (
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5"

	"github.com/redstone-squid/Redstone-Squid/internal/config"
	"github.com/redstone-squid/Redstone-Squid/internal/db"
	"github.com/redstone-squid/Redstone-Squid/internal/handler"
	"github.com/redstone-squid/Redstone-Squid/internal/middleware"
	"github.com/redstone-squid/Redstone-Squid/internal/model"
	"github.com/redstone-squid/Redstone-Squid/internal/repository"
	"github.com/redstone-squid/Redstone-Squid/internal/router"
	"github.com/redstone-squid/Redstone-Squid/internal/service"
)

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "redstone-squid")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.CreateSchema(ctx, pool); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	handler.InitMetrics(pool)

	recordRepo := repository.NewRecordRepo(pool)
	buildRepo := repository.NewBuildRepo(pool)
	voteRepo := repository.NewVoteRepo(pool)
	tagRepo := repository.NewTagRepo(pool)
	outboxRepo := repository.NewOutboxRepo(pool)

	records := service.NewRecordService(recordRepo, cache, cfg.SubsetBound)
	records.ObserveRebuild = func(d time.Duration) { handler.Metrics.RebuildDuration.Observe(d.Seconds()) }
	records.OnCacheHit = handler.Metrics.CacheHits.Inc
	records.OnCacheMiss = handler.Metrics.CacheMisses.Inc

	builds := service.NewBuildService(buildRepo, records)

	votes := service.NewVoteService(voteRepo, cfg.EventChannel)
	votes.OnVoteCast = func(kind string) { handler.Metrics.VotesTotal.WithLabelValues(kind).Inc() }
	votes.OnSessionClosed = func(result string) { handler.Metrics.SessionsClosedTotal.WithLabelValues(result).Inc() }

	vocab := service.NewVocabService(tagRepo)
	if err := vocab.Load(ctx); err != nil {
		log.Fatalf("failed to load tag vocabulary: %v", err)
	}

	worker := service.NewEventWorker(pool, outboxRepo, cfg.EventChannel)
	worker.OnProcessed = handler.Metrics.EventsProcessed.Inc
	worker.Handle(model.EventVoteSessionClosed, func(ctx context.Context, _ pgx.Tx, ev *model.Event) error {
		var payload model.VoteSessionClosedPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return err
		}
		if payload.Result != model.ResultApproved {
			return nil
		}
		session, err := voteRepo.GetSession(ctx, ev.AggregateID)
		if err != nil {
			return err
		}
		if session.Kind != model.VoteKindBuild || session.Build == nil {
			return nil
		}
		return builds.ApplyChangeSet(ctx, session.Build.BuildID, session.Build.Changes)
	})
	go worker.Start(ctx)

	maintenance := service.NewMaintenanceWorker(recordRepo, buildRepo, time.Duration(cfg.TitleSweepMinutes)*time.Minute)
	go maintenance.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "Redstone Squid API",
		ServerHeader: "Redstone-Squid",
	})
	router.Setup(app, &router.Handlers{
		Health:  handler.NewHealthHandler(pool, cache.Client()),
		Record:  handler.NewRecordHandler(records, vocab),
		Session: handler.NewSessionHandler(votes),
		Admin:   handler.NewAdminHandler(records),
	}, cfg.CORSOrigins)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("Redstone Squid backend starting on :%s (env=%s)", cfg.Port, cfg.Environment)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Println("shutdown complete")
}
