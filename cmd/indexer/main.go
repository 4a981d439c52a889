package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/storycut-backend/internal/media"
	"github.com/yungbote/storycut-backend/internal/platform/config"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
	"github.com/yungbote/storycut-backend/internal/sceneindex"
	"github.com/yungbote/storycut-backend/internal/store"
)

func main() {
	var (
		configPath  = flag.String("config", "", "optional YAML config file")
		tenant      = flag.String("tenant", "", "tenant whose footage to index")
		concurrency = flag.Int("concurrency", 3, "concurrent annotation calls")
	)
	flag.Parse()

	if *tenant == "" {
		fmt.Fprintln(os.Stderr, "usage: indexer -tenant <id>")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := db.AutoMigrate(&media.Asset{}); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis init failed", "error", err)
	}

	var opts []option.ClientOption
	if cfg.GCS.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCS.CredentialsFile))
	}
	viClient, err := videointelligence.NewClient(ctx, opts...)
	if err != nil {
		log.Fatal("Video Intelligence init failed", "error", err)
	}
	defer viClient.Close()

	library := media.NewLibrary(db, log)
	indexStore := sceneindex.NewStore(rdb, log, cfg.SceneIndex.StaleAfter)
	builder := sceneindex.NewBuilder(log, viClient, library, indexStore, *concurrency)

	index, err := builder.Build(ctx, *tenant)
	if err != nil {
		log.Fatal("Index build failed", "tenant", *tenant, "error", err)
	}
	log.Info("Scene index built", "tenant", *tenant, "videos", len(index.Videos))

	events := store.NewEventLog(rdb, log)
	if err := events.Append(ctx, "tenant:"+*tenant, store.Event{
		Kind:  store.EventSceneIndexRefreshed,
		Actor: "agent",
		Detail: map[string]any{
			"tenant": *tenant,
			"videos": len(index.Videos),
		},
	}); err != nil {
		log.Warn("Could not record index event", "error", err)
	}
}
