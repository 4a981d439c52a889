package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/storycut-backend/internal/match"
	"github.com/yungbote/storycut-backend/internal/media"
	"github.com/yungbote/storycut-backend/internal/platform/config"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
	"github.com/yungbote/storycut-backend/internal/platform/visionai"
	"github.com/yungbote/storycut-backend/internal/sceneindex"
	"github.com/yungbote/storycut-backend/internal/store"
)

func main() {
	var (
		configPath  = flag.String("config", "", "optional YAML config file")
		sessionID   = flag.String("session", "", "storyboard session id")
		tenant      = flag.String("tenant", "", "tenant id (required with -indexed)")
		requestPath = flag.String("requests", "", "JSON file with the scene match requests")
		indexed     = flag.Bool("indexed", false, "use the two-stage indexed variant")
	)
	flag.Parse()

	if *sessionID == "" || *requestPath == "" {
		fmt.Fprintln(os.Stderr, "usage: matcher -session <id> -requests <file> [-indexed -tenant <id>]")
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

	var requests []match.SceneMatchRequest
	raw, err := os.ReadFile(*requestPath)
	if err != nil {
		log.Fatal("Could not read request file", "path", *requestPath, "error", err)
	}
	if err := json.Unmarshal(raw, &requests); err != nil {
		log.Fatal("Could not parse request file", "path", *requestPath, "error", err)
	}

	// Postgres
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis init failed", "error", err)
	}

	// GCS
	var gcsOpts []option.ClientOption
	if cfg.GCS.CredentialsFile != "" {
		gcsOpts = append(gcsOpts, option.WithCredentialsFile(cfg.GCS.CredentialsFile))
	}
	gcs, err := storage.NewClient(ctx, gcsOpts...)
	if err != nil {
		log.Fatal("GCS init failed", "error", err)
	}
	defer gcs.Close()

	// Visual analysis
	vision, err := visionai.New(log, visionai.Config{
		BaseURL:        cfg.VisionAI.BaseURL,
		APIKey:         cfg.VisionAI.APIKey,
		Model:          cfg.VisionAI.Model,
		RequestTimeout: cfg.VisionAI.RequestTimeout,
		MaxRetries:     cfg.VisionAI.MaxRetries,
	})
	if err != nil {
		log.Fatal("VisionAI init failed", "error", err)
	}

	library := media.NewLibrary(db, log)
	storyboard := store.NewStoryboardStore(rdb, log)
	events := store.NewEventLog(rdb, log)
	indexStore := sceneindex.NewStore(rdb, log, cfg.SceneIndex.StaleAfter)

	svc, err := match.NewService(log, match.Deps{
		Store:   storyboard,
		Events:  events,
		Library: library,
		Vision:  vision,
		Index:   indexStore,
		CacheFactory: func() media.ResourceCache {
			return media.NewResourceCache(log, gcs, vision)
		},
		Concurrency: cfg.Match.Concurrency,
	})
	if err != nil {
		log.Fatal("Match service init failed", "error", err)
	}

	var resp *match.BatchResponse
	if *indexed {
		if *tenant == "" {
			log.Fatal("-indexed requires -tenant")
		}
		resp, err = svc.MatchScenesIndexed(ctx, *sessionID, *tenant, requests)
	} else {
		resp, err = svc.MatchScenes(ctx, *sessionID, requests)
	}
	if err != nil {
		log.Fatal("Match run failed", "session_id", *sessionID, "error", err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		log.Fatal("Could not encode response", "error", err)
	}
	fmt.Println(string(out))
}
