package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tsudoi-app/tsudoi/internal/api"
	"github.com/tsudoi-app/tsudoi/internal/auth"
	"github.com/tsudoi-app/tsudoi/internal/cache"
	"github.com/tsudoi-app/tsudoi/internal/chat"
	"github.com/tsudoi-app/tsudoi/internal/config"
	"github.com/tsudoi-app/tsudoi/internal/events"
	"github.com/tsudoi-app/tsudoi/internal/logger"
	"github.com/tsudoi-app/tsudoi/internal/media"
	"github.com/tsudoi-app/tsudoi/internal/profile"
	"github.com/tsudoi-app/tsudoi/internal/realtime"
	"github.com/tsudoi-app/tsudoi/internal/store/mongostore"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logg, err := logger.New(cfg.App.Env != "production")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mc, err := mongostore.NewClient(ctx, cfg.Mongo.URI)
	if err != nil {
		logg.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	db := mc.Database(cfg.Mongo.Database)

	conversations := mongostore.NewConversations(db.Collection("conversations"))
	participants := mongostore.NewParticipants(db.Collection("participants"))
	messages := mongostore.NewMessages(db.Collection("messages"))
	profiles := mongostore.NewProfiles(db.Collection("profiles"))

	presence, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logg.Fatalw("redis init", "err", err)
	}
	defer presence.Close()

	broker := realtime.NewBroker()

	var publisher chat.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		publisher = kp

		kc := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logg)
		defer kc.Close()
		go kc.Run(ctx, broker)
	} else {
		// Without Kafka, insert events still have to reach the other feeds
		// open on this node.
		publisher = events.NewLocalPublisher(broker)
		logg.Warn("kafka brokers not configured, message events stay in-process (single node only)")
	}

	var avatars profile.AvatarStore
	if cfg.S3.Bucket != "" {
		s3store, err := media.NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.PublicBase)
		if err != nil {
			logg.Fatalw("s3 init", "err", err)
		}
		avatars = s3store
	}

	resolver := chat.NewResolver(conversations, participants, profiles, logg)
	gate := chat.NewGate(conversations, participants)
	channels := chat.NewChannels(conversations, participants, messages, profiles, logg)
	feeds := chat.NewFeeds(messages, conversations, profiles, broker, publisher, logg)
	profileSvc := profile.NewService(profiles, avatars, logg)

	app := api.New(api.Options{
		Resolver:   resolver,
		Gate:       gate,
		Channels:   channels,
		Feeds:      feeds,
		Profiles:   profileSvc,
		Presence:   presence,
		Validator:  auth.NewValidator(cfg.JWT.Secret),
		Log:        logg,
		SendLimit:  cfg.RateLimit.Sends,
		SendWindow: cfg.RateLimitWindow,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logg.Infow("listening", "addr", addr)
		if err := app.Listen(addr); err != nil {
			logg.Fatalw("server listen", "err", err)
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(shutdownCtx)
}
