package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ckriutz/dr-video/internal/auth"
	"github.com/ckriutz/dr-video/internal/indexer"
	"github.com/ckriutz/dr-video/internal/search"
	"github.com/ckriutz/dr-video/internal/videoindex"
	"github.com/ckriutz/dr-video/pkg/config"
	"github.com/ckriutz/dr-video/pkg/kafka"
	"github.com/ckriutz/dr-video/pkg/logger"
	"github.com/ckriutz/dr-video/pkg/metrics"
	"github.com/ckriutz/dr-video/pkg/storage/blobstore"
	"github.com/ckriutz/dr-video/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		ResourceAttrs:  cfg.Tracing.ResourceAttr,
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	blobs, err := blobstore.New(blobstore.Config{
		Provider:  cfg.Storage.Provider,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		logr.Fatal("init blob store", zap.Error(err))
	}

	broker := auth.NewBroker(&auth.ClientCredentials{
		TokenURL:     cfg.Identity.TokenURL,
		ClientID:     cfg.Identity.ClientID,
		ClientSecret: cfg.Identity.ClientSecret,
	}, cfg.Identity.RefreshMargin)

	jobs := videoindex.NewClient(videoindex.Config{
		APIURL:    cfg.Indexer.APIURL,
		AccountID: cfg.Indexer.AccountID,
		Location:  cfg.Indexer.Location,
		Scope:     cfg.Identity.IndexScope,
		Timeout:   cfg.Indexer.Timeout,
	}, broker, logr.Named("videoindex"))

	publisher := search.NewPublisher(search.Config{
		Endpoint:   cfg.Search.Endpoint,
		IndexName:  cfg.Search.IndexName,
		APIKey:     cfg.Search.APIKey,
		APIVersion: cfg.Search.APIVersion,
		Timeout:    cfg.Search.Timeout,
	}, logr.Named("search"))

	if err := publisher.EnsureIndex(ctx); err != nil {
		logr.Fatal("ensure search index", zap.Error(err))
	}

	service := indexer.NewService(indexer.Params{
		Blobs:     blobs,
		Jobs:      jobs,
		Publisher: publisher,
		Logger:    logr.Named("pipeline"),
		Config: indexer.Config{
			UploadMode:      cfg.Pipeline.UploadMode,
			GrantTTL:        cfg.Pipeline.GrantTTL,
			GrantClockSkew:  cfg.Pipeline.GrantClockSkew,
			PollInterval:    cfg.Pipeline.PollInterval,
			MaxWait:         cfg.Pipeline.MaxWait,
			TempDir:         cfg.Pipeline.TempDir,
			VideoExtensions: cfg.Pipeline.VideoExtensions,
		},
	})

	opsSrv := metrics.StartOpsServer(ctx, cfg.Ops.Addr, logr.Named("ops"))

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.StorageTopic,
		GroupID:       cfg.Kafka.GroupID,
		MinBytes:      cfg.Kafka.MinBytes,
		MaxBytes:      cfg.Kafka.MaxBytes,
		CommitTimeout: cfg.Kafka.CommitTimeout,
	}, logr.Named("kafka"))

	logr.Info("indexer starting",
		zap.String("topic", cfg.Kafka.StorageTopic),
		zap.String("bucket", cfg.Storage.Bucket),
		zap.String("upload_mode", cfg.Pipeline.UploadMode),
	)

	if err := consumer.Run(ctx, service.Handle); err != nil {
		logr.Error("consumer stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		logr.Error("ops server shutdown failed", zap.Error(err))
	}
	if err := consumer.Close(); err != nil {
		logr.Error("consumer close failed", zap.Error(err))
	}
	if err := blobs.Close(); err != nil {
		logr.Error("blob store close failed", zap.Error(err))
	}
	logr.Info("indexer stopped")
}
