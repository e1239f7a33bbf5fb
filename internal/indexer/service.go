package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ckriutz/dr-video/internal/auth"
	"github.com/ckriutz/dr-video/internal/insights"
	"github.com/ckriutz/dr-video/internal/search"
	"github.com/ckriutz/dr-video/internal/videoindex"
	"github.com/ckriutz/dr-video/pkg/metrics"
	"github.com/ckriutz/dr-video/pkg/storage/blobstore"
)

// JobClient is the slice of the indexing service the pipeline uses.
type JobClient interface {
	SubmitByURL(ctx context.Context, videoURL, displayName string) (videoindex.Job, error)
	SubmitByBytes(ctx context.Context, r io.Reader, displayName string) (videoindex.Job, error)
	PollUntilTerminal(ctx context.Context, job videoindex.Job, pollInterval, maxWait time.Duration) (videoindex.Job, error)
	FetchInsights(ctx context.Context, job videoindex.Job) (insights.VideoIndex, error)
}

// DocumentPublisher upserts mapped documents into the search index.
type DocumentPublisher interface {
	Publish(ctx context.Context, doc insights.SearchDocument) search.Outcome
}

// Config holds the per-run pipeline policy.
type Config struct {
	UploadMode      string
	GrantTTL        time.Duration
	GrantClockSkew  time.Duration
	PollInterval    time.Duration
	MaxWait         time.Duration
	TempDir         string
	VideoExtensions []string
}

// Service drives one ingestion pipeline run per storage event: filter,
// acquire access, submit, poll to terminal, map and publish.
type Service struct {
	blobs     blobstore.Client
	jobs      JobClient
	mapper    *insights.Mapper
	publisher DocumentPublisher
	logger    *zap.Logger
	cfg       Config

	now func() time.Time
}

type Params struct {
	Blobs     blobstore.Client
	Jobs      JobClient
	Mapper    *insights.Mapper
	Publisher DocumentPublisher
	Logger    *zap.Logger
	Config    Config
}

// NewService constructs the pipeline orchestrator.
func NewService(p Params) *Service {
	mapper := p.Mapper
	if mapper == nil {
		mapper = insights.NewMapper()
	}
	return &Service{
		blobs:     p.Blobs,
		jobs:      p.Jobs,
		mapper:    mapper,
		publisher: p.Publisher,
		logger:    p.Logger,
		cfg:       p.Config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Handle decodes a raw event payload and runs the pipeline for it.
func (s *Service) Handle(ctx context.Context, payload []byte) error {
	evt, err := DecodeStorageEvent(payload)
	if err != nil {
		s.logger.Error("dropping undecodable event", zap.Error(err), zap.ByteString("payload", payload))
		return nil
	}
	return s.HandleEvent(ctx, evt)
}

// HandleEvent runs one full pipeline for the given storage event.
func (s *Service) HandleEvent(ctx context.Context, evt StorageEvent) error {
	name := path.Base(evt.ObjectKey)
	if !s.isVideo(name) {
		s.logger.Debug("skipping non-video object", zap.String("object", evt.ObjectKey))
		metrics.EventsSkippedTotal.Inc()
		return nil
	}

	runID := uuid.NewString()
	log := s.logger.With(
		zap.String("run_id", runID),
		zap.String("object", evt.ObjectKey),
		zap.Int64("size_bytes", evt.SizeBytes),
	)

	tracer := otel.Tracer("indexer")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("object.key", evt.ObjectKey),
	)

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()
	started := s.now()

	job, err := s.submit(ctx, evt, name, runID, log)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		log.Error("submission stage failed", zap.Error(err))
		return err
	}
	span.SetAttributes(attribute.String("job.id", job.ID))
	log = log.With(zap.String("job_id", job.ID))

	pollStart := s.now()
	ctxPoll, spanPoll := tracer.Start(ctx, "poll")
	job, err = s.jobs.PollUntilTerminal(ctxPoll, job, s.cfg.PollInterval, s.cfg.MaxWait)
	spanPoll.End()
	metrics.StageDuration.WithLabelValues("poll").Observe(s.now().Sub(pollStart).Seconds())
	if err != nil {
		metrics.RunsTotal.WithLabelValues("interrupted").Inc()
		return fmt.Errorf("poll job %s for %s: %w", job.ID, name, err)
	}

	switch job.State {
	case videoindex.StateFailed:
		metrics.RunsTotal.WithLabelValues("processing_failed").Inc()
		log.Error("remote processing failed")
		return fmt.Errorf("%w: job %s for %s", ErrProcessingFailed, job.ID, name)
	case videoindex.StateTimedOut:
		metrics.RunsTotal.WithLabelValues("timed_out").Inc()
		log.Error("gave up waiting for remote processing", zap.Duration("max_wait", s.cfg.MaxWait))
		return fmt.Errorf("%w: job %s for %s after %s", ErrTimedOut, job.ID, name, s.cfg.MaxWait)
	}

	ctxPub, spanPub := tracer.Start(ctx, "map_publish")
	defer spanPub.End()

	raw, err := s.jobs.FetchInsights(ctxPub, job)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("insights_failed").Inc()
		return fmt.Errorf("fetch insights for job %s: %w", job.ID, err)
	}

	doc := s.mapper.Map(raw)
	outcome := s.publisher.Publish(ctxPub, doc)
	if !outcome.Succeeded {
		metrics.RunsTotal.WithLabelValues("publish_failed").Inc()
		log.Error("index publish rejected",
			zap.String("doc_id", doc.ID),
			zap.Int("status", outcome.StatusCode),
			zap.String("detail", outcome.ErrorDetail),
		)
		return fmt.Errorf("%w: document %s: %s", ErrPublish, doc.ID, outcome.ErrorDetail)
	}

	metrics.RunsTotal.WithLabelValues("succeeded").Inc()
	log.Info("pipeline run complete",
		zap.String("doc_id", doc.ID),
		zap.Duration("elapsed", s.now().Sub(started)),
	)
	return nil
}

// submit acquires access to the source object and hands it to the indexing
// service, by delegated URL or by streaming the bytes through a temp file.
func (s *Service) submit(ctx context.Context, evt StorageEvent, name, runID string, log *zap.Logger) (videoindex.Job, error) {
	tracer := otel.Tracer("indexer")
	ctx, span := tracer.Start(ctx, "submit")
	defer span.End()

	start := s.now()
	defer func() {
		metrics.StageDuration.WithLabelValues("submit").Observe(s.now().Sub(start).Seconds())
	}()

	if s.cfg.UploadMode == "direct" {
		return s.submitDirect(ctx, evt, name, runID, log)
	}

	grant, err := s.blobs.IssueReadURL(ctx, evt.ObjectKey, s.cfg.GrantTTL, s.cfg.GrantClockSkew)
	if err != nil {
		return videoindex.Job{}, fmt.Errorf("%w: %s: %v", ErrGrantIssuance, evt.ObjectKey, err)
	}
	if !grant.Valid(s.now()) {
		return videoindex.Job{}, fmt.Errorf("%w: grant for %s expired at %s", ErrGrantExpired, evt.ObjectKey, grant.ExpiresAt.Format(time.RFC3339))
	}
	log.Info("issued read grant", zap.Time("expires_at", grant.ExpiresAt))

	job, err := s.jobs.SubmitByURL(ctx, grant.URL, name)
	if err != nil {
		return videoindex.Job{}, s.classifySubmitErr(err, name)
	}
	return job, nil
}

// submitDirect downloads the object into a run-scoped temp file and streams
// it to the service. The temp file is removed on every exit path.
func (s *Service) submitDirect(ctx context.Context, evt StorageEvent, name, runID string, log *zap.Logger) (videoindex.Job, error) {
	if err := os.MkdirAll(s.cfg.TempDir, 0o755); err != nil {
		return videoindex.Job{}, fmt.Errorf("create temp dir: %w", err)
	}

	tmpPath := filepath.Join(s.cfg.TempDir, runID+"-"+name)
	defer os.Remove(tmpPath)

	if err := s.blobs.Download(ctx, evt.ObjectKey, tmpPath); err != nil {
		return videoindex.Job{}, fmt.Errorf("%w: download %s: %v", ErrSubmission, evt.ObjectKey, err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return videoindex.Job{}, fmt.Errorf("%w: open temp copy of %s: %v", ErrSubmission, evt.ObjectKey, err)
	}
	defer f.Close()

	log.Info("submitting by byte stream", zap.String("temp_path", tmpPath))

	job, err := s.jobs.SubmitByBytes(ctx, f, name)
	if err != nil {
		return videoindex.Job{}, s.classifySubmitErr(err, name)
	}
	return job, nil
}

func (s *Service) classifySubmitErr(err error, name string) error {
	if errors.Is(err, auth.ErrIssuance) {
		return fmt.Errorf("%w: submitting %s: %v", ErrAuth, name, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrSubmission, name, err)
}

func (s *Service) isVideo(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range s.cfg.VideoExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth_failed"
	case errors.Is(err, ErrGrantIssuance), errors.Is(err, ErrGrantExpired):
		return "grant_failed"
	default:
		return "submit_failed"
	}
}
