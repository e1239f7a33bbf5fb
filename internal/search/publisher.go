package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ckriutz/dr-video/internal/insights"
)

// Config locates one search index.
type Config struct {
	Endpoint   string
	IndexName  string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
}

// Publisher upserts search documents into the index store. Publishing is
// keyed by document id: republishing the same id overwrites, never appends.
type Publisher struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// Outcome reports the per-document result of a publish call. A rejected
// document is an outcome, not a Go error; the caller owns the policy.
type Outcome struct {
	Succeeded   bool
	StatusCode  int
	ErrorDetail string
}

// NewPublisher constructs a Publisher for one index.
func NewPublisher(cfg Config, logger *zap.Logger) *Publisher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Publisher{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type indexAction struct {
	Action string `json:"@search.action"`
	insights.SearchDocument
}

type indexResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
		StatusCode   int    `json:"statusCode"`
	} `json:"value"`
}

// Publish upserts one document as a single mergeOrUpload batch.
func (p *Publisher) Publish(ctx context.Context, doc insights.SearchDocument) Outcome {
	payload := struct {
		Value []indexAction `json:"value"`
	}{
		Value: []indexAction{{Action: "mergeOrUpload", SearchDocument: doc}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{ErrorDetail: fmt.Sprintf("marshal document %s: %v", doc.ID, err)}
	}

	u := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s",
		strings.TrimRight(p.cfg.Endpoint, "/"), p.cfg.IndexName, p.cfg.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return Outcome{ErrorDetail: fmt.Sprintf("build publish request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.cfg.APIKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return Outcome{ErrorDetail: fmt.Sprintf("publish %s: %v", doc.ID, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Outcome{
			StatusCode:  resp.StatusCode,
			ErrorDetail: strings.TrimSpace(string(detail)),
		}
	}

	var out indexResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Outcome{StatusCode: resp.StatusCode, ErrorDetail: fmt.Sprintf("decode publish response: %v", err)}
	}

	for _, item := range out.Value {
		if !item.Status {
			return Outcome{
				StatusCode:  item.StatusCode,
				ErrorDetail: fmt.Sprintf("document %s rejected: %s", item.Key, item.ErrorMessage),
			}
		}
	}

	p.logger.Debug("document published", zap.String("doc_id", doc.ID))
	return Outcome{Succeeded: true, StatusCode: resp.StatusCode}
}
