package videoindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ckriutz/dr-video/internal/auth"
	"github.com/ckriutz/dr-video/internal/insights"
	"github.com/ckriutz/dr-video/pkg/metrics"
)

// ErrInvalidJobState is returned when insights are requested for a job that
// has not reached the Processed state.
var ErrInvalidJobState = errors.New("job is not in processed state")

// TokenSource supplies bearer tokens per scope.
type TokenSource interface {
	GetToken(ctx context.Context, scope string) (auth.Token, error)
}

// Config locates one video indexing account.
type Config struct {
	APIURL    string
	AccountID string
	Location  string
	Scope     string
	Timeout   time.Duration
}

// Client submits videos to the indexing service and tracks their jobs.
type Client struct {
	cfg    Config
	tokens TokenSource
	http   *http.Client
	logger *zap.Logger

	// overridable in tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a Client for one indexing account.
func NewClient(cfg Config, tokens TokenSource, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		tokens: tokens,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		sleep:  cooperativeSleep,
	}
}

func (c *Client) videosURL() string {
	return fmt.Sprintf("%s/%s/Accounts/%s/Videos", strings.TrimRight(c.cfg.APIURL, "/"), c.cfg.Location, c.cfg.AccountID)
}

func (c *Client) submitParams(ctx context.Context, displayName string) (url.Values, error) {
	tok, err := c.tokens.GetToken(ctx, c.cfg.Scope)
	if err != nil {
		return nil, err
	}
	return url.Values{
		"accessToken":     {tok.Value},
		"name":            {displayName},
		"privacy":         {"Private"},
		"language":        {"auto"},
		"indexingPreset":  {"Default"},
		"streamingPreset": {"Default"},
	}, nil
}

// SubmitByURL submits a video by its delegated read URL. The URL is decoded
// before being added to the query so any pre-encoded form is encoded exactly
// once; double-encoding corrupts the signed query and the service rejects it.
func (c *Client) SubmitByURL(ctx context.Context, videoURL, displayName string) (Job, error) {
	params, err := c.submitParams(ctx, displayName)
	if err != nil {
		return Job{}, err
	}
	params.Set("videoUrl", decodeOnce(videoURL))

	c.preflight(videoURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.videosURL()+"?"+params.Encode(), nil)
	if err != nil {
		return Job{}, fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doSubmit(req, displayName)
}

// SubmitByBytes submits a video as a streamed multipart upload.
func (c *Client) SubmitByBytes(ctx context.Context, r io.Reader, displayName string) (Job, error) {
	params, err := c.submitParams(ctx, displayName)
	if err != nil {
		return Job{}, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("video", displayName)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.videosURL()+"?"+params.Encode(), pr)
	if err != nil {
		return Job{}, fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.doSubmit(req, displayName)
}

func (c *Client) doSubmit(req *http.Request, displayName string) (Job, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return Job{}, fmt.Errorf("submit %s: %w", displayName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Job{}, fmt.Errorf("submit %s: service returned %d: %s", displayName, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Job{}, fmt.Errorf("decode submit response for %s: %w", displayName, err)
	}
	if out.ID == "" {
		return Job{}, fmt.Errorf("submit %s: service returned no job id", displayName)
	}

	c.logger.Info("video submitted",
		zap.String("video_id", out.ID),
		zap.String("name", displayName),
		zap.String("remote_state", out.State),
	)

	return Job{ID: out.ID, SourceName: displayName, State: StateSubmitted}, nil
}

// preflight issues a best-effort HEAD against the delegated URL to catch
// unreachable grants early. Diagnostic only: it runs in the background and
// never gates or delays the submission.
func (c *Client) preflight(videoURL string) {
	logger := c.logger
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, videoURL, nil)
		if err != nil {
			return
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			logger.Warn("preflight probe failed", zap.Error(err))
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			logger.Warn("preflight probe returned non-success", zap.Int("status", resp.StatusCode))
		} else {
			logger.Debug("preflight probe ok", zap.Int("status", resp.StatusCode))
		}
	}()
}

// PollUntilTerminal repeatedly fetches the job's remote state until it is
// terminal or maxWait elapses, waiting pollInterval between attempts. The
// wait is cooperative and interruptible through ctx. Transient status-fetch
// failures are retried on the same cadence within the budget. Expiring the
// budget marks the job TimedOut locally; the remote job may still be running.
func (c *Client) PollUntilTerminal(ctx context.Context, job Job, pollInterval, maxWait time.Duration) (Job, error) {
	if job.State.Terminal() {
		return job, nil
	}

	deadline := c.now().Add(maxWait)
	for {
		state, err := c.fetchState(ctx, job.ID)
		metrics.PollAttemptsTotal.Inc()
		if err != nil {
			if ctx.Err() != nil {
				return job, ctx.Err()
			}
			c.logger.Warn("status poll failed, will retry",
				zap.String("video_id", job.ID),
				zap.Error(err),
			)
		} else {
			job.State = state
			if job.State.Terminal() {
				return job, nil
			}
		}

		if !c.now().Before(deadline) {
			job.State = StateTimedOut
			c.logger.Warn("giving up on job after max wait",
				zap.String("video_id", job.ID),
				zap.Duration("max_wait", maxWait),
			)
			return job, nil
		}

		if err := c.sleep(ctx, pollInterval); err != nil {
			return job, err
		}
	}
}

func (c *Client) fetchState(ctx context.Context, videoID string) (State, error) {
	body, err := c.fetchIndex(ctx, videoID)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var out struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode status for %s: %w", videoID, err)
	}
	return stateFromRemote(out.State), nil
}

// FetchInsights retrieves the full insights document for a processed job.
func (c *Client) FetchInsights(ctx context.Context, job Job) (insights.VideoIndex, error) {
	if job.State != StateProcessed {
		return insights.VideoIndex{}, fmt.Errorf("fetch insights for %s in state %s: %w", job.ID, job.State, ErrInvalidJobState)
	}

	body, err := c.fetchIndex(ctx, job.ID)
	if err != nil {
		return insights.VideoIndex{}, err
	}
	defer body.Close()

	var idx insights.VideoIndex
	if err := json.NewDecoder(body).Decode(&idx); err != nil {
		return insights.VideoIndex{}, fmt.Errorf("decode insights for %s: %w", job.ID, err)
	}
	return idx, nil
}

func (c *Client) fetchIndex(ctx context.Context, videoID string) (io.ReadCloser, error) {
	tok, err := c.tokens.GetToken(ctx, c.cfg.Scope)
	if err != nil {
		return nil, err
	}

	params := url.Values{"accessToken": {tok.Value}}
	u := fmt.Sprintf("%s/%s/Index?%s", c.videosURL(), url.PathEscape(videoID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build index request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch index for %s: %w", videoID, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("fetch index for %s: service returned %d: %s", videoID, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

// VideoSummary is one row of the account's video listing.
type VideoSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	State   string `json:"state"`
	Created string `json:"created"`
}

// ListVideos pages through the videos in the account.
func (c *Client) ListVideos(ctx context.Context, pageSize, skip int) ([]VideoSummary, error) {
	tok, err := c.tokens.GetToken(ctx, c.cfg.Scope)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"accessToken": {tok.Value},
		"pageSize":    {strconv.Itoa(pageSize)},
		"skip":        {strconv.Itoa(skip)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.videosURL()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("list videos: service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Results []VideoSummary `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode video listing: %w", err)
	}
	return out.Results, nil
}

// decodeOnce undoes any pre-applied percent-encoding so the transport layer
// encodes the value exactly once. Strings that do not decode cleanly pass
// through unchanged.
func decodeOnce(s string) string {
	// PathUnescape keeps literal '+' intact; only percent-escapes are undone.
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func cooperativeSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
