package videoindex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ckriutz/dr-video/internal/auth"
)

type staticTokens struct{}

func (staticTokens) GetToken(context.Context, string) (auth.Token, error) {
	return auth.Token{Value: "test-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(Config{
		APIURL:    srv.URL,
		AccountID: "acct-1",
		Location:  "westus3",
		Scope:     "video-index",
	}, staticTokens{}, zap.NewNop())
}

func TestSubmitByURL_EncodesSignatureExactlyOnce(t *testing.T) {
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"accessToken":     q.Get("accessToken"),
			"name":            q.Get("name"),
			"privacy":         q.Get("privacy"),
			"language":        q.Get("language"),
			"indexingPreset":  q.Get("indexingPreset"),
			"streamingPreset": q.Get("streamingPreset"),
			"videoUrl":        q.Get("videoUrl"),
		}
		w.Write([]byte(`{"id":"vid-1","state":"Uploaded"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	// The caller hands over a pre-encoded URL; after decode-then-encode-once
	// the service must see the signature with a single level of encoding.
	preEncoded := "https://blobs.example.com/dr-videos/clip.mp4?sig=abc%2Fdef%3D"
	job, err := c.SubmitByURL(context.Background(), preEncoded, "clip.mp4")
	require.NoError(t, err)

	assert.Equal(t, "vid-1", job.ID)
	assert.Equal(t, "clip.mp4", job.SourceName)
	assert.Equal(t, StateSubmitted, job.State)

	assert.Equal(t, "test-token", gotQuery["accessToken"])
	assert.Equal(t, "clip.mp4", gotQuery["name"])
	assert.Equal(t, "Private", gotQuery["privacy"])
	assert.Equal(t, "auto", gotQuery["language"])
	assert.Equal(t, "Default", gotQuery["indexingPreset"])
	assert.Equal(t, "Default", gotQuery["streamingPreset"])
	assert.Equal(t, "https://blobs.example.com/dr-videos/clip.mp4?sig=abc/def=", gotQuery["videoUrl"])
}

func TestSubmitByURL_AlreadyDecodedURLUnchanged(t *testing.T) {
	var got string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("videoUrl")
		w.Write([]byte(`{"id":"vid-2","state":"Uploaded"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	plain := "https://blobs.example.com/dr-videos/clip.mp4?sig=abc/def="
	_, err := c.SubmitByURL(context.Background(), plain, "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestSubmitByURL_ServiceRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad url"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.SubmitByURL(context.Background(), "https://blobs.example.com/x.mp4", "x.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSubmitByBytes(t *testing.T) {
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, header, err := r.FormFile("video")
		require.NoError(t, err)
		f.Close()
		assert.Equal(t, "clip.mp4", header.Filename)
		w.Write([]byte(`{"id":"vid-3","state":"Uploaded"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	job, err := c.SubmitByBytes(context.Background(), strings.NewReader("fake video bytes"), "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "vid-3", job.ID)
	assert.Contains(t, gotContentType, "multipart/form-data")
}

func TestPollUntilTerminal_ImmediateProcessedDoesNotSleep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"Processed"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	var sleeps int32
	c.sleep = func(context.Context, time.Duration) error {
		atomic.AddInt32(&sleeps, 1)
		return nil
	}

	job, err := c.PollUntilTerminal(context.Background(), Job{ID: "vid-1", State: StateSubmitted}, time.Second, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StateProcessed, job.State)
	assert.Zero(t, atomic.LoadInt32(&sleeps))
}

func TestPollUntilTerminal_ProgressesToProcessed(t *testing.T) {
	states := []string{"Uploaded", "Processing", "Processed"}
	var call int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := atomic.AddInt32(&call, 1) - 1
		if int(i) >= len(states) {
			i = int32(len(states) - 1)
		}
		w.Write([]byte(`{"state":"` + states[i] + `"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	var sleeps int32
	c.sleep = func(context.Context, time.Duration) error {
		atomic.AddInt32(&sleeps, 1)
		return nil
	}

	job, err := c.PollUntilTerminal(context.Background(), Job{ID: "vid-1", State: StateSubmitted}, time.Second, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, StateProcessed, job.State)
	assert.Equal(t, int32(2), atomic.LoadInt32(&sleeps))
}

func TestPollUntilTerminal_RemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"Failed"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	job, err := c.PollUntilTerminal(context.Background(), Job{ID: "vid-1", State: StateProcessing}, time.Second, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, job.State)
}

func TestPollUntilTerminal_TimesOutLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"Processing"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	// Fake clock: each cooperative wait advances time by the poll interval,
	// so the deadline check trips without any real sleeping.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var elapsed time.Duration
	c.now = func() time.Time { return base.Add(elapsed) }
	c.sleep = func(_ context.Context, d time.Duration) error {
		elapsed += d
		return nil
	}

	interval := 30 * time.Second
	maxWait := 5 * time.Minute

	job, err := c.PollUntilTerminal(context.Background(), Job{ID: "vid-1", State: StateSubmitted}, interval, maxWait)
	require.NoError(t, err)
	assert.Equal(t, StateTimedOut, job.State)
	// Overrun never exceeds maxWait + one interval.
	assert.LessOrEqual(t, elapsed, maxWait+interval)
}

func TestPollUntilTerminal_RetriesTransientErrors(t *testing.T) {
	var call int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&call, 1) <= 2 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"state":"Processed"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.sleep = func(context.Context, time.Duration) error { return nil }

	job, err := c.PollUntilTerminal(context.Background(), Job{ID: "vid-1", State: StateSubmitted}, time.Second, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, StateProcessed, job.State)
	assert.Equal(t, int32(3), atomic.LoadInt32(&call))
}

func TestFetchInsights_RequiresProcessedState(t *testing.T) {
	c := NewClient(Config{APIURL: "http://unused"}, staticTokens{}, zap.NewNop())

	for _, state := range []State{StateSubmitted, StateProcessing, StateFailed, StateTimedOut} {
		_, err := c.FetchInsights(context.Background(), Job{ID: "vid-1", State: state})
		require.ErrorIs(t, err, ErrInvalidJobState, "state %s", state)
	}
}

func TestFetchInsights_DecodesDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/Videos/vid-1/Index")
		w.Write([]byte(`{
			"id": "vid-1",
			"name": "clip.mp4",
			"state": "Processed",
			"durationInSeconds": 120,
			"videos": [{"insights": {"transcript": [{"text": "hello", "instances": [{"start": "0:00:01.0"}]}]}}]
		}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	idx, err := c.FetchInsights(context.Background(), Job{ID: "vid-1", State: StateProcessed})
	require.NoError(t, err)
	assert.Equal(t, "vid-1", idx.ID)
	assert.Equal(t, 120.0, idx.DurationInSeconds)
	require.Len(t, idx.Videos, 1)
	require.Len(t, idx.Videos[0].Insights.Transcript, 1)
	assert.Equal(t, "hello", idx.Videos[0].Insights.Transcript[0].Text)
}

func TestListVideos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "25", q.Get("pageSize"))
		assert.Equal(t, "50", q.Get("skip"))
		w.Write([]byte(`{"results":[{"id":"vid-1","name":"a.mp4","state":"Processed"},{"id":"vid-2","name":"b.mp4","state":"Processing"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	videos, err := c.ListVideos(context.Background(), 25, 50)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "vid-1", videos[0].ID)
	assert.Equal(t, "Processing", videos[1].State)
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StateSubmitted.Terminal())
	assert.False(t, StateProcessing.Terminal())
	assert.True(t, StateProcessed.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateTimedOut.Terminal())
}
