package indexer

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ckriutz/dr-video/internal/insights"
	"github.com/ckriutz/dr-video/internal/search"
	"github.com/ckriutz/dr-video/internal/videoindex"
	"github.com/ckriutz/dr-video/pkg/storage/blobstore"
)

type BlobsMock struct {
	mock.Mock
}

func (m *BlobsMock) Stat(ctx context.Context, key string) (blobstore.ObjectInfo, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(blobstore.ObjectInfo), args.Error(1)
}

func (m *BlobsMock) Download(ctx context.Context, key, destPath string) error {
	args := m.Called(ctx, key, destPath)
	return args.Error(0)
}

func (m *BlobsMock) IssueReadURL(ctx context.Context, key string, validFor, clockSkew time.Duration) (blobstore.AccessGrant, error) {
	args := m.Called(ctx, key, validFor, clockSkew)
	return args.Get(0).(blobstore.AccessGrant), args.Error(1)
}

func (m *BlobsMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type JobsMock struct {
	mock.Mock
}

func (m *JobsMock) SubmitByURL(ctx context.Context, videoURL, displayName string) (videoindex.Job, error) {
	args := m.Called(ctx, videoURL, displayName)
	return args.Get(0).(videoindex.Job), args.Error(1)
}

func (m *JobsMock) SubmitByBytes(ctx context.Context, r io.Reader, displayName string) (videoindex.Job, error) {
	args := m.Called(ctx, r, displayName)
	return args.Get(0).(videoindex.Job), args.Error(1)
}

func (m *JobsMock) PollUntilTerminal(ctx context.Context, job videoindex.Job, pollInterval, maxWait time.Duration) (videoindex.Job, error) {
	args := m.Called(ctx, job, pollInterval, maxWait)
	return args.Get(0).(videoindex.Job), args.Error(1)
}

func (m *JobsMock) FetchInsights(ctx context.Context, job videoindex.Job) (insights.VideoIndex, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(insights.VideoIndex), args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, doc insights.SearchDocument) search.Outcome {
	args := m.Called(ctx, doc)
	return args.Get(0).(search.Outcome)
}
