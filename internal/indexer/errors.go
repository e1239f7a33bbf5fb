package indexer

import "errors"

// Failure classes for one pipeline run. All of them abort the current run
// only; the host process and other concurrent runs are unaffected.
var (
	// ErrAuth means the identity capability could not issue a token.
	ErrAuth = errors.New("auth failure")
	// ErrGrantIssuance means the blob store rejected the delegation request.
	ErrGrantIssuance = errors.New("grant issuance failure")
	// ErrGrantExpired means a grant was no longer valid when it was needed.
	ErrGrantExpired = errors.New("access grant expired")
	// ErrSubmission means the indexing service rejected the video.
	ErrSubmission = errors.New("submission failure")
	// ErrProcessingFailed means the remote service reported the job failed.
	ErrProcessingFailed = errors.New("remote processing failed")
	// ErrTimedOut means the local watchdog gave up waiting; the remote job
	// may still be running.
	ErrTimedOut = errors.New("processing timed out")
	// ErrPublish means the index store rejected the document. The completed
	// indexing work is not undone.
	ErrPublish = errors.New("index publish failure")
)
