package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"ivr-voting/models"
)

// maxBodySize caps how much of a backend answer is read.
const maxBodySize = 1 << 20

// ElectionBackend is the remote election system the IVR flow talks to.
// Every method returns the body of an HTTP 200 answer; any other status is
// a *models.Error of kind KindUpstreamHTTPError.
type ElectionBackend interface {
	Login(ctx context.Context, loginURL string, body []byte) ([]byte, error)
	GetElection(ctx context.Context, electionURL string) ([]byte, error)
	RecordVote(ctx context.Context, recordVoteURL, authToken string, body []byte) ([]byte, error)
}

// HTTPBackend implements ElectionBackend over net/http.
type HTTPBackend struct {
	client *http.Client
	log    *logrus.Entry
}

// NewHTTPBackend creates a backend client whose calls are cut after timeout.
func NewHTTPBackend(timeout time.Duration, log *logrus.Entry) *HTTPBackend {
	return &HTTPBackend{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// WithClient swaps the underlying client, e.g. for one trusting a private CA.
func (b *HTTPBackend) WithClient(c *http.Client) *HTTPBackend {
	return &HTTPBackend{client: c, log: b.log}
}

func (b *HTTPBackend) Login(ctx context.Context, loginURL string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, "login")
}

func (b *HTTPBackend) GetElection(ctx context.Context, electionURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, electionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build election request: %w", err)
	}
	return b.do(req, "get-election")
}

func (b *HTTPBackend) RecordVote(ctx context.Context, recordVoteURL, authToken string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recordVoteURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build record-vote request: %w", err)
	}
	req.Header.Set("Authorization", authToken)
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, "record-vote")
}

func (b *HTTPBackend) do(req *http.Request, call string) ([]byte, error) {
	log := b.log.WithFields(logrus.Fields{"call": call, "method": req.Method})
	log.WithField("url", req.URL.String()).Debug("backend request")

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		if isTimeout(req.Context(), err) {
			return nil, models.WrapError(models.KindUpstreamTimeout, err, "%s call timed out", call)
		}
		return nil, models.WrapError(models.KindUpstreamHTTPError, err, "%s call failed", call)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if isTimeout(req.Context(), err) {
			return nil, models.WrapError(models.KindUpstreamTimeout, err, "%s response timed out", call)
		}
		return nil, models.WrapError(models.KindUpstreamHTTPError, err, "failed to read %s response", call)
	}

	log = log.WithFields(logrus.Fields{
		"request_response_status": resp.StatusCode,
		"elapsed":                 time.Since(start),
	})
	log.Info("backend response")
	log.WithField("request_response_body", string(body)).Debug("backend response body")

	if resp.StatusCode != http.StatusOK {
		return nil, models.UpstreamStatusError(resp.StatusCode, call)
	}
	return body, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
