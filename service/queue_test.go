package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessor_Concurrent(t *testing.T) {
	env := newTestEnv(t, nil)
	qp := NewQueueProcessor(env.coord, 4, 16)
	defer qp.Stop()

	var wg sync.WaitGroup
	hashes := make([]string, 8)
	for i := range hashes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch, err := qp.QueueVote(context.Background(), VoteRequest{Vote: "1", AuthToken: refToken, ElectionID: "17"})
			if !assert.NoError(t, err) {
				return
			}
			res := <-ch
			if assert.NoError(t, res.Err) {
				hashes[i] = res.Vote.VoteHash
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, h := range hashes {
		assert.False(t, seen[h], "ballots must not repeat")
		seen[h] = true
	}
	assert.Len(t, votePosts(env.mock.Calls()), len(hashes))
	assert.Equal(t, len(hashes), env.coord.Metrics().GetMetrics().RecordVote.Succeeded)
}

func TestQueueProcessor_Authentication(t *testing.T) {
	env := newTestEnv(t, nil)
	qp := NewQueueProcessor(env.coord, 1, 1)
	defer qp.Stop()

	ch, err := qp.QueueAuthentication(context.Background(), AuthRequest{VoterUserID: "alice", VoterPIN: "1234", ElectionID: "17"})
	require.NoError(t, err)
	res := <-ch
	require.NoError(t, res.Err)
	assert.Equal(t, refToken, res.Auth.AuthToken)
	assert.Nil(t, res.Vote)
	assert.NotZero(t, res.Timestamp)
}

func TestQueueProcessor_CancelledWhileQueued(t *testing.T) {
	env := newTestEnv(t, nil)
	qp := NewQueueProcessor(env.coord, 1, 1)
	defer qp.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch, err := qp.QueueVote(ctx, VoteRequest{Vote: "1", AuthToken: refToken, ElectionID: "17"})
	require.NoError(t, err)
	res := <-ch
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, env.mock.Calls())
}

func TestQueueProcessor_FullAndStopped(t *testing.T) {
	release := make(chan struct{})
	blocking := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer blocking.Close()

	cfg := newTestConfig(blocking.URL)
	cfg.HTTPTimeout.Duration = 5 * time.Second
	qp := NewQueueProcessor(newCoordinator(t, cfg), 1, 1)

	req := AuthRequest{VoterUserID: "alice", VoterPIN: "1234", ElectionID: "17"}
	first, err := qp.QueueAuthentication(context.Background(), req)
	require.NoError(t, err)

	// Wait until the only worker holds the first job.
	require.Eventually(t, func() bool { return len(qp.jobs) == 0 }, time.Second, 5*time.Millisecond)
	second, err := qp.QueueAuthentication(context.Background(), req)
	require.NoError(t, err)
	_, err = qp.QueueAuthentication(context.Background(), req)
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	res := <-first
	assert.Error(t, res.Err)
	<-second

	qp.Stop()
	_, err = qp.QueueVote(context.Background(), VoteRequest{})
	assert.ErrorIs(t, err, ErrQueueStopped)
	qp.Stop()
}
