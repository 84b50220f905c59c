// File: api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"ivr-voting/models"
	"ivr-voting/service"
)

const maxEventSize = 64 << 10

// Server exposes the two contact-flow functions over HTTP. Every request
// runs on the coordinator's worker queue.
type Server struct {
	coordinator *service.Coordinator
	queue       *service.QueueProcessor
	log         *logrus.Logger
	router      *mux.Router
}

// NewServer wires the routes.
func NewServer(coordinator *service.Coordinator, queue *service.QueueProcessor, log *logrus.Logger) *Server {
	s := &Server{
		coordinator: coordinator,
		queue:       queue,
		log:         log,
	}
	r := mux.NewRouter()
	r.HandleFunc("/authenticate-voter", s.handleAuthenticateVoter).Methods(http.MethodPost)
	r.HandleFunc("/record-vote", s.handleRecordVote).Methods(http.MethodPost)
	r.HandleFunc("/metrics", s.handleGetMetrics).Methods(http.MethodGet)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests and stops the queue.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverChan := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("starting contact-flow server")
		serverChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverChan:
		s.queue.Stop()
		return err
	case <-ctx.Done():
		s.log.Info("shutting down contact-flow server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.queue.Stop()
		return err
	}
}

func (s *Server) handleAuthenticateVoter(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	event, ok := s.decodeEvent(w, r, id)
	if !ok {
		return
	}

	req := service.AuthRequest{}
	req.VoterUserID, _ = event.Attribute(models.AttrVoterUserID)
	req.VoterPIN, _ = event.Attribute(models.AttrVoterPIN)
	req.ElectionID, _ = event.Attribute(models.AttrElectionID)

	ch, err := s.queue.QueueAuthentication(r.Context(), req)
	if err != nil {
		s.writeError(w, id, err)
		return
	}
	res := <-ch
	if res.Err != nil {
		s.writeError(w, id, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, models.AuthenticateResponse{
		AuthToken:  res.Auth.AuthToken,
		ElectionID: res.Auth.ElectionID,
	})
}

func (s *Server) handleRecordVote(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	event, ok := s.decodeEvent(w, r, id)
	if !ok {
		return
	}

	req := service.VoteRequest{}
	req.Vote, _ = event.Attribute(models.AttrVote)
	req.AuthToken, _ = event.Attribute(models.AttrAuthToken)
	req.ElectionID, _ = event.Attribute(models.AttrElectionID)

	ch, err := s.queue.QueueVote(r.Context(), req)
	if err != nil {
		s.writeError(w, id, err)
		return
	}
	res := <-ch
	if res.Err != nil {
		s.writeError(w, id, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, models.RecordVoteResponse{
		VoteHashStartSSML: res.Vote.VoteHashStartSSML,
	})
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coordinator.Metrics().GetMetrics())
}

func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request, id string) (*models.ContactEvent, bool) {
	var event models.ContactEvent
	if err := json.NewDecoder(io.LimitReader(r.Body, maxEventSize)).Decode(&event); err != nil {
		s.writeError(w, id, models.WrapError(models.KindMissingInput, err, "invalid contact event"))
		return nil, false
	}
	return &event, true
}

// writeError answers with the error kind and a message. Messages are built
// without secrets, so they are safe to return.
func (s *Server) writeError(w http.ResponseWriter, id string, err error) {
	resp := models.ErrorResponse{
		Error:        models.KindOf(err),
		Message:      err.Error(),
		Status:       models.StatusOf(err),
		InvocationID: id,
	}
	status := statusFor(err)
	if resp.Error == "" {
		resp.Error = "internal"
		if status == http.StatusInternalServerError {
			resp.Message = "internal error"
		}
	}
	s.log.WithFields(logrus.Fields{
		"request": id,
		"kind":    resp.Error,
		"status":  status,
	}).WithError(err).Warn("request failed")
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrQueueFull), errors.Is(err, service.ErrQueueStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch models.KindOf(err) {
	case models.KindMissingInput, models.KindUnknownVoteChoice, models.KindMalformedAuthToken:
		return http.StatusBadRequest
	case models.KindEmptyVotePermissionToken:
		return http.StatusForbidden
	case models.KindUpstreamHTTPError, models.KindInvalidElectionResponse,
		models.KindMultiplePublicKeys, models.KindInvalidGroupElement:
		return http.StatusBadGateway
	case models.KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
