package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ivr-voting/config"
	"ivr-voting/encryption"
	"ivr-voting/models"
	"ivr-voting/registry"
)

// Coordinator runs the two contact-flow operations against the election
// backend. It keeps only immutable configuration and the metrics collector;
// every call builds its own session, key and nonces.
type Coordinator struct {
	cfg     *config.Config
	backend registry.ElectionBackend
	keys    *PublicKeyResolver
	table   VoteEncodingTable
	crypto  *encryption.CryptoService
	metrics *MetricsCollector
	log     *logrus.Logger
}

// AuthRequest carries the voter credentials collected by the IVR.
type AuthRequest struct {
	VoterUserID string
	VoterPIN    string
	ElectionID  string // optional for child-election logins
}

// AuthResult is handed back to the contact flow after login.
type AuthResult struct {
	AuthToken  string
	ElectionID string
	Outcome    models.OutcomeKind
}

// VoteRequest carries the voter's choice and the capability token obtained
// at login.
type VoteRequest struct {
	Vote       string
	AuthToken  string
	ElectionID string
}

// VoteResult is returned once the backend recorded the ballot.
type VoteResult struct {
	VoterID           string
	VoteHash          string
	VoteHashStartSSML string
	Receipt           models.VoteReceipt
}

// NewCoordinator wires the coordinator from configuration.
func NewCoordinator(cfg *config.Config, backend registry.ElectionBackend, log *logrus.Logger) (*Coordinator, error) {
	keys, err := NewPublicKeyResolver(cfg, backend)
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		cfg:     cfg,
		backend: backend,
		keys:    keys,
		table:   VoteEncodingTable(cfg.VoteEncoding),
		crypto:  encryption.NewCryptoService(),
		metrics: NewMetricsCollector(),
		log:     log,
	}, nil
}

// WithCryptoService replaces the ballot builder, e.g. to pin the clock.
func (c *Coordinator) WithCryptoService(cs *encryption.CryptoService) *Coordinator {
	cc := *c
	cc.crypto = cs
	return &cc
}

// Metrics exposes the collector shared by all invocations.
func (c *Coordinator) Metrics() *MetricsCollector {
	return c.metrics
}

// Authenticate logs the voter in and resolves which election they may vote in.
func (c *Coordinator) Authenticate(ctx context.Context, req AuthRequest) (*AuthResult, error) {
	s := NewSession(OpAuthenticate, Authenticating, c.log)
	c.metrics.RecordStart(OpAuthenticate)
	res, err := c.authenticate(ctx, s, req)
	c.metrics.RecordEnd(OpAuthenticate, s.Elapsed(), err)
	if err != nil {
		return nil, s.Fail(err)
	}
	return res, nil
}

func (c *Coordinator) authenticate(ctx context.Context, s *Session, req AuthRequest) (*AuthResult, error) {
	if err := c.cfg.ValidateAuthentication(); err != nil {
		return nil, err
	}
	if req.VoterUserID == "" {
		return nil, models.NewError(models.KindMissingInput, "%s contact data attribute missing", models.AttrVoterUserID)
	}
	if req.VoterPIN == "" {
		return nil, models.NewError(models.KindMissingInput, "%s contact data attribute missing", models.AttrVoterPIN)
	}

	electionID := req.ElectionID
	if electionID == "" {
		electionID = c.cfg.ElectionID
	}
	if electionID == "" && strings.Contains(c.cfg.LoginURL, config.ElectionIDPlaceholder) {
		return nil, models.NewError(models.KindMissingInput, "%s contact data attribute missing", models.AttrElectionID)
	}

	body, err := json.Marshal(map[string]string{
		c.cfg.UserIDKey:   req.VoterUserID,
		c.cfg.VoterPINKey: req.VoterPIN,
	})
	if err != nil {
		return nil, models.WrapError(models.KindSerializationError, err, "failed to marshal credentials")
	}
	s.Log.WithFields(logrus.Fields{
		"user_id_value":   req.VoterUserID,
		"voter_pin_value": req.VoterPIN,
	}).Debug("authenticating voter")

	resp, err := c.backend.Login(ctx, expandURL(c.cfg.LoginURL, electionID, ""), body)
	if err != nil {
		return nil, err
	}

	outcome, err := ResolveOutcome(resp)
	if err != nil {
		return nil, err
	}
	if outcome.Kind == models.SingleElection {
		if electionID == "" {
			return nil, models.NewError(models.KindMissingInput, "no election id for a single-election login")
		}
		outcome.ElectionID = electionID
	} else if len(outcome.Children) > 1 {
		s.Log.WithField("children", len(outcome.Children)).Info("voter has several child elections, using the first")
	}

	if err := s.Transition(Authenticated); err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{
		"election_id": outcome.ElectionID,
		"outcome":     outcome.Kind.String(),
	}).Info("voter authenticated")
	s.Log.WithField("auth_token", outcome.AuthToken).Debug("vote permission token")

	return &AuthResult{
		AuthToken:  outcome.AuthToken,
		ElectionID: outcome.ElectionID,
		Outcome:    outcome.Kind,
	}, nil
}

// RecordVote encrypts the voter's choice, proves it well-formed and submits
// it with the capability token.
func (c *Coordinator) RecordVote(ctx context.Context, req VoteRequest) (*VoteResult, error) {
	s := NewSession(OpRecordVote, Authenticated, c.log)
	c.metrics.RecordStart(OpRecordVote)
	res, err := c.recordVote(ctx, s, req)
	c.metrics.RecordEnd(OpRecordVote, s.Elapsed(), err)
	if err != nil {
		return nil, s.Fail(err)
	}
	return res, nil
}

func (c *Coordinator) recordVote(ctx context.Context, s *Session, req VoteRequest) (*VoteResult, error) {
	if err := c.cfg.ValidateRecordVote(); err != nil {
		return nil, err
	}
	for _, attr := range [][2]string{
		{models.AttrVote, req.Vote},
		{models.AttrAuthToken, req.AuthToken},
		{models.AttrElectionID, req.ElectionID},
	} {
		if attr[1] == "" {
			return nil, models.NewError(models.KindMissingInput, "%s contact data attribute missing", attr[0])
		}
	}
	s.Log.WithFields(logrus.Fields{
		"vote_text":  req.Vote,
		"auth_token": req.AuthToken,
	}).Debug("recording vote")

	voterID, err := ParseVoterID(req.AuthToken)
	if err != nil {
		return nil, err
	}
	// Reject unknown choices before any network call.
	if _, err := c.table.Code(req.Vote); err != nil {
		return nil, err
	}
	log := s.Log.WithFields(logrus.Fields{"election_id": req.ElectionID, "voter_id": voterID})

	if err := s.Transition(Encrypting); err != nil {
		return nil, err
	}
	pk, err := c.keys.Resolve(ctx, req.ElectionID)
	if err != nil {
		return nil, err
	}
	plaintext, err := EncodeVote(pk.Group, req.Vote, c.table)
	if err != nil {
		return nil, err
	}
	ballot, err := c.crypto.EncryptBallot(pk, plaintext)
	if err != nil {
		return nil, err
	}
	receipt, err := encryption.NewVoteReceipt(ballot)
	if err != nil {
		return nil, err
	}
	log.WithField("encrypted_ballot_str", receipt.Vote).Debug("ballot encrypted")
	log.WithField("vote_hash", receipt.VoteHash).Info("ballot hashed")

	body, err := json.Marshal(receipt)
	if err != nil {
		return nil, models.WrapError(models.KindSerializationError, err, "failed to marshal vote request")
	}

	if err := s.Transition(Submitting); err != nil {
		return nil, err
	}
	if _, err := c.backend.RecordVote(ctx, expandURL(c.cfg.RecordVoteURL, req.ElectionID, voterID), req.AuthToken, body); err != nil {
		return nil, err
	}

	if err := s.Transition(Recorded); err != nil {
		return nil, err
	}
	ssml := encryption.SpeakablePrefix(receipt.VoteHash, encryption.DefaultSpeakableLength)
	log.WithField("elapsed", s.Elapsed().Round(time.Millisecond)).Info("vote recorded")

	return &VoteResult{
		VoterID:           voterID,
		VoteHash:          receipt.VoteHash,
		VoteHashStartSSML: ssml,
		Receipt:           *receipt,
	}, nil
}

// expandURL substitutes the election and voter placeholders of a template.
func expandURL(template, electionID, voterID string) string {
	u := strings.ReplaceAll(template, config.ElectionIDPlaceholder, url.PathEscape(electionID))
	return strings.ReplaceAll(u, config.VoterIDPlaceholder, url.PathEscape(voterID))
}
