package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ivr-voting/config"
	"ivr-voting/encryption"
	"ivr-voting/models"
	"ivr-voting/registry"
)

// PublicKeyResolver finds the ElGamal key of an election, either from the
// election-info endpoint or from a key pinned in configuration.
type PublicKeyResolver struct {
	backend     registry.ElectionBackend
	urlTemplate string
	static      *encryption.PublicKey
}

// NewPublicKeyResolver parses the static key once when one is configured.
func NewPublicKeyResolver(cfg *config.Config, backend registry.ElectionBackend) (*PublicKeyResolver, error) {
	r := &PublicKeyResolver{backend: backend, urlTemplate: cfg.GetElectionURL}
	if cfg.StaticKey() {
		var s models.PublicKeyStrings
		if err := json.Unmarshal([]byte(cfg.PublicKey), &s); err != nil {
			return nil, models.WrapError(models.KindInvalidElectionResponse, err, "%s is not a {p,q,y,g} object", config.EnvPublicKey)
		}
		pk, err := encryption.PublicKeyFromStrings(s)
		if err != nil {
			return nil, fmt.Errorf("static public key: %w", err)
		}
		r.static = pk
	}
	return r, nil
}

// Static reports whether the resolver ignores the backend.
func (r *PublicKeyResolver) Static() bool {
	return r.static != nil
}

// Resolve returns the public key of electionID.
func (r *PublicKeyResolver) Resolve(ctx context.Context, electionID string) (*encryption.PublicKey, error) {
	if r.static != nil {
		return r.static, nil
	}
	body, err := r.backend.GetElection(ctx, expandURL(r.urlTemplate, electionID, ""))
	if err != nil {
		return nil, err
	}
	s, err := ParseElectionResponse(body)
	if err != nil {
		return nil, err
	}
	return encryption.PublicKeyFromStrings(s)
}

// ParseElectionResponse decodes {payload:{pks:"<json array>"}} and returns
// its single key. The pks string is decoded as a JSON document of its own.
func ParseElectionResponse(body []byte) (models.PublicKeyStrings, error) {
	var none models.PublicKeyStrings

	var resp models.ElectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return none, models.WrapError(models.KindInvalidElectionResponse, err, "malformed election response")
	}
	if resp.Payload == nil || resp.Payload.PKs == nil {
		return none, models.NewError(models.KindInvalidElectionResponse, "election response has no payload.pks string")
	}

	var pks []models.PublicKeyStrings
	if err := json.Unmarshal([]byte(*resp.Payload.PKs), &pks); err != nil {
		return none, models.WrapError(models.KindInvalidElectionResponse, err, "payload.pks is not a JSON array of keys")
	}
	if len(pks) != 1 {
		return none, models.NewError(models.KindMultiplePublicKeys, "expected exactly one public key, got %d", len(pks))
	}
	if pks[0].Y == "" {
		return none, models.NewError(models.KindInvalidElectionResponse, "public key has no y")
	}
	return pks[0], nil
}
