package service

import (
	"bytes"
	"encoding/json"
	"strings"

	"ivr-voting/models"
)

// ParseVoterID extracts the anonymous voter id from a capability token of
// the form <scheme>://<keyid>/<signature>/<voter_id>:<event>:<id>:<action>:<ts>.
// The token itself is never included in the error.
func ParseVoterID(token string) (string, error) {
	slash := strings.LastIndex(token, "/")
	if slash < 0 {
		return "", models.NewError(models.KindMalformedAuthToken, "token has no signed payload")
	}
	payload := token[slash+1:]
	colon := strings.Index(payload, ":")
	if colon < 0 {
		return "", models.NewError(models.KindMalformedAuthToken, "token payload has no voter id separator")
	}
	voterID := payload[:colon]
	if voterID == "" {
		return "", models.NewError(models.KindMalformedAuthToken, "token payload has an empty voter id")
	}
	return voterID, nil
}

// ResolveOutcome turns a login answer into an AuthenticationOutcome. A
// direct vote-permission-token wins; otherwise only the first child
// election is used. For SingleElection the ElectionID is left to the caller,
// who knows which election it authenticated against.
func ResolveOutcome(body []byte) (*models.AuthenticationOutcome, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, models.NewError(models.KindInvalidElectionResponse, "login response is not a JSON object")
	}

	var resp models.LoginResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, models.WrapError(models.KindInvalidElectionResponse, err, "malformed login response")
	}

	if resp.VotePermissionToken != "" {
		return &models.AuthenticationOutcome{
			Kind:      models.SingleElection,
			AuthToken: resp.VotePermissionToken,
		}, nil
	}

	if len(resp.VoteChildrenInfo) == 0 {
		return nil, models.NewError(models.KindEmptyVotePermissionToken,
			"neither %s nor %s in login response", models.VotePermissionTokenField, models.VoteChildrenInfoField)
	}

	first := resp.VoteChildrenInfo[0]
	if first.VotePermissionToken == "" {
		return nil, models.NewError(models.KindEmptyVotePermissionToken,
			"first child election has no %s", models.VotePermissionTokenField)
	}
	if first.AuthEventID == "" {
		return nil, models.NewError(models.KindInvalidElectionResponse,
			"first child election has no %s", models.AuthEventIDField)
	}
	return &models.AuthenticationOutcome{
		Kind:       models.ChildElections,
		AuthToken:  first.VotePermissionToken,
		ElectionID: string(first.AuthEventID),
		Children:   resp.VoteChildrenInfo,
	}, nil
}
