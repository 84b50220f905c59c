package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Login response fields.
const (
	VotePermissionTokenField = "vote-permission-token"
	VoteChildrenInfoField    = "vote-children-info"
	AuthEventIDField         = "auth-event-id"
)

// LoginResponse is the typed shape of a successful authentication answer.
type LoginResponse struct {
	VotePermissionToken string          `json:"vote-permission-token"`
	VoteChildrenInfo    []ChildElection `json:"vote-children-info"`
}

// ChildElection is one entry of vote-children-info.
type ChildElection struct {
	VotePermissionToken string     `json:"vote-permission-token"`
	AuthEventID         ElectionID `json:"auth-event-id"`
}

// ElectionID accepts both JSON strings and JSON numbers.
type ElectionID string

func (id *ElectionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ElectionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("election id must be a string or a number: %w", err)
	}
	*id = ElectionID(n.String())
	return nil
}

// OutcomeKind tells which authentication variant the backend returned.
type OutcomeKind int

const (
	SingleElection OutcomeKind = iota + 1
	ChildElections
)

func (k OutcomeKind) String() string {
	switch k {
	case SingleElection:
		return "single-election"
	case ChildElections:
		return "child-elections"
	default:
		return "unknown"
	}
}

// AuthenticationOutcome is the resolved login answer. For ChildElections the
// AuthToken and ElectionID are those of Children[0]; the remaining children
// are kept for logging only.
type AuthenticationOutcome struct {
	Kind       OutcomeKind
	AuthToken  string
	ElectionID string
	Children   []ChildElection
}
