// File: models/types.go
package models

// PublicKeyStrings is an ElGamal public key as the backend encodes it.
type PublicKeyStrings struct {
	Q string `json:"q"`
	P string `json:"p"`
	Y string `json:"y"`
	G string `json:"g"`
}

// ElectionResponse is the election-info envelope. Payload.PKs is itself a
// JSON document carried as a string.
type ElectionResponse struct {
	Payload *ElectionPayload `json:"payload"`
}

type ElectionPayload struct {
	PKs *string `json:"pks"`
}

// ContactEvent is the contact-flow invocation delivered by the IVR host.
type ContactEvent struct {
	Details ContactDetails `json:"Details"`
	Name    string         `json:"Name,omitempty"`
}

type ContactDetails struct {
	ContactData ContactData       `json:"ContactData"`
	Parameters  map[string]string `json:"Parameters,omitempty"`
}

type ContactData struct {
	Attributes map[string]string `json:"Attributes"`
	ContactID  string            `json:"ContactId,omitempty"`
	Channel    string            `json:"Channel,omitempty"`
}

// Attribute returns a contact attribute, falling back to a flow parameter.
func (e *ContactEvent) Attribute(name string) (string, bool) {
	if v, ok := e.Details.ContactData.Attributes[name]; ok {
		return v, true
	}
	v, ok := e.Details.Parameters[name]
	return v, ok
}

// Contact attribute names used by the voting flow.
const (
	AttrVoterUserID = "VoterUserId"
	AttrVoterPIN    = "VoterPIN"
	AttrElectionID  = "ElectionId"
	AttrAuthToken   = "AuthToken"
	AttrVote        = "Vote"
)

// AuthenticateResponse is returned to the contact flow after login.
type AuthenticateResponse struct {
	AuthToken  string `json:"AuthToken"`
	ElectionID string `json:"ElectionId"`
}

// RecordVoteResponse is returned to the contact flow after a recorded vote.
type RecordVoteResponse struct {
	VoteHashStartSSML string `json:"VoteHashStartSSML"`
}

// ErrorResponse is the single error payload returned to the contact flow.
type ErrorResponse struct {
	Error        ErrorKind `json:"error"`
	Message      string    `json:"message"`
	Status       int       `json:"status,omitempty"`
	InvocationID string    `json:"invocation_id,omitempty"`
}
