package models

// EncryptedChoice is one ElGamal ciphertext in base 10.
type EncryptedChoice struct {
	Alpha string `json:"alpha"`
	Beta  string `json:"beta"`
}

// PlaintextProof is the proof of plaintext knowledge for one choice.
type PlaintextProof struct {
	Challenge  string `json:"challenge"`
	Commitment string `json:"commitment"`
	Response   string `json:"response"`
}

// EncryptedBallot is the ballot as the backend hashes it. Field order is part
// of the wire format: choices, issue_date, proofs.
type EncryptedBallot struct {
	Choices   []EncryptedChoice `json:"choices"`
	IssueDate string            `json:"issue_date"`
	Proofs    []PlaintextProof  `json:"proofs"`
}

// IssueDateLayout formats EncryptedBallot.IssueDate as YYYY/MM/DD.
const IssueDateLayout = "2006/01/02"

// VoteReceipt is the record-vote request body.
type VoteReceipt struct {
	Vote     string `json:"vote"`
	VoteHash string `json:"vote_hash"`
}
