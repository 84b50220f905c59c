package encryption

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"ivr-voting/models"
)

// CryptoService builds encrypted ballots. It holds no key material; the
// randomness source must be cryptographically secure.
type CryptoService struct {
	rand io.Reader
	now  func() time.Time
}

func NewCryptoService() *CryptoService {
	return &CryptoService{rand: rand.Reader, now: time.Now}
}

// WithClock returns a copy that stamps ballots using now.
func (cs *CryptoService) WithClock(now func() time.Time) *CryptoService {
	c := *cs
	c.now = now
	return &c
}

// WithRandom returns a copy drawing nonces from rnd.
func (cs *CryptoService) WithRandom(rnd io.Reader) *CryptoService {
	c := *cs
	c.rand = rnd
	return &c
}

// EncryptBallot encrypts one single-choice ballot and attaches its proof.
func (cs *CryptoService) EncryptBallot(pk *PublicKey, plaintext Element) (*models.EncryptedBallot, error) {
	ct, proof, err := pk.EncryptAndProve(plaintext, cs.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt vote: %w", err)
	}
	return &models.EncryptedBallot{
		Choices:   []models.EncryptedChoice{ct.Choice()},
		IssueDate: cs.now().UTC().Format(models.IssueDateLayout),
		Proofs:    []models.PlaintextProof{proof.Plaintext()},
	}, nil
}

// VerifyBallot checks every choice's proof against pk.
func (cs *CryptoService) VerifyBallot(pk *PublicKey, ballot *models.EncryptedBallot) error {
	if len(ballot.Choices) != len(ballot.Proofs) {
		return fmt.Errorf("ballot has %d choices but %d proofs", len(ballot.Choices), len(ballot.Proofs))
	}
	for i := range ballot.Choices {
		ct, err := pk.Group.ParseCiphertext(ballot.Choices[i])
		if err != nil {
			return fmt.Errorf("choice %d: %w", i, err)
		}
		proof, err := pk.Group.ParseProof(ballot.Proofs[i])
		if err != nil {
			return fmt.Errorf("proof %d: %w", i, err)
		}
		if err := pk.VerifyProof(ct, proof); err != nil {
			return fmt.Errorf("proof %d: %w", i, err)
		}
	}
	return nil
}
