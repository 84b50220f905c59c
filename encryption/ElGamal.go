package encryption

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"ivr-voting/models"
)

// PublicKey is an election's ElGamal public key y = g^x.
type PublicKey struct {
	Group *Group
	Y     Element
}

// PrivateKey is only used by tally-side tooling and tests.
type PrivateKey struct {
	PublicKey
	X *big.Int
}

// Ciphertext represents an ElGamal ciphertext (g^r, m*y^r)
type Ciphertext struct {
	Alpha Element
	Beta  Element
}

// Proof is a Schnorr proof of knowledge of the encryption randomness r,
// made non-interactive by hashing alpha, beta and the commitment.
type Proof struct {
	Challenge  *big.Int
	Commitment Element
	Response   *big.Int
}

// NewPublicKey checks y is a member of the group's prime-order subgroup.
func NewPublicKey(group *Group, y Element) (*PublicKey, error) {
	if !group.IsMember(y) {
		return nil, models.NewError(models.KindInvalidGroupElement, "public key is not a subgroup element")
	}
	return &PublicKey{Group: group, Y: y}, nil
}

// PublicKeyFromStrings builds a key from its wire form. Empty p, q and g
// select DefaultGroup; otherwise the parameters are validated.
func PublicKeyFromStrings(s models.PublicKeyStrings) (*PublicKey, error) {
	group := DefaultGroup()
	if s.P != "" || s.Q != "" || s.G != "" {
		var params [3]*big.Int
		for i, v := range []string{s.P, s.Q, s.G} {
			n, ok := new(big.Int).SetString(v, 10)
			if !ok {
				return nil, models.NewError(models.KindInvalidElectionResponse, "group parameters must be base-10 integers")
			}
			params[i] = n
		}
		gr, err := NewGroup(params[0], params[1], params[2])
		if err != nil {
			return nil, models.WrapError(models.KindInvalidElectionResponse, err, "invalid group parameters")
		}
		group = gr
	}
	y, err := group.ElementFromDecimalString(s.Y)
	if err != nil {
		return nil, err
	}
	return NewPublicKey(group, y)
}

// Strings returns the wire form of the key.
func (pk *PublicKey) Strings() models.PublicKeyStrings {
	return models.PublicKeyStrings{
		Q: pk.Group.Q.Text(10),
		P: pk.Group.P.Text(10),
		Y: pk.Y.String(),
		G: pk.Group.G.Text(10),
	}
}

// GenerateKey creates a key pair in group.
func GenerateKey(group *Group, rnd io.Reader) (*PrivateKey, error) {
	x, err := group.RandomExponent(rnd)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ElGamal key: %w", err)
	}
	if x.Sign() == 0 {
		x.SetInt64(1)
	}
	return &PrivateKey{
		PublicKey: PublicKey{Group: group, Y: group.BaseExp(x)},
		X:         x,
	}, nil
}

// EncryptAndProve encrypts plaintext under pk with fresh randomness and
// proves knowledge of that randomness. Each call draws new nonces from rnd
// (crypto/rand when nil).
func (pk *PublicKey) EncryptAndProve(plaintext Element, rnd io.Reader) (*Ciphertext, *Proof, error) {
	gr := pk.Group
	if !gr.IsMember(plaintext) {
		return nil, nil, models.NewError(models.KindInvalidGroupElement, "plaintext is not a subgroup element")
	}

	r, err := gr.RandomExponent(rnd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	ct := pk.encryptWith(plaintext, r)

	w, err := gr.RandomExponent(rnd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate commitment exponent: %w", err)
	}
	commitment := gr.BaseExp(w)
	challenge := pk.challenge(ct, commitment)

	// response = w + challenge*r mod q
	response := new(big.Int).Mul(challenge, r)
	response.Add(response, w)
	response.Mod(response, gr.Q)

	return ct, &Proof{Challenge: challenge, Commitment: commitment, Response: response}, nil
}

func (pk *PublicKey) encryptWith(plaintext Element, r *big.Int) *Ciphertext {
	gr := pk.Group
	return &Ciphertext{
		Alpha: gr.BaseExp(r),
		Beta:  gr.Mul(plaintext, gr.Exp(pk.Y, r)),
	}
}

// challenge is SHA-256 over "alpha/beta/commitment" in base 10, reduced mod q.
func (pk *PublicKey) challenge(ct *Ciphertext, commitment Element) *big.Int {
	h := sha256.New()
	h.Write([]byte(ct.Alpha.String()))
	h.Write([]byte("/"))
	h.Write([]byte(ct.Beta.String()))
	h.Write([]byte("/"))
	h.Write([]byte(commitment.String()))
	c := new(big.Int).SetBytes(h.Sum(nil))
	return c.Mod(c, pk.Group.Q)
}

// VerifyProof checks a proof produced by EncryptAndProve.
func (pk *PublicKey) VerifyProof(ct *Ciphertext, proof *Proof) error {
	gr := pk.Group
	if ct == nil || proof == nil || proof.Challenge == nil || proof.Response == nil {
		return fmt.Errorf("incomplete ciphertext or proof")
	}
	if !gr.IsMember(ct.Alpha) || !gr.IsMember(ct.Beta) {
		return fmt.Errorf("ciphertext is not in the group")
	}
	if !gr.IsMember(proof.Commitment) {
		return fmt.Errorf("commitment is not in the group")
	}
	if proof.Challenge.Sign() < 0 || proof.Challenge.Cmp(gr.Q) >= 0 ||
		proof.Response.Sign() < 0 || proof.Response.Cmp(gr.Q) >= 0 {
		return fmt.Errorf("proof scalars out of range")
	}
	if pk.challenge(ct, proof.Commitment).Cmp(proof.Challenge) != 0 {
		return fmt.Errorf("challenge does not match transcript")
	}
	lhs := gr.BaseExp(proof.Response)
	rhs := gr.Mul(proof.Commitment, gr.Exp(ct.Alpha, proof.Challenge))
	if !lhs.Equal(rhs) {
		return fmt.Errorf("proof verification failed")
	}
	return nil
}

// Decrypt recovers the plaintext element m = beta / alpha^x.
func (sk *PrivateKey) Decrypt(ct *Ciphertext) Element {
	gr := sk.Group
	s := gr.Exp(ct.Alpha, sk.X)
	return gr.Mul(ct.Beta, gr.Inverse(s))
}

// Add combines two ciphertexts component-wise; the result encrypts the
// product of both plaintexts.
func (pk *PublicKey) Add(c1, c2 *Ciphertext) *Ciphertext {
	gr := pk.Group
	return &Ciphertext{
		Alpha: gr.Mul(c1.Alpha, c2.Alpha),
		Beta:  gr.Mul(c1.Beta, c2.Beta),
	}
}

// Choice returns the wire form of the ciphertext.
func (ct *Ciphertext) Choice() models.EncryptedChoice {
	return models.EncryptedChoice{
		Alpha: ct.Alpha.String(),
		Beta:  ct.Beta.String(),
	}
}

// Plaintext returns the wire form of the proof.
func (p *Proof) Plaintext() models.PlaintextProof {
	return models.PlaintextProof{
		Challenge:  p.Challenge.Text(10),
		Commitment: p.Commitment.String(),
		Response:   p.Response.Text(10),
	}
}

// ParseCiphertext reads a ciphertext from its wire form.
func (gr *Group) ParseCiphertext(c models.EncryptedChoice) (*Ciphertext, error) {
	alpha, err := gr.ElementFromDecimalString(c.Alpha)
	if err != nil {
		return nil, fmt.Errorf("alpha: %w", err)
	}
	beta, err := gr.ElementFromDecimalString(c.Beta)
	if err != nil {
		return nil, fmt.Errorf("beta: %w", err)
	}
	return &Ciphertext{Alpha: alpha, Beta: beta}, nil
}

// ParseProof reads a proof from its wire form.
func (gr *Group) ParseProof(p models.PlaintextProof) (*Proof, error) {
	commitment, err := gr.ElementFromDecimalString(p.Commitment)
	if err != nil {
		return nil, fmt.Errorf("commitment: %w", err)
	}
	challenge, ok := new(big.Int).SetString(p.Challenge, 10)
	if !ok {
		return nil, models.NewError(models.KindInvalidGroupElement, "challenge is not a base-10 integer")
	}
	response, ok := new(big.Int).SetString(p.Response, 10)
	if !ok {
		return nil, models.NewError(models.KindInvalidGroupElement, "response is not a base-10 integer")
	}
	return &Proof{Challenge: challenge, Commitment: commitment, Response: response}, nil
}
