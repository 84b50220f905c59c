package encryption

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"ivr-voting/models"
)

// MinModulusBits is the smallest accepted modulus for election keys.
const MinModulusBits = 2048

// p2048Hex is the 2048-bit MODP safe prime of RFC 3526 (group 14).
const p2048Hex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// Group is a multiplicative group modulo a safe prime P, restricted to the
// subgroup of order Q generated by G.
type Group struct {
	P *big.Int
	Q *big.Int
	G *big.Int
}

// Element is a member of a Group. It is never mutated after construction.
type Element struct {
	v *big.Int
}

// DefaultGroup returns the pinned 2048-bit group: p from RFC 3526,
// q = (p-1)/2 and g = 2, a quadratic residue since p = 7 mod 8.
func DefaultGroup() *Group {
	p, _ := new(big.Int).SetString(p2048Hex, 16)
	q := new(big.Int).Rsh(new(big.Int).Sub(p, one), 1)
	return &Group{P: p, Q: q, G: big.NewInt(2)}
}

// NewGroup validates group parameters received with an election key.
func NewGroup(p, q, g *big.Int) (*Group, error) {
	if p == nil || q == nil || g == nil {
		return nil, fmt.Errorf("group parameters must not be empty")
	}
	if p.BitLen() < MinModulusBits {
		return nil, fmt.Errorf("modulus is %d bits, need at least %d", p.BitLen(), MinModulusBits)
	}
	// Encode and Decode rely on the subgroup being the quadratic residues.
	pm1 := new(big.Int).Sub(p, one)
	if q.Sign() <= 0 || new(big.Int).Lsh(q, 1).Cmp(pm1) != 0 {
		return nil, fmt.Errorf("p is not a safe prime 2q+1")
	}
	if !p.ProbablyPrime(20) || !q.ProbablyPrime(20) {
		return nil, fmt.Errorf("p and q must be prime")
	}
	if g.Cmp(two) < 0 || g.Cmp(p) >= 0 {
		return nil, fmt.Errorf("generator out of range")
	}
	if new(big.Int).Exp(g, q, p).Cmp(one) != 0 {
		return nil, fmt.Errorf("generator is not of order q")
	}
	return &Group{
		P: new(big.Int).Set(p),
		Q: new(big.Int).Set(q),
		G: new(big.Int).Set(g),
	}, nil
}

// Equal reports whether both groups share the same parameters.
func (gr *Group) Equal(other *Group) bool {
	return other != nil && gr.P.Cmp(other.P) == 0 && gr.Q.Cmp(other.Q) == 0 && gr.G.Cmp(other.G) == 0
}

// Encode maps a plaintext m into the subgroup of quadratic residues: m+1 if
// it is a residue, p-(m+1) otherwise. m+1 must not exceed q.
func (gr *Group) Encode(m *big.Int) (Element, error) {
	if m == nil || m.Sign() < 0 {
		return Element{}, models.NewError(models.KindInvalidGroupElement, "plaintext must be non-negative")
	}
	e := new(big.Int).Add(m, one)
	if e.Cmp(gr.Q) > 0 {
		return Element{}, models.NewError(models.KindInvalidGroupElement, "plaintext too large for group")
	}
	switch big.Jacobi(e, gr.P) {
	case 1:
		return Element{v: e}, nil
	case -1:
		return Element{v: e.Sub(gr.P, e)}, nil
	default:
		return Element{}, models.NewError(models.KindInvalidGroupElement, "plaintext not encodable")
	}
}

// EncodeUint is Encode for small codes from the vote encoding table.
func (gr *Group) EncodeUint(m uint64) (Element, error) {
	return gr.Encode(new(big.Int).SetUint64(m))
}

// Decode inverts Encode.
func (gr *Group) Decode(el Element) (*big.Int, error) {
	if !gr.IsMember(el) {
		return nil, models.NewError(models.KindInvalidGroupElement, "element not in subgroup")
	}
	if el.v.Cmp(gr.Q) <= 0 {
		return new(big.Int).Sub(el.v, one), nil
	}
	m := new(big.Int).Sub(gr.P, el.v)
	return m.Sub(m, one), nil
}

// ElementFromString parses an element in the given base and checks it lies
// in [0, p).
func (gr *Group) ElementFromString(s string, base int) (Element, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), base)
	if !ok {
		return Element{}, models.NewError(models.KindInvalidGroupElement, "not a base-%d integer", base)
	}
	return gr.ElementFromInt(v)
}

// ElementFromDecimalString is ElementFromString in base 10.
func (gr *Group) ElementFromDecimalString(s string) (Element, error) {
	return gr.ElementFromString(s, 10)
}

// ElementFromInt wraps v after a range check.
func (gr *Group) ElementFromInt(v *big.Int) (Element, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(gr.P) >= 0 {
		return Element{}, models.NewError(models.KindInvalidGroupElement, "element out of range [0, p)")
	}
	return Element{v: new(big.Int).Set(v)}, nil
}

// IsMember reports whether el is a non-zero element of the order-q subgroup.
func (gr *Group) IsMember(el Element) bool {
	if el.v == nil || el.v.Sign() <= 0 || el.v.Cmp(gr.P) >= 0 {
		return false
	}
	return new(big.Int).Exp(el.v, gr.Q, gr.P).Cmp(one) == 0
}

// Exp returns base^k mod p.
func (gr *Group) Exp(base Element, k *big.Int) Element {
	return Element{v: new(big.Int).Exp(base.v, k, gr.P)}
}

// BaseExp returns g^k mod p.
func (gr *Group) BaseExp(k *big.Int) Element {
	return Element{v: new(big.Int).Exp(gr.G, k, gr.P)}
}

// Mul returns a*b mod p.
func (gr *Group) Mul(a, b Element) Element {
	v := new(big.Int).Mul(a.v, b.v)
	return Element{v: v.Mod(v, gr.P)}
}

// Inverse returns a^-1 mod p.
func (gr *Group) Inverse(a Element) Element {
	return Element{v: new(big.Int).ModInverse(a.v, gr.P)}
}

// RandomExponent draws uniformly from [0, q). rnd defaults to crypto/rand.
func (gr *Group) RandomExponent(rnd io.Reader) (*big.Int, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	k, err := rand.Int(rnd, gr.Q)
	if err != nil {
		return nil, fmt.Errorf("failed to draw random exponent: %w", err)
	}
	return k, nil
}

// Int returns a copy of the element's value.
func (el Element) Int() *big.Int {
	if el.v == nil {
		return nil
	}
	return new(big.Int).Set(el.v)
}

// Equal compares two elements by value.
func (el Element) Equal(other Element) bool {
	if el.v == nil || other.v == nil {
		return el.v == other.v
	}
	return el.v.Cmp(other.v) == 0
}

// String returns the base-10 representation used on the wire.
func (el Element) String() string {
	if el.v == nil {
		return ""
	}
	return el.v.Text(10)
}
