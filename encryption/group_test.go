package encryption

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivr-voting/models"
)

func TestDefaultGroup(t *testing.T) {
	gr := DefaultGroup()
	assert.Equal(t, 2048, gr.P.BitLen())
	assert.Equal(t, 0, new(big.Int).Sub(gr.P, one).Cmp(new(big.Int).Lsh(gr.Q, 1)))

	checked, err := NewGroup(gr.P, gr.Q, gr.G)
	require.NoError(t, err)
	assert.True(t, checked.Equal(gr))
}

func TestNewGroup_Invalid(t *testing.T) {
	gr := DefaultGroup()

	_, err := NewGroup(big.NewInt(23), big.NewInt(11), big.NewInt(4))
	assert.Error(t, err, "small modulus must be rejected")

	_, err = NewGroup(gr.P, new(big.Int).Add(gr.Q, one), gr.G)
	assert.Error(t, err)

	_, err = NewGroup(gr.P, gr.Q, one)
	assert.Error(t, err)

	// p-1 has order 2, not q.
	_, err = NewGroup(gr.P, gr.Q, new(big.Int).Sub(gr.P, one))
	assert.Error(t, err)
}

// schnorrParams returns p = k*q+1 with a 256-bit q and g = 3^k, a prime-order
// subgroup that is not the quadratic residues.
func schnorrParams(t *testing.T) (p, q, g *big.Int) {
	q, err := rand.Prime(rand.Reader, 256)
	require.NoError(t, err)
	k := new(big.Int).Lsh(one, 1792)
	p = new(big.Int).Mul(k, q)
	p.Add(p, one)
	g = new(big.Int).Exp(big.NewInt(3), k, p)
	return p, q, g
}

func TestNewGroup_RejectsNonSafePrime(t *testing.T) {
	p, q, g := schnorrParams(t)
	require.GreaterOrEqual(t, p.BitLen(), MinModulusBits)

	_, err := NewGroup(p, q, g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safe prime")
}

func TestEncodeDecode(t *testing.T) {
	gr := DefaultGroup()
	for m := uint64(0); m < 64; m++ {
		el, err := gr.EncodeUint(m)
		require.NoError(t, err)
		assert.True(t, gr.IsMember(el), "encoding of %d not in subgroup", m)

		back, err := gr.Decode(el)
		require.NoError(t, err)
		assert.Equal(t, m, back.Uint64())
	}

	el, err := gr.EncodeUint(100)
	require.NoError(t, err)
	again, err := gr.EncodeUint(100)
	require.NoError(t, err)
	assert.True(t, el.Equal(again))
}

func TestEncode_OutOfRange(t *testing.T) {
	gr := DefaultGroup()
	_, err := gr.Encode(gr.Q)
	assert.ErrorIs(t, err, models.ErrInvalidGroupElement)

	_, err = gr.Encode(big.NewInt(-1))
	assert.ErrorIs(t, err, models.ErrInvalidGroupElement)

	_, err = gr.Encode(new(big.Int).Sub(gr.Q, one))
	assert.NoError(t, err)
}

func TestElementFromDecimalString(t *testing.T) {
	gr := DefaultGroup()

	el, err := gr.ElementFromDecimalString("12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", el.String())

	_, err = gr.ElementFromDecimalString(gr.P.Text(10))
	assert.ErrorIs(t, err, models.ErrInvalidGroupElement)

	_, err = gr.ElementFromDecimalString("-1")
	assert.ErrorIs(t, err, models.ErrInvalidGroupElement)

	_, err = gr.ElementFromDecimalString("0x10")
	assert.ErrorIs(t, err, models.ErrInvalidGroupElement)

	_, err = gr.ElementFromString("ff", 16)
	assert.NoError(t, err)
}

func TestRandomExponent(t *testing.T) {
	gr := DefaultGroup()
	a, err := gr.RandomExponent(nil)
	require.NoError(t, err)
	b, err := gr.RandomExponent(nil)
	require.NoError(t, err)
	assert.True(t, a.Cmp(gr.Q) < 0)
	assert.NotEqual(t, 0, a.Cmp(b))
}
