package service

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivr-voting/config"
	"ivr-voting/encryption"
	"ivr-voting/models"
)

func electionBody(t *testing.T, pks interface{}) []byte {
	inner, err := json.Marshal(pks)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]interface{}{
		"payload": map[string]interface{}{"pks": string(inner)},
	})
	require.NoError(t, err)
	return body
}

func TestParseElectionResponse(t *testing.T) {
	key := models.PublicKeyStrings{P: "23", Q: "11", Y: "4", G: "2"}
	got, err := ParseElectionResponse(electionBody(t, []models.PublicKeyStrings{key}))
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestParseElectionResponse_Shape(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		err  error
	}{
		{"not json", []byte(`<html>`), models.ErrInvalidElectionResponse},
		{"array", []byte(`[]`), models.ErrInvalidElectionResponse},
		{"no payload", []byte(`{}`), models.ErrInvalidElectionResponse},
		{"payload not object", []byte(`{"payload":"x"}`), models.ErrInvalidElectionResponse},
		{"no pks", []byte(`{"payload":{}}`), models.ErrInvalidElectionResponse},
		{"pks not string", []byte(`{"payload":{"pks":[{"y":"4"}]}}`), models.ErrInvalidElectionResponse},
		{"pks not json", []byte(`{"payload":{"pks":"[{"}}`), models.ErrInvalidElectionResponse},
		{"missing y", electionBody(t, []map[string]string{{"p": "23"}}), models.ErrInvalidElectionResponse},
		{"no keys", electionBody(t, []models.PublicKeyStrings{}), models.ErrMultiplePublicKeys},
		{"two keys", electionBody(t, []models.PublicKeyStrings{{Y: "4"}, {Y: "9"}}), models.ErrMultiplePublicKeys},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseElectionResponse(tt.body)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestPublicKeyResolver_Static(t *testing.T) {
	sk, err := encryption.GenerateKey(encryption.DefaultGroup(), nil)
	require.NoError(t, err)
	raw, err := json.Marshal(sk.PublicKey.Strings())
	require.NoError(t, err)

	r, err := NewPublicKeyResolver(&config.Config{PublicKey: string(raw)}, nil)
	require.NoError(t, err)
	assert.True(t, r.Static())

	pk, err := r.Resolve(context.Background(), "17")
	require.NoError(t, err)
	assert.True(t, pk.Y.Equal(sk.Y))
	assert.True(t, pk.Group.Equal(sk.Group))

	// Group parameters may be omitted.
	raw, err = json.Marshal(models.PublicKeyStrings{Y: sk.Y.String()})
	require.NoError(t, err)
	r, err = NewPublicKeyResolver(&config.Config{PublicKey: string(raw)}, nil)
	require.NoError(t, err)
	pk, err = r.Resolve(context.Background(), "17")
	require.NoError(t, err)
	assert.True(t, pk.Y.Equal(sk.Y))
}

func TestPublicKeyResolver_StaticInvalid(t *testing.T) {
	_, err := NewPublicKeyResolver(&config.Config{PublicKey: `{"y":`}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidElectionResponse)

	_, err = NewPublicKeyResolver(&config.Config{PublicKey: `{"p":"23","q":"11","g":"4","y":"2"}`}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidElectionResponse)

	gr := encryption.DefaultGroup()
	_, err = NewPublicKeyResolver(&config.Config{PublicKey: `{"y":"` + gr.P.Text(10) + `"}`}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidGroupElement)

	// p-1 generates the order-2 subgroup.
	pm1 := new(big.Int).Sub(gr.P, big.NewInt(1))
	_, err = NewPublicKeyResolver(&config.Config{PublicKey: `{"y":"` + pm1.Text(10) + `"}`}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidGroupElement)
}
