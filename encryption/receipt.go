package encryption

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"ivr-voting/models"
)

// DefaultSpeakableLength is how many hash characters are read back to the voter.
const DefaultSpeakableLength = 8

// SerializeBallot encodes a ballot compactly with a stable field order. The
// backend recomputes vote_hash over these exact bytes.
func SerializeBallot(ballot *models.EncryptedBallot) ([]byte, error) {
	if ballot == nil {
		return nil, models.NewError(models.KindSerializationError, "nil ballot")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ballot); err != nil {
		return nil, models.WrapError(models.KindSerializationError, err, "failed to marshal ballot")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// HashVote returns the lower-case hex SHA-256 of data.
func HashVote(data []byte) string {
	sum := sha256.Sum256(data)
	return common.Bytes2Hex(sum[:])
}

// NewVoteReceipt serializes the ballot and pairs it with its hash.
func NewVoteReceipt(ballot *models.EncryptedBallot) (*models.VoteReceipt, error) {
	data, err := SerializeBallot(ballot)
	if err != nil {
		return nil, err
	}
	return &models.VoteReceipt{
		Vote:     string(data),
		VoteHash: HashVote(data),
	}, nil
}

// VerifyReceipt reports whether receipt.VoteHash matches receipt.Vote.
func VerifyReceipt(receipt *models.VoteReceipt) bool {
	return receipt != nil && HashVote([]byte(receipt.Vote)) == receipt.VoteHash
}

// SpeakablePrefix wraps each of the first n characters of hash in SSML so a
// voice system reads it one character at a time.
func SpeakablePrefix(hash string, n int) string {
	if n > len(hash) {
		n = len(hash)
	}
	if n < 0 {
		n = 0
	}
	var sb strings.Builder
	for _, c := range hash[:n] {
		sb.WriteString(`<s><say-as interpret-as="verbatim">`)
		sb.WriteRune(c)
		sb.WriteString(`</say-as></s>`)
	}
	return sb.String()
}
