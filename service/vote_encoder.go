package service

import (
	"ivr-voting/encryption"
	"ivr-voting/models"
)

// VoteEncodingTable maps the label a voter speaks or keys in to the
// plaintext code of that choice. Lookups are exact and case-sensitive.
type VoteEncodingTable map[string]uint32

// Code looks up label.
func (t VoteEncodingTable) Code(label string) (uint32, error) {
	code, ok := t[label]
	if !ok {
		return 0, models.NewError(models.KindUnknownVoteChoice, "vote choice is not in the encoding table")
	}
	return code, nil
}

// EncodeVote maps label to a plaintext element of group.
func EncodeVote(group *encryption.Group, label string, table VoteEncodingTable) (encryption.Element, error) {
	code, err := table.Code(label)
	if err != nil {
		return encryption.Element{}, err
	}
	return group.EncodeUint(uint64(code))
}
