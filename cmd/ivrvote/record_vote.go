package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"ivr-voting/service"
)

var voteReq service.VoteRequest

func init() {
	recordVoteCmd.Flags().StringVar(&voteReq.Vote, "vote", "", "vote label as keyed in by the voter")
	recordVoteCmd.Flags().StringVar(&voteReq.AuthToken, "token", "", "vote permission token")
	recordVoteCmd.Flags().StringVar(&voteReq.ElectionID, "election", "", "election id")
	rootCmd.AddCommand(recordVoteCmd)
}

var recordVoteCmd = &cobra.Command{
	Use:   "record-vote",
	Short: "Encrypt a vote, submit it and print the receipt",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, coord, err := setup()
		if err != nil {
			return err
		}
		res, err := coord.RecordVote(cmd.Context(), voteReq)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			VoterID           string `json:"voter_id"`
			VoteHash          string `json:"vote_hash"`
			VoteHashStartSSML string `json:"VoteHashStartSSML"`
			Vote              string `json:"vote"`
		}{res.VoterID, res.VoteHash, res.VoteHashStartSSML, res.Receipt.Vote})
	},
}
