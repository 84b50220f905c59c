package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ivr-voting/encryption"
	"ivr-voting/models"
)

func init() {
	rootCmd.AddCommand(verifyReceiptCmd)
}

var verifyReceiptCmd = &cobra.Command{
	Use:   "verify-receipt [file]",
	Short: "Recompute the vote_hash of a {vote, vote_hash} receipt",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := io.Reader(os.Stdin)
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		var receipt models.VoteReceipt
		if err := json.NewDecoder(in).Decode(&receipt); err != nil {
			return fmt.Errorf("failed to read receipt: %w", err)
		}
		hash := encryption.HashVote([]byte(receipt.Vote))
		fmt.Fprintf(cmd.OutOrStdout(), "vote_hash %s\nspoken %s\n", hash,
			encryption.SpeakablePrefix(hash, encryption.DefaultSpeakableLength))
		if !encryption.VerifyReceipt(&receipt) {
			return fmt.Errorf("vote_hash mismatch: receipt has %q", receipt.VoteHash)
		}
		return nil
	},
}
