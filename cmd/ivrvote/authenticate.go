package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"ivr-voting/config"
	"ivr-voting/models"
	"ivr-voting/service"
)

var authReq service.AuthRequest

func init() {
	authenticateCmd.Flags().StringVar(&authReq.VoterUserID, "user", "", "voter user id")
	authenticateCmd.Flags().StringVar(&authReq.VoterPIN, "pin", "", "voter PIN")
	authenticateCmd.Flags().StringVar(&authReq.ElectionID, "election", "", "election id (defaults to "+config.EnvElectionID+")")
	rootCmd.AddCommand(authenticateCmd)
}

var authenticateCmd = &cobra.Command{
	Use:   "authenticate",
	Short: "Log a voter in and print the vote permission token",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, coord, err := setup()
		if err != nil {
			return err
		}
		res, err := coord.Authenticate(cmd.Context(), authReq)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(models.AuthenticateResponse{AuthToken: res.AuthToken, ElectionID: res.ElectionID})
	},
}
