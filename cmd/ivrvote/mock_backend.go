package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ivr-voting/config"
	"ivr-voting/registry"
	"ivr-voting/storage"
)

var (
	mockAddr  string
	mockStore string
	mockCfg   registry.MockConfig
)

func init() {
	mockBackendCmd.Flags().StringVar(&mockAddr, "addr", "localhost:9090", "listen address")
	mockBackendCmd.Flags().StringVar(&mockStore, "store", "", "directory where accepted ballots are kept")
	mockBackendCmd.Flags().StringVar(&mockCfg.FixturesPath, "fixtures", "", "JSON file with voters and elections")
	mockBackendCmd.Flags().StringVar(&mockCfg.UserIDKey, "user-id-key", "", "credential field holding the user id")
	mockBackendCmd.Flags().StringVar(&mockCfg.VoterPINKey, "voter-pin-key", "", "credential field holding the PIN")
	rootCmd.AddCommand(mockBackendCmd)
}

var mockBackendCmd = &cobra.Command{
	Use:   "mock-backend",
	Short: "Run an in-memory election backend for rehearsals",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if level == "" {
			level = config.DefaultTracingLevel
		}
		log, err := config.NewLogger(level, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		mock := registry.NewMockBackend(mockCfg)
		if mockCfg.FixturesPath != "" {
			if err := mock.LoadFixtures(); err != nil {
				return err
			}
		}

		if mockStore != "" {
			store, err := storage.NewJSONStore(mockStore)
			if err != nil {
				return err
			}
			mock.WithStore(store)
		}

		srv := &http.Server{Addr: mockAddr, Handler: mock, ReadHeaderTimeout: 10 * time.Second}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		log.WithField("addr", mockAddr).Info("mock election backend listening")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}
