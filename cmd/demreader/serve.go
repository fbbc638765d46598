package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	demreader "golang-demreader"
	"golang-demreader/server"
)

func newServeCmd(root *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the decoder over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := server.New(server.Config{
				Addr:   addr,
				Mode:   demreader.ModeSummary,
				Logger: newLogger(cmd.ErrOrStderr(), zerolog.InfoLevel, root.debug),
			})
			if err != nil {
				return err
			}
			return s.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
