package main

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/FFengIll/psdash/pkg/inspector"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the inspector backend for this host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		addr := config.Listen
		if listen != "" {
			addr = listen
		}
		server := inspector.NewServer(inspector.NewHostInspector())
		if err := server.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

var listen = ""

func init() {
	flags := serveCmd.Flags()
	flags.StringVarP(&listen, "listen", "l", "", "listen address, overrides the config")
}
