package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FFengIll/psdash/pkg"
)

var killCmd = &cobra.Command{
	Use:   "kill <pid>",
	Short: "ask the inspector to terminate a process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := pkg.ParsePid(args[0])
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()
		ctx, cancel := requestContext(ctx)
		defer cancel()

		if err := newClient().Terminate(ctx, pid); err != nil {
			return err
		}
		logrus.WithField("pid", pid).Infoln("process terminated")
		return nil
	},
}
