package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "fetch a snapshot from the inspector and cache it to a file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		ctx, cancel := requestContext(ctx)
		defer cancel()

		snapshot, err := newClient().FetchSnapshot(ctx)
		if err != nil {
			return err
		}
		path, err := snapshot.DumpFile(snapshotFilepath)
		if err != nil {
			return err
		}
		logrus.WithField("processes", len(snapshot.Processes)).Infof("snapshot saved to %s", path)
		return nil
	},
}

var snapshotFilepath = ""

func init() {
	flags := snapshotCmd.Flags()
	flags.StringVarP(&snapshotFilepath, "output", "o", "", "cache snapshot to file")
}
