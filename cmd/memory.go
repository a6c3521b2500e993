package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FFengIll/psdash/pkg"
)

var memoryCmd = &cobra.Command{
	Use:   "memory <pid>",
	Short: "show the memory map of a process",
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

		client := newClient()
		dash := pkg.NewDashboard()
		// the snapshot only feeds the usage percent
		if snapshot, err := client.FetchSnapshot(ctx); err == nil {
			dash.ApplySnapshot(snapshot)
		} else {
			logrus.WithError(err).Warningln("no snapshot, usage percent unavailable")
		}

		req := dash.Select(pid)
		memory, err := client.FetchMemoryMap(ctx, pid)
		if _, err := dash.ApplyMemory(req, memory, err); err != nil {
			return err
		}
		return pkg.NewTableRender(terminalWidth()).WriteMemory(os.Stdout, dash.Memory())
	},
}
