package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/FFengIll/psdash/pkg"
)

const watchHelp = "commands: r refresh | t <pid> toggle | e expand all | k <pid> kill | m <pid> memory | c close memory | q quit"

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "interactive dashboard refreshed on an interval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		cfg := *config
		if refresh > 0 {
			cfg.RefreshInterval = refresh
		}
		session := pkg.NewSession(pkg.NewDashboard(), newClient(), &cfg)

		render := pkg.NewTableRender(terminalWidth())
		clearScreen := term.IsTerminal(int(os.Stdout.Fd()))
		session.OnChange = func(d *pkg.Dashboard) {
			var buf bytes.Buffer
			if err := render.Write(&buf, d); err != nil {
				logrus.WithError(err).Errorln("render failed")
				return
			}
			if clearScreen {
				fmt.Print("\033[H\033[2J")
			}
			fmt.Print(buf.String())
			fmt.Println()
			fmt.Println(watchHelp)
		}

		readCtx, stopReading := context.WithCancel(ctx)
		defer stopReading()
		commands := make(chan pkg.Command)
		go readCommands(readCtx, os.Stdin, commands)
		if err := session.Run(ctx, commands); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

var refresh time.Duration

func init() {
	flags := watchCmd.Flags()
	flags.DurationVarP(&refresh, "interval", "i", 0, "refresh interval, overrides the config")
}

// readCommands forwards lines of r as commands. It closes the channel at EOF
// and stops forwarding once ctx is done.
func readCommands(ctx context.Context, r io.Reader, commands chan<- pkg.Command) {
	defer close(commands)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		command, err := pkg.ParseCommand(scanner.Text())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		select {
		case commands <- command:
		case <-ctx.Done():
			return
		}
		if command.Kind == pkg.CmdQuit {
			return
		}
	}
}
