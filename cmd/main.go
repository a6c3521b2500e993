package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/FFengIll/psdash/pkg"
)

var config *pkg.Config

var rootCmd = &cobra.Command{
	Use:   "psdash",
	Short: "process tree dashboard",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pkg.LoadConfig(configPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("host") {
			cfg.Host = host
		}
		if flags.Changed("port") {
			cfg.Port = port
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.SetupLogging(); err != nil {
			return err
		}
		config = cfg
		return nil
	},
	RunE: runTree,
}

var (
	configPath   = ""
	host         = ""
	port         = 0
	logLevel     = ""
	snapshotPath = ""
	expandAll    = false
	expandPids   []int32
	dotFormat    = ""
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(treeCmd)

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&configPath, "config", "c", "", "yaml config file path")
	persistent.StringVar(&host, "host", "", "inspector host")
	persistent.IntVar(&port, "port", 0, "inspector port")
	persistent.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	addTreeFlags(rootCmd.Flags())
	addTreeFlags(treeCmd.Flags())
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "render the process tree once",
	Args:  cobra.NoArgs,
	RunE:  runTree,
}

func addTreeFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&snapshotPath, "snapshot", "s", "", "render a cached snapshot file instead of asking the inspector")
	flags.BoolVarP(&expandAll, "expand-all", "a", false, "expand every process")
	flags.Int32SliceVarP(&expandPids, "expand", "e", nil, "expand these pids")
	flags.StringVar(&dotFormat, "dot", "", "write the tree as a graph in this format (dot, svg, png)")
}

// runTree renders one snapshot as a table, or as a graph with --dot.
func runTree(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := requestContext(ctx)
	defer cancel()

	var snapshot *pkg.Snapshot
	var err error
	if snapshotPath != "" {
		logrus.WithField("snapshot", snapshotPath).Infoln("load cached snapshot")
		snapshot, err = pkg.LoadSnapshot(snapshotPath)
	} else {
		snapshot, err = newClient().FetchSnapshot(ctx)
	}
	if err != nil {
		return err
	}

	dash := pkg.NewDashboard()
	dash.ApplySnapshot(snapshot)
	for _, pid := range expandPids {
		if _, err := dash.Toggle(pid); err != nil {
			logrus.WithError(err).Warningln("skip expand")
		}
	}
	if expandAll {
		dash.ExpandAll()
	}

	if dotFormat != "" {
		render := pkg.NewDotRender()
		defer render.Close()
		return render.Write(os.Stdout, dash.Rows(), dotFormat)
	}
	return pkg.NewTableRender(terminalWidth()).Write(os.Stdout, dash)
}

func newClient() *pkg.Client {
	return pkg.NewClient(config.BaseURL(), config.RequestTimeout)
}

// requestContext bounds one gateway call by the configured timeout.
func requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, config.RequestTimeout)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
