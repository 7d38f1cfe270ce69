package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	cfgFile string
	debug   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "pitch-analyzer",
		Short: "Analyze startup pitch decks into scored investment reports",
		Long: `pitch-analyzer fetches an extracted pitch deck, normalizes it, runs the
category analyses, scores and cross-checks the results and writes a
consolidated investment report.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(analyzeCmd(opts))
	root.AddCommand(serveCmd(opts))
	root.AddCommand(versionCmd())
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pitch-analyzer %s\n", version)
		},
	}
}
