// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/truma-inetbox/inetbox-emu/internal/replaylog"
	"github.com/truma-inetbox/inetbox-emu/pkg/linbus"
)

var (
	replayFirst int
	replayLast  int
)

var replayCmd = &cobra.Command{
	Use:   "replay <logfile>",
	Short: "Decode a captured text log of bus traffic offline",
	Long: `Replay feeds a text log of whitespace-separated hex byte columns through the
frame decoder one line per frame, without touching a live bus connection.

The default column slice (--first 1 --last -2) drops a leading timestamp
column and two trailing columns the reference log format carries but the
decoder has no use for; adjust them to match a different log layout.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	opts := replaylog.DefaultOptions()
	replayCmd.Flags().IntVar(&replayFirst, "first", opts.First, "First column index of the frame bytes (Python-style, negative counts from the end)")
	replayCmd.Flags().IntVar(&replayLast, "last", opts.Last, "Column index one past the last frame byte")
}

func runReplay(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	decoder := linbus.NewDecoder(nil)
	opts := replaylog.Options{First: replayFirst, Last: replayLast}

	return replaylog.Replay(file, decoder, opts, func(r replaylog.Result) {
		if r.Err != nil {
			fmt.Printf("line %d: %v\n", r.Line, r.Err)
			return
		}
		if r.Frame != nil {
			fmt.Printf("line %d: %s", r.Line, formatFrameBody(r.Frame))
		}
	})
}
