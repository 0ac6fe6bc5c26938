// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/truma-inetbox/inetbox-emu/internal/capture"
	"github.com/truma-inetbox/inetbox-emu/internal/config"
	"github.com/truma-inetbox/inetbox-emu/pkg/linbus/serial"
)

var captureCmd = &cobra.Command{
	Use:   "capture <outfile>",
	Short: "Record a live bus session to a CBOR event log",
	Long: `Capture opens the configured bus connection and records every read as a
timestamped CBOR event, for later offline replay with "capture play".`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

var capturePlayCmd = &cobra.Command{
	Use:   "play <infile>",
	Short: "Print the events recorded by a prior capture",
	Args:  cobra.ExactArgs(1),
	RunE:  runCapturePlay,
}

var capturePlayRealtime bool

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.AddCommand(capturePlayCmd)
	capturePlayCmd.Flags().BoolVar(&capturePlayRealtime, "realtime", false, "Pace playback using each event's recorded offset")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, logLevel)
	if err != nil {
		return err
	}
	conn, connInfo, err := openBusConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	out, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("create capture file: %w", err)
	}
	defer out.Close()

	fmt.Printf("Recording %s to %s. Press Ctrl+C to stop.\n", connInfo, args[0])

	recorder := capture.NewRecorder(out)
	reader := serial.NewBreakReader(conn)
	buf := make([]byte, 128)
	for {
		n, breakBefore, err := reader.ReadEvent(buf)
		if err != nil {
			return fmt.Errorf("read from bus: %w", err)
		}
		if n == 0 {
			continue
		}
		if err := recorder.Record(breakBefore, buf[:n]); err != nil {
			return err
		}
	}
}

func runCapturePlay(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open capture file: %w", err)
	}
	defer in.Close()

	return capture.Replay(in, capturePlayRealtime, func(event capture.Event) error {
		marker := ""
		if event.Break {
			marker = " [break]"
		}
		fmt.Printf("+%dms%s % 02X\n", event.OffsetMillis, marker, event.Bytes)
		return nil
	})
}
