// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/truma-inetbox/inetbox-emu/internal/config"
	"github.com/truma-inetbox/inetbox-emu/pkg/linbus"
	"github.com/truma-inetbox/inetbox-emu/pkg/linbus/serial"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print decoded LIN frames as they arrive on the bus",
	Long: `Monitor continuously decodes frames from the configured bus connection and
prints each one with its PID, data bytes and checksum as it decodes.

Unlike "run" or "status", monitor does not answer the master's headers: it is
a passive tap for diagnosing bus traffic.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, logLevel)
	if err != nil {
		return err
	}

	conn, connInfo, err := openBusConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("inetbox-emu - Bus Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := linbus.NewDecoder(nil)
	reader := serial.NewBreakReader(conn)
	buf := make([]byte, 128)

	for {
		n, breakBefore, err := reader.ReadEvent(buf)
		if err != nil {
			fmt.Printf("[read error] %v\n", err)
			continue
		}

		start := 0
		if breakBefore {
			// buf[0] is the inferred break's own 0x00, not frame data.
			decoder.Break()
			start = 1
		}
		for i := start; i < n; i++ {
			frame, err := decoder.DecodeByte(buf[i])
			if err != nil {
				fmt.Printf("[%s] decode error: %v\n", time.Now().Format("15:04:05.000"), err)
				continue
			}
			if frame != nil {
				fmt.Print(formatFrame(frame))
			}
		}
	}
}

func formatFrame(frame *linbus.Frame) string {
	timestamp := time.Now().Format("15:04:05.000")
	return fmt.Sprintf("[%s] %s", timestamp, formatFrameBody(frame))
}

// formatFrameBody renders a frame's PID/data/checksum without a
// timestamp prefix, for callers (like replay) that have their own
// notion of when the frame occurred.
func formatFrameBody(frame *linbus.Frame) string {
	if frame.Kind == linbus.FrameHeader {
		return fmt.Sprintf("PID=0x%02X (header, no response)\n", frame.PID.ID())
	}
	return fmt.Sprintf("PID=0x%02X data=% 02X checksum=0x%02X\n",
		frame.PID.ID(), frame.Data, frame.Checksum)
}
