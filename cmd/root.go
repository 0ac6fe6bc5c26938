// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Config flags
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "inetbox-emu",
	Short: "Truma iNet box emulator for the CP Plus LIN bus",
	Long: `inetbox-emu emulates a Truma iNet box on the LIN bus of a CP Plus control
panel, and provides commands to run it as an MQTT-bridged daemon, watch its
status, and capture, monitor or replay bus traffic.

The bus connection is taken from the config file (--config): serial.port for
a local UART, or remote.url for a WebSocket bridge. When remote.username is
set, the bridge password is read from the INETBOX_BRIDGE_PASSWORD environment
variable, or prompted interactively if not set. There is no --password flag,
so credentials do not end up in shell history.`,
	Version: "2.1.0",
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Config flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/inetbox-emu/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
