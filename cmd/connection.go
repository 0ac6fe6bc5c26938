// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/truma-inetbox/inetbox-emu/internal/config"
	"github.com/truma-inetbox/inetbox-emu/pkg/linbus/serial"
)

// openBusConnection opens whichever transport cfg names: a local UART
// for the LIN transceiver, or a WebSocket bridge to one attached to a
// different host. cfg.validate has already ensured exactly one is set.
func openBusConnection(cfg config.Config) (serial.Connection, string, error) {
	if cfg.Remote.URL != "" {
		password := ""
		if cfg.Remote.Username != "" {
			var err error
			password, err = serial.GetPassword("INETBOX_BRIDGE_PASSWORD")
			if err != nil {
				return nil, "", err
			}
		}
		conn, err := serial.OpenBridge(cfg.Remote.URL, cfg.Remote.Username, password, cfg.Remote.SkipTLSVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("bridge: %s", cfg.Remote.URL), nil
	}

	conn, err := serial.OpenPort(cfg.Serial.Port, cfg.Serial.Baud)
	if err != nil {
		return nil, "", err
	}
	return conn, fmt.Sprintf("serial: %s @ %d baud", cfg.Serial.Port, cfg.Serial.Baud), nil
}
