// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// inetbox-emu emulates a Truma/CP Plus iNet box on a LIN bus.

package main

import (
	"fmt"
	"os"

	"github.com/truma-inetbox/inetbox-emu/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
