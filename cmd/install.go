// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/truma-inetbox/inetbox-emu/internal/service"
)

var installServiceUser string

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install a systemd unit that runs the daemon at boot",
	Long: `Install writes /etc/systemd/system/inetbox-emu.service pointing at this
binary and the configured config file, then reloads and enables it via
systemctl. Run as root.`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().StringVar(&installServiceUser, "user", "", "System user the daemon runs as (defaults to the caller)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	serviceUser := installServiceUser
	if serviceUser == "" {
		u, err := user.Current()
		if err != nil {
			return fmt.Errorf("resolve current user: %w", err)
		}
		serviceUser = u.Username
	}

	if err := service.Install(service.UnitParams{
		ExecPath:   execPath,
		ConfigPath: configPath,
		User:       serviceUser,
	}); err != nil {
		return err
	}

	fmt.Println("installed and enabled inetbox-emu.service")
	return nil
}
