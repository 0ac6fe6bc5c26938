// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/truma-inetbox/inetbox-emu/internal/appio"
	"github.com/truma-inetbox/inetbox-emu/internal/config"
	"github.com/truma-inetbox/inetbox-emu/internal/discovery"
	"github.com/truma-inetbox/inetbox-emu/internal/mqttbridge"
	"github.com/truma-inetbox/inetbox-emu/pkg/inetbox"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the iNet box emulator as a headless daemon",
	Long: `Run opens the configured LIN bus connection, answers the master's LIN
headers as a Truma/CP Plus iNet box would, and bridges decoded status and
setting changes to MQTT with Home Assistant discovery documents.

This is the command a systemd unit installed by "install" invokes.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, logLevel)
	if err != nil {
		return err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(cfg.LogLevel).With().Timestamp().Logger()

	conn, connInfo, err := openBusConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info().Str("connection", connInfo).Msg("opened LIN bus connection")

	bridge, err := mqttbridge.New(mqttbridge.Config{
		BrokerURL: cfg.MQTT.BrokerURL,
		Username:  cfg.MQTT.Username,
		Password:  cfg.MQTT.Password,
		Prefix:    cfg.MQTT.Prefix,
	}, log)
	if err != nil {
		return err
	}
	defer bridge.Close()

	publishDiscovery(bridge, cfg.MQTT.Prefix, log)

	requests := make(chan appio.SetRequest, 8)
	updates := make(chan appio.Update, 16)
	go bridgeRequests(bridge, requests)

	loop := appio.New(conn, appio.Config{
		NAD:                cfg.NAD,
		Identity:           inetbox.Identity{SupplierID: cfg.SupplierID, FunctionID: cfg.FunctionID},
		Debounce:           cfg.UpdatesBufferTime,
		DefaultElPower:     cfg.DefaultElPower,
		DefaultHeatingMode: cfg.DefaultHeatingMode,
	}, requests, updates, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("shutdown requested")
		cancel()
	}()

	go publishUpdates(bridge, updates)

	if err := loop.Run(ctx); err != nil {
		log.Error().Err(err).Msg("protocol loop exited")
		return err
	}
	return nil
}

// bridgeRequests translates MQTT set-requests into the loop's own
// SetRequest type, decoupling the two packages' wire vocabularies.
func bridgeRequests(bridge *mqttbridge.Bridge, out chan<- appio.SetRequest) {
	for req := range bridge.Requests() {
		out <- appio.SetRequest{Key: req.Key, Value: req.Value}
	}
}

func publishUpdates(bridge *mqttbridge.Bridge, updates <-chan appio.Update) {
	for u := range updates {
		if u.Err != nil {
			bridge.PublishError("protocol", u.Err.Error())
			continue
		}
		if u.Display != nil {
			bridge.PublishStatus("display", u.Display)
		}
		if u.Control != nil {
			bridge.PublishStatus("control", u.Control)
		}
		bridge.PublishScalar("update_status", string(u.UpdateStatus))
		bridge.PublishScalar("cp_plus_status", u.CPPlusStatus.String())
	}
}

func publishDiscovery(bridge *mqttbridge.Bridge, prefix string, log zerolog.Logger) {
	builder := discovery.NewBuilder(prefix, "inetbox-emu-"+prefix)
	for topic, doc := range builder.Documents() {
		payload, err := discovery.Marshal(doc)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("failed to marshal discovery document")
			continue
		}
		bridge.PublishRaw(topic, payload)
	}
}
