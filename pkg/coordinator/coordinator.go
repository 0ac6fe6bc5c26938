// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package coordinator

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/truma-inetbox/inetbox-emu/pkg/statusbuf"
)

// SlaveUpdater is the L3 surface the coordinator drives: asserting
// update_pending once a control buffer has been committed, clearing it
// once the master has drained it.
type SlaveUpdater interface {
	SetUpdatePending(bool)
}

// Coordinator is the L5 update state machine. It is driven entirely by
// the single protocol-loop goroutine: WriteSetting on inbound requests,
// OnDisplayFrame on every valid 0x20-class frame, OnMasterDrain once the
// master completes a 0xBA/0xBB exchange, and Tick once per loop
// iteration to evaluate timers.
type Coordinator struct {
	slave SlaveUpdater
	store *statusbuf.Store
	log   zerolog.Logger

	debounce           time.Duration
	defaultElPower     int
	defaultHeatingMode string

	state   State
	pending map[string]interface{}

	debounceDeadline time.Time
	pullDeadline     time.Time
	watchdogLogged   bool
	heldForCPPlus    bool

	cpPlusStatus  CPPlusStatus
	lastDisplayAt time.Time
}

// New builds a coordinator wired to the given slave and application
// buffer store, using the debounce duration configured for
// updates_buffer_time (DefaultDebounce if zero).
func New(slave SlaveUpdater, store *statusbuf.Store, debounce time.Duration, log zerolog.Logger) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Coordinator{
		slave:              slave,
		store:              store,
		log:                log,
		debounce:           debounce,
		defaultElPower:     900,
		defaultHeatingMode: "eco",
		pending:            make(map[string]interface{}),
		cpPlusStatus:       CPPlusWaiting,
	}
}

// State returns the current commit state machine state.
func (c *Coordinator) State() State { return c.state }

// CPPlusStatus returns whether the master has been heard from recently.
func (c *Coordinator) CPPlusStatus() CPPlusStatus { return c.cpPlusStatus }

// UpdateStatus returns the value to publish on the update_status
// telemetry stream, including the waiting_for_cp_plus overlay.
func (c *Coordinator) UpdateStatus() UpdateStatus {
	if c.heldForCPPlus {
		return UpdateStatusWaitingForCPPlus
	}
	switch c.state {
	case StateWaitingCommit:
		return UpdateStatusWaitingCommit
	case StateWaitingTruma:
		return UpdateStatusWaitingTruma
	default:
		return UpdateStatusIdle
	}
}

// WriteSetting validates and stages a single name/value pair, then
// (re)starts the debounce timer. A validation failure rejects only this
// setting and leaves prior pending state untouched, per §7's
// validation-error class.
func (c *Coordinator) WriteSetting(key, raw string, now time.Time) error {
	val, err := statusbuf.ParseSetting(key, raw)
	if err != nil {
		c.log.Warn().Str("key", key).Str("value", raw).Err(err).Msg("rejected setting write")
		return err
	}

	trial := make(map[string]interface{}, len(c.pending)+1)
	for k, v := range c.pending {
		trial[k] = v
	}
	trial[key] = val

	if err := statusbuf.ApplyInterdependencies(trial, c.defaultElPower, c.defaultHeatingMode); err != nil {
		c.log.Warn().Str("key", key).Err(err).Msg("rejected setting write")
		return err
	}

	c.pending = trial
	c.debounceDeadline = now.Add(c.debounce)
	c.heldForCPPlus = false
	if c.state != StateWaitingTruma {
		c.state = StateWaitingCommit
	}
	return nil
}

// OnDisplayFrame records that a valid 0x20-class broadcast just arrived,
// marking the master online for CPPlusOnlineWindow.
func (c *Coordinator) OnDisplayFrame(now time.Time) {
	c.lastDisplayAt = now
	c.cpPlusStatus = CPPlusOnline
}

// OnMasterDrain is called once the master completes the 0xBA/0xBB
// exchange that reads back the committed control buffer: state returns
// to idle, the pending map is cleared, and update_pending drops.
func (c *Coordinator) OnMasterDrain() {
	c.state = StateIdle
	c.pending = make(map[string]interface{})
	c.store.ClearPendingControl()
	c.slave.SetUpdatePending(false)
	c.watchdogLogged = false
	c.heldForCPPlus = false
}

// Tick evaluates the debounce and watchdog timers against now. Call it
// once per protocol-loop iteration.
func (c *Coordinator) Tick(now time.Time) {
	if c.cpPlusStatus == CPPlusOnline && !c.lastDisplayAt.IsZero() && now.Sub(c.lastDisplayAt) > CPPlusOnlineWindow {
		c.cpPlusStatus = CPPlusWaiting
	}

	switch c.state {
	case StateWaitingCommit:
		if !c.debounceDeadline.IsZero() && !now.Before(c.debounceDeadline) {
			c.tryCommit(now)
		}
	case StateWaitingTruma:
		if !c.pullDeadline.IsZero() && now.After(c.pullDeadline) && !c.watchdogLogged {
			c.log.Warn().Msg("master has not pulled the committed control buffer within the watchdog window")
			c.watchdogLogged = true
		}
	}
}

func (c *Coordinator) tryCommit(now time.Time) {
	if c.cpPlusStatus == CPPlusWaiting {
		// Hold the debounced commit until the master is seen online;
		// Tick will retry on every subsequent call.
		c.heldForCPPlus = true
		return
	}
	c.heldForCPPlus = false

	c.store.SetPendingControl(c.pending)
	c.slave.SetUpdatePending(true)
	c.state = StateWaitingTruma
	c.pullDeadline = now.Add(MasterPullWatchdog)
	c.watchdogLogged = false
}
