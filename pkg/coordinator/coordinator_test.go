// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package coordinator

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/truma-inetbox/inetbox-emu/pkg/statusbuf"
)

type fakeSlave struct {
	pending bool
	calls   int
}

func (f *fakeSlave) SetUpdatePending(p bool) {
	f.pending = p
	f.calls++
}

func newTestCoordinator() (*Coordinator, *fakeSlave) {
	slave := &fakeSlave{}
	store := statusbuf.NewStore()
	c := New(slave, store, 1*time.Second, zerolog.New(io.Discard))
	return c, slave
}

func TestCoordinator_WriteThenDebounceCommits(t *testing.T) {
	c, slave := newTestCoordinator()

	now := time.Unix(100, 0)
	c.OnDisplayFrame(now) // master online throughout
	if err := c.WriteSetting(statusbuf.SettingTargetTempRoom, "22", now); err != nil {
		t.Fatalf("WriteSetting: %v", err)
	}
	if c.State() != StateWaitingCommit {
		t.Fatalf("state = %v, want waiting_commit", c.State())
	}

	c.Tick(now.Add(500 * time.Millisecond))
	if c.State() != StateWaitingCommit {
		t.Fatalf("state changed before debounce elapsed: %v", c.State())
	}

	c.Tick(now.Add(1100 * time.Millisecond))
	if c.State() != StateWaitingTruma {
		t.Fatalf("state = %v, want waiting_truma after debounce", c.State())
	}
	if !slave.pending {
		t.Errorf("expected update_pending to be asserted")
	}
}

func TestCoordinator_InvalidSettingRejectedWithoutStateChange(t *testing.T) {
	c, _ := newTestCoordinator()
	err := c.WriteSetting(statusbuf.SettingTargetTempRoom, "999", time.Unix(0, 0))
	if err == nil {
		t.Fatalf("expected a validation error")
	}
	if c.State() != StateIdle {
		t.Errorf("state must stay idle after a rejected write, got %v", c.State())
	}
}

func TestCoordinator_HoldsForCPPlusWhenOffline(t *testing.T) {
	c, slave := newTestCoordinator()
	// cp_plus_status starts waiting: no display frame has ever arrived.
	now := time.Unix(100, 0)
	if err := c.WriteSetting(statusbuf.SettingTargetTempRoom, "22", now); err != nil {
		t.Fatalf("WriteSetting: %v", err)
	}

	c.Tick(now.Add(2 * time.Second))
	if c.State() != StateWaitingCommit {
		t.Fatalf("expected commit to be held while cp_plus is offline, got %v", c.State())
	}
	if c.UpdateStatus() != UpdateStatusWaitingForCPPlus {
		t.Errorf("UpdateStatus() = %v, want waiting_for_cp_plus", c.UpdateStatus())
	}
	if slave.pending {
		t.Errorf("update_pending must not be asserted while held")
	}

	c.OnDisplayFrame(now.Add(3 * time.Second))
	c.Tick(now.Add(3 * time.Second))
	if c.State() != StateWaitingTruma {
		t.Fatalf("expected commit to proceed once cp_plus comes online, got %v", c.State())
	}
}

func TestCoordinator_MasterDrainReturnsToIdle(t *testing.T) {
	c, slave := newTestCoordinator()
	now := time.Unix(100, 0)
	c.OnDisplayFrame(now)
	c.WriteSetting(statusbuf.SettingTargetTempRoom, "22", now)
	c.Tick(now.Add(2 * time.Second))
	if c.State() != StateWaitingTruma {
		t.Fatalf("precondition: expected waiting_truma, got %v", c.State())
	}

	c.OnMasterDrain()
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle after master drain", c.State())
	}
	if slave.pending {
		t.Errorf("expected update_pending cleared after master drain")
	}
}

func TestCoordinator_CPPlusStatusExpiresAfterOnlineWindow(t *testing.T) {
	c, _ := newTestCoordinator()
	start := time.Unix(1000, 0)
	c.OnDisplayFrame(start)
	if c.CPPlusStatus() != CPPlusOnline {
		t.Fatalf("expected online immediately after a display frame")
	}
	c.Tick(start.Add(31 * time.Second))
	if c.CPPlusStatus() != CPPlusWaiting {
		t.Errorf("expected cp_plus_status to expire after the online window")
	}
}
