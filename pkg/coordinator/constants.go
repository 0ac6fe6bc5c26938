// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package coordinator implements the L5 update coordinator: it turns
// validated user set-requests into a debounced control-buffer commit
// and tracks whether the CP Plus master is currently on the bus.
package coordinator

import "time"

// DefaultDebounce is updates_buffer_time's default value: how long the
// coordinator waits after the last setting write before committing a
// control buffer.
const DefaultDebounce = 1 * time.Second

// MasterPullWatchdog is how long the coordinator waits in
// waiting_truma for the master to drain the committed buffer before
// logging a warning.
const MasterPullWatchdog = 10 * time.Second

// CPPlusOnlineWindow is how recently a valid display-class frame must
// have arrived for cp_plus_status to read online.
const CPPlusOnlineWindow = 30 * time.Second
