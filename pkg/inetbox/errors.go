// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package inetbox

import "fmt"

// TransportError reports a malformed diagnostic exchange: an unknown SID
// or an upload request for an unrecognized status-buffer schema. Per the
// error taxonomy these are logged at warn level and the response is
// declined, never treated as fatal.
type TransportError struct {
	Msg string
}

func (e *TransportError) Error() string {
	return e.Msg
}

func transportErrorf(format string, args ...interface{}) *TransportError {
	return &TransportError{Msg: fmt.Sprintf(format, args...)}
}
