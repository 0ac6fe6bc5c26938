// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package service

import (
	"strings"
	"testing"
)

func TestRenderUnit_SubstitutesParams(t *testing.T) {
	content, err := RenderUnit(UnitParams{
		ExecPath:   "/usr/local/bin/inetbox-emu",
		ConfigPath: "/etc/inetbox-emu/config.yaml",
		User:       "inetbox",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(content, "ExecStart=/usr/local/bin/inetbox-emu run --config /etc/inetbox-emu/config.yaml") {
		t.Errorf("rendered unit missing expected ExecStart line:\n%s", content)
	}
	if !strings.Contains(content, "User=inetbox") {
		t.Errorf("rendered unit missing expected User line:\n%s", content)
	}
	if !strings.Contains(content, "[Install]") {
		t.Errorf("rendered unit missing [Install] section:\n%s", content)
	}
}
