// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package statusbuf

import "testing"

func TestControlSchema_EncodeDecodeRoundTrip(t *testing.T) {
	base := ControlSchema.blankBuffer()
	values := map[string]interface{}{
		"target_temp_room":  uint64(22),
		"target_temp_water": uint64(60),
		"heating_mode":      "eco",
		"energy_mix":        "electricity",
		"el_power_level":    900,
	}
	buf, err := ControlSchema.Encode(base, values)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(buf) != ControlSchema.Length {
		t.Fatalf("buffer length = %d, want %d", len(buf), ControlSchema.Length)
	}

	got, err := ControlSchema.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for k, want := range values {
		if got[k] != want {
			t.Errorf("field %q = %v, want %v", k, got[k], want)
		}
	}
}

func TestControlSchema_AdjacentBitFieldsDoNotClobber(t *testing.T) {
	// heating_mode and energy_mix share byte 14; setting one must not
	// disturb the other.
	base := ControlSchema.blankBuffer()
	buf, err := ControlSchema.Encode(base, map[string]interface{}{"heating_mode": "high"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	buf2, err := ControlSchema.Encode(buf, map[string]interface{}{"energy_mix": "mix"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	view, err := ControlSchema.Decode(buf2)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view["heating_mode"] != "high" {
		t.Errorf("heating_mode clobbered: got %v", view["heating_mode"])
	}
	if view["energy_mix"] != "mix" {
		t.Errorf("energy_mix = %v, want mix", view["energy_mix"])
	}
}

func TestSchema_EncodePreservesUnknownBits(t *testing.T) {
	base := make([]byte, DisplaySchema.Length)
	for i := range base {
		base[i] = 0xFF
	}
	base[PreambleLength] = DisplayIDA
	base[PreambleLength+1] = DisplayIDB

	buf, err := DisplaySchema.Encode(base, map[string]interface{}{"fan_level": 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// current_temp_room (bytes 12-13) is not in the overlay: it must
	// survive from base untouched.
	if buf[12] != 0xFF || buf[13] != 0xFF {
		t.Errorf("unrelated field bytes were altered: %02X %02X", buf[12], buf[13])
	}
	view, _ := DisplaySchema.Decode(buf)
	if view["fan_level"] != uint64(3) {
		t.Errorf("fan_level = %v, want 3", view["fan_level"])
	}
}

func TestSchema_DecodeRejectsMismatchedSelector(t *testing.T) {
	buf := ControlSchema.blankBuffer()
	buf[PreambleLength] = 0xFF
	if _, err := ControlSchema.Decode(buf); err == nil {
		t.Fatalf("expected an error for a mismatched schema selector")
	}
}

func TestTenthsKelvinCodec_RoundTrip(t *testing.T) {
	c := TenthsKelvinCodec{}
	for _, celsius := range []int{-10, 0, 21, 60} {
		raw, err := c.Encode(celsius)
		if err != nil {
			t.Fatalf("encode(%d): %v", celsius, err)
		}
		got := c.Decode(raw)
		if got != celsius {
			t.Errorf("round trip %d degC -> raw %d -> %v", celsius, raw, got)
		}
	}
}

func TestBCDTimeCodec_RoundTrip(t *testing.T) {
	c := BCDTimeCodec{}
	for _, n := range []int{0, 9, 23, 59} {
		raw, err := c.Encode(n)
		if err != nil {
			t.Fatalf("encode(%d): %v", n, err)
		}
		if got := c.Decode(raw); got != n {
			t.Errorf("round trip %d -> raw 0x%X -> %v", n, raw, got)
		}
	}
}
