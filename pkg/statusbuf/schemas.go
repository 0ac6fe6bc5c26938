// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package statusbuf

// Schema selectors recognized on the bus, per §3.
const (
	DisplayIDA, DisplayIDB   = 0x14, 0x33 // display-and-control read, from master
	ControlIDA, ControlIDB   = 0x0C, 0x32 // control write, from slave
	ClockIDA, ClockIDB       = 0x50, 0x01 // wall-clock read/write
	IdentityIDA, IdentityIDB = 0x00, 0x01 // identity/version, read-only
)

var heatingModeNames = map[uint64]string{0: "off", 1: "eco", 2: "high"}

var energyMixNames = map[uint64]string{0: "none", 1: "gas", 2: "electricity", 3: "mix"}

var elPowerLevelValues = map[uint64]int{0: 0, 1: 900, 2: 1800}

// DisplaySchema decodes the master's periodic (0x14,0x33) broadcast:
// current and target water/room temperatures, heating mode, energy
// mix, electric power level, fan level and the raw error byte.
var DisplaySchema = &Schema{
	IDA: DisplayIDA, IDB: DisplayIDB, Name: "display_status", Length: HeaderLength + 10,
	Fields: []Field{
		{Name: "current_temp_room", ByteOffset: 12, BitOffset: 0, BitWidth: 16, Codec: TenthsKelvinCodec{}},
		{Name: "current_temp_water", ByteOffset: 14, BitOffset: 0, BitWidth: 16, Codec: TenthsKelvinCodec{}},
		{Name: "target_temp_room", ByteOffset: 16, BitOffset: 0, BitWidth: 8, Codec: UnsignedIntCodec{}},
		{Name: "target_temp_water", ByteOffset: 17, BitOffset: 0, BitWidth: 8, Codec: UnsignedIntCodec{}},
		{Name: "heating_mode", ByteOffset: 18, BitOffset: 0, BitWidth: 2, Codec: FixedEnumCodec{Names: heatingModeNames}},
		{Name: "energy_mix", ByteOffset: 18, BitOffset: 2, BitWidth: 2, Codec: FixedEnumCodec{Names: energyMixNames}},
		{Name: "el_power_level", ByteOffset: 19, BitOffset: 0, BitWidth: 8, Codec: IntEnumCodec{Values: elPowerLevelValues}},
		{Name: "fan_level", ByteOffset: 20, BitOffset: 0, BitWidth: 8, Codec: UnsignedIntCodec{}},
		{Name: "errors", ByteOffset: 21, BitOffset: 0, BitWidth: 8, Codec: PassthroughCodec{}},
	},
}

// ControlSchema is the slave-authored (0x0C,0x32) write buffer: the
// subset of DisplaySchema's fields the slave is allowed to originate.
var ControlSchema = &Schema{
	IDA: ControlIDA, IDB: ControlIDB, Name: "control_status", Length: HeaderLength + 4,
	Fields: []Field{
		{Name: "target_temp_room", ByteOffset: 12, BitOffset: 0, BitWidth: 8, Codec: UnsignedIntCodec{}},
		{Name: "target_temp_water", ByteOffset: 13, BitOffset: 0, BitWidth: 8, Codec: UnsignedIntCodec{}},
		{Name: "heating_mode", ByteOffset: 14, BitOffset: 0, BitWidth: 2, Codec: FixedEnumCodec{Names: heatingModeNames}},
		{Name: "energy_mix", ByteOffset: 14, BitOffset: 2, BitWidth: 2, Codec: FixedEnumCodec{Names: energyMixNames}},
		{Name: "el_power_level", ByteOffset: 15, BitOffset: 0, BitWidth: 8, Codec: IntEnumCodec{Values: elPowerLevelValues}},
	},
}

// ClockSchema carries the master's wall-clock value in BCD.
var ClockSchema = &Schema{
	IDA: ClockIDA, IDB: ClockIDB, Name: "clock_status", Length: HeaderLength + 3,
	Fields: []Field{
		{Name: "wall_time_hours", ByteOffset: 12, BitOffset: 0, BitWidth: 8, Codec: BCDTimeCodec{}},
		{Name: "wall_time_minutes", ByteOffset: 13, BitOffset: 0, BitWidth: 8, Codec: BCDTimeCodec{}},
		{Name: "wall_time_seconds", ByteOffset: 14, BitOffset: 0, BitWidth: 8, Codec: BCDTimeCodec{}},
	},
}

// IdentitySchema exposes the read-only device/firmware identity bytes.
var IdentitySchema = &Schema{
	IDA: IdentityIDA, IDB: IdentityIDB, Name: "identity_status", Length: HeaderLength + 2,
	Fields: []Field{
		{Name: "device_id", ByteOffset: 12, BitOffset: 0, BitWidth: 8, Codec: PassthroughCodec{}},
		{Name: "firmware_version", ByteOffset: 13, BitOffset: 0, BitWidth: 8, Codec: PassthroughCodec{}},
	},
}

// AllSchemas is every schema this emulator recognizes, keyed for
// dispatch by upload/download requests.
var AllSchemas = []*Schema{DisplaySchema, ControlSchema, ClockSchema, IdentitySchema}
