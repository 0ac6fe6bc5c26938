// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package discovery builds Home Assistant MQTT-discovery documents for
// the settings and telemetry this daemon exposes. It stays on
// encoding/json deliberately: none of the retrieval pack carries a
// discovery-schema library, and the payload shape here is a handful of
// flat structs, not a parser worth pulling a dependency in for.
package discovery

import (
	"encoding/json"
	"fmt"

	"github.com/truma-inetbox/inetbox-emu/pkg/statusbuf"
)

// Device identifies the physical unit these entities belong to, echoed
// into every discovery document's "device" block so Home Assistant
// groups them together.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// Document is one MQTT-discovery config payload.
type Document struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	CommandTopic      string   `json:"command_topic,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	Min               *int     `json:"min,omitempty"`
	Max               *int     `json:"max,omitempty"`
	Step              *int     `json:"step,omitempty"`
	Options           []string `json:"options,omitempty"`
	Device            Device   `json:"device"`
}

// component is the Home Assistant MQTT-discovery component the entity
// is published under (number, select, sensor).
type component string

const (
	componentNumber component = "number"
	componentSelect component = "select"
	componentSensor component = "sensor"
)

type entity struct {
	key       string
	component component
	unit      string
	min, max  int
	options   []string
	settable  bool
}

func intPtr(n int) *int { return &n }

// entities enumerates every setting and telemetry field this daemon
// publishes, in the shape a Home Assistant integration expects.
var entities = []entity{
	{key: statusbuf.SettingTargetTempRoom, component: componentNumber, unit: "°C", min: 5, max: 30, settable: true},
	{key: statusbuf.SettingTargetTempWater, component: componentNumber, unit: "°C", min: 0, max: 200, settable: true},
	{key: statusbuf.SettingHeatingMode, component: componentSelect, options: []string{"off", "eco", "high", "boost"}, settable: true},
	{key: statusbuf.SettingEnergyMix, component: componentSelect, options: []string{"none", "gas", "electricity", "mix"}, settable: true},
	{key: statusbuf.SettingElPowerLevel, component: componentNumber, unit: "W", min: 0, max: 1800, settable: true},
	{key: statusbuf.SettingMode, component: componentSelect, options: []string{"off", "heat"}, settable: true},
	{key: "current_temp_room", component: componentSensor, unit: "°C"},
	{key: "current_temp_water", component: componentSensor, unit: "°C"},
	{key: "fan_level", component: componentSensor},
	{key: "errors", component: componentSensor},
	{key: "update_status", component: componentSensor},
	{key: "cp_plus_status", component: componentSensor},
}

// Builder produces discovery documents scoped to one device and MQTT
// topic prefix.
type Builder struct {
	device Device
	prefix string
}

// NewBuilder constructs a Builder publishing under the given topic
// prefix (matching the mqttbridge status/set topic namespace) and
// identifying itself as deviceID in Home Assistant.
func NewBuilder(prefix, deviceID string) *Builder {
	return &Builder{
		prefix: prefix,
		device: Device{
			Identifiers:  []string{deviceID},
			Name:         "iNet Box Emulator",
			Manufacturer: "Truma",
			Model:        "iNet Box",
		},
	}
}

// Documents returns one (discoveryTopic, Document) pair per entity.
func (b *Builder) Documents() map[string]Document {
	out := make(map[string]Document, len(entities))
	for _, e := range entities {
		doc := Document{
			Name:     fmt.Sprintf("%s %s", b.device.Name, e.key),
			UniqueID: fmt.Sprintf("%s_%s", b.device.Identifiers[0], e.key),
			Device:   b.device,
		}
		if e.settable {
			doc.StateTopic = fmt.Sprintf("service/%s/status/control/%s", b.prefix, e.key)
			doc.CommandTopic = fmt.Sprintf("service/%s/set/%s", b.prefix, e.key)
		} else {
			doc.StateTopic = fmt.Sprintf("service/%s/status/display/%s", b.prefix, e.key)
		}
		switch e.component {
		case componentNumber:
			doc.Min, doc.Max, doc.Step = intPtr(e.min), intPtr(e.max), intPtr(1)
			doc.UnitOfMeasurement = e.unit
		case componentSelect:
			doc.Options = e.options
		case componentSensor:
			doc.UnitOfMeasurement = e.unit
		}

		topic := fmt.Sprintf("homeassistant/%s/%s/%s/config", e.component, b.device.Identifiers[0], e.key)
		out[topic] = doc
	}
	return out
}

// Marshal renders a Document as the JSON payload published to its
// discovery topic.
func Marshal(doc Document) ([]byte, error) {
	return json.Marshal(doc)
}
