package models

import (
	"fmt"
	"strings"
)

// Channel is one controllable output.
type Channel string

const (
	ChannelAntenna   Channel = "antenna"
	ChannelStormLED  Channel = "storm_led"
	ChannelCloudsLED Channel = "clouds_led"
	ChannelOnAirLED  Channel = "on_air_led"
)

// AllChannels lists every channel in display order.
var AllChannels = []Channel{ChannelAntenna, ChannelStormLED, ChannelCloudsLED, ChannelOnAirLED}

// ParseLEDName maps the LED names accepted on the wire to a channel.
// Both the descriptive names and the led1..led3 aliases are accepted.
func ParseLEDName(name string) (Channel, error) {
	switch strings.ToLower(name) {
	case "storm", "storm_led", "led1":
		return ChannelStormLED, nil
	case "clouds", "clouds_led", "weather", "led2":
		return ChannelCloudsLED, nil
	case "on_air", "on_air_led", "led3":
		return ChannelOnAirLED, nil
	default:
		return "", fmt.Errorf("unknown LED %q", name)
	}
}

// Label is the human readable channel name.
func (c Channel) Label() string {
	switch c {
	case ChannelAntenna:
		return "Antenna"
	case ChannelStormLED:
		return "Storm LED"
	case ChannelCloudsLED:
		return "Clouds LED"
	case ChannelOnAirLED:
		return "On Air LED"
	default:
		return string(c)
	}
}

// OverrideState holds one flag per channel. A set flag suspends automatic control.
type OverrideState struct {
	Antenna   bool `json:"antenna"`
	StormLED  bool `json:"storm_led"`
	CloudsLED bool `json:"clouds_led"`
	OnAirLED  bool `json:"on_air_led"`
}

// Get returns the flag for a channel.
func (o OverrideState) Get(ch Channel) bool {
	switch ch {
	case ChannelAntenna:
		return o.Antenna
	case ChannelStormLED:
		return o.StormLED
	case ChannelCloudsLED:
		return o.CloudsLED
	case ChannelOnAirLED:
		return o.OnAirLED
	default:
		return false
	}
}

// With returns a copy with the channel flag set to v.
func (o OverrideState) With(ch Channel, v bool) OverrideState {
	switch ch {
	case ChannelAntenna:
		o.Antenna = v
	case ChannelStormLED:
		o.StormLED = v
	case ChannelCloudsLED:
		o.CloudsLED = v
	case ChannelOnAirLED:
		o.OnAirLED = v
	}
	return o
}

// Any reports whether at least one channel is overridden.
func (o OverrideState) Any() bool {
	return o.Antenna || o.StormLED || o.CloudsLED || o.OnAirLED
}

// Active returns the overridden channels in display order.
func (o OverrideState) Active() []Channel {
	var active []Channel
	for _, ch := range AllChannels {
		if o.Get(ch) {
			active = append(active, ch)
		}
	}
	return active
}
