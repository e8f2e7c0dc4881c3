package models

// ActuatorPlan is the engine's target for every channel, plus the justification.
// Values for overridden channels are informational and are not written.
type ActuatorPlan struct {
	AntennaShouldConnect bool   `json:"antenna_should_connect"`
	StormLEDOn           bool   `json:"storm_led_on"`
	CloudsLEDOn          bool   `json:"clouds_led_on"`
	OnAirLEDOn           bool   `json:"on_air_led_on"`
	Reason               string `json:"reason"`
}

// Target returns the planned logical state for a channel.
func (p ActuatorPlan) Target(ch Channel) bool {
	switch ch {
	case ChannelAntenna:
		return p.AntennaShouldConnect
	case ChannelStormLED:
		return p.StormLEDOn
	case ChannelCloudsLED:
		return p.CloudsLEDOn
	case ChannelOnAirLED:
		return p.OnAirLEDOn
	default:
		return false
	}
}
