package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/afroash/storm-antenna/internal/hardware"
)

// Hardware variants. Each one is a pin preset for a generation of the board.
const (
	VariantBasic    = "basic"
	VariantEnhanced = "enhanced"
	VariantDHT11    = "dht11"
)

var (
	inputOrder = []string{
		hardware.InputPresence,
		hardware.InputStorm,
		hardware.InputClouds,
	}
	outputOrder = []string{
		hardware.OutputAntenna,
		hardware.OutputStormLED,
		hardware.OutputCloudsLED,
		hardware.OutputOnAirLED,
		hardware.OutputStatusLED,
	}
)

// HardwareConfig describes how the board is wired
type HardwareConfig struct {
	Variant        string               `yaml:"variant"`
	Simulate       bool                 `yaml:"simulate"`
	Chip           string               `yaml:"chip"`
	Consumer       string               `yaml:"consumer"`
	RequestTimeout time.Duration        `yaml:"request_timeout"`
	Inputs         map[string]PinConfig `yaml:"inputs"`
	Outputs        map[string]PinConfig `yaml:"outputs"`
	DHT            DHTConfig            `yaml:"dht"`
}

// PinConfig is one line. Pointer fields distinguish unset from zero so that
// explicit values can override the variant preset; GPIO 0 is a valid pin.
type PinConfig struct {
	Pin       *int  `yaml:"pin"`
	ActiveLow *bool `yaml:"active_low"`
	PullUp    *bool `yaml:"pull_up"`
	Disabled  bool  `yaml:"disabled"`
}

// DHTConfig configures the temperature/humidity sensor
type DHTConfig struct {
	Enabled    *bool        `yaml:"enabled"`
	Pin        *int         `yaml:"pin"`
	MaxRetries int          `yaml:"max_retries"`
	Simulated  SimulatedDHT `yaml:"simulated"`
}

// SimulatedDHT is the fixed reading served when hardware.simulate is set
type SimulatedDHT struct {
	Temperature float64 `yaml:"temperature"`
	Humidity    float64 `yaml:"humidity"`
}

// IsEnabled reports whether a DHT11 is wired
func (d DHTConfig) IsEnabled() bool {
	return d.Enabled != nil && *d.Enabled
}

type preset struct {
	inputs  map[string]PinConfig
	outputs map[string]PinConfig
	dhtPin  *int
}

func pin(n int) PinConfig {
	return PinConfig{Pin: &n}
}

func pinLow(n int) PinConfig {
	t := true
	return PinConfig{Pin: &n, ActiveLow: &t}
}

func pinPullUp(n int) PinConfig {
	t := true
	return PinConfig{Pin: &n, PullUp: &t}
}

func intPtr(n int) *int {
	return &n
}

// presetFor returns the pin layout of a variant
func presetFor(variant string) (preset, error) {
	switch variant {
	case VariantBasic:
		return preset{
			inputs: map[string]PinConfig{
				hardware.InputPresence: pin(4),
				hardware.InputStorm:    pin(5),
			},
			outputs: map[string]PinConfig{
				hardware.OutputAntenna:   pin(2),
				hardware.OutputStatusLED: pin(23),
			},
		}, nil
	case VariantEnhanced:
		return preset{
			inputs: map[string]PinConfig{
				hardware.InputPresence: pin(4),
				hardware.InputStorm:    pin(5),
				hardware.InputClouds:   pinPullUp(18),
			},
			outputs: map[string]PinConfig{
				hardware.OutputAntenna:   pin(2),
				hardware.OutputStatusLED: pin(23),
				hardware.OutputStormLED:  pin(19),
				hardware.OutputCloudsLED: pin(21),
			},
		}, nil
	case VariantDHT11:
		// LEDs on this board are wired active low
		return preset{
			inputs: map[string]PinConfig{
				hardware.InputPresence: pin(4),
				hardware.InputStorm:    pinPullUp(5),
			},
			outputs: map[string]PinConfig{
				hardware.OutputAntenna:   pin(19),
				hardware.OutputStormLED:  pinLow(0),
				hardware.OutputCloudsLED: pinLow(15),
				hardware.OutputOnAirLED:  pinLow(2),
			},
			dhtPin: intPtr(18),
		}, nil
	default:
		return preset{}, fmt.Errorf("unknown hardware variant %q (want basic, enhanced or dht11)", variant)
	}
}

// ApplyDefaults fills unset fields and merges the variant preset under the
// explicitly configured pins
func (h *HardwareConfig) ApplyDefaults() error {
	if h.Variant == "" {
		h.Variant = VariantDHT11
	}
	h.Variant = strings.ToLower(h.Variant)
	if h.Chip == "" {
		h.Chip = "gpiochip0"
	}
	if h.Consumer == "" {
		h.Consumer = "storm-antenna"
	}
	if h.RequestTimeout == 0 {
		h.RequestTimeout = 5 * time.Second
	}

	p, err := presetFor(h.Variant)
	if err != nil {
		return err
	}
	h.Inputs = mergePins(h.Inputs, p.inputs)
	h.Outputs = mergePins(h.Outputs, p.outputs)

	if h.DHT.Enabled == nil {
		enabled := p.dhtPin != nil
		h.DHT.Enabled = &enabled
	}
	if h.DHT.Pin == nil && p.dhtPin != nil {
		h.DHT.Pin = intPtr(*p.dhtPin)
	}
	if h.DHT.MaxRetries == 0 {
		h.DHT.MaxRetries = 3
	}
	if h.DHT.Simulated.Temperature == 0 && h.DHT.Simulated.Humidity == 0 {
		h.DHT.Simulated = SimulatedDHT{Temperature: 22, Humidity: 50}
	}
	return nil
}

func mergePins(configured, preset map[string]PinConfig) map[string]PinConfig {
	merged := make(map[string]PinConfig, len(preset)+len(configured))
	for name, p := range preset {
		merged[name] = p
	}
	for name, c := range configured {
		base := merged[name]
		if c.Pin != nil {
			base.Pin = c.Pin
		}
		if c.ActiveLow != nil {
			base.ActiveLow = c.ActiveLow
		}
		if c.PullUp != nil {
			base.PullUp = c.PullUp
		}
		base.Disabled = c.Disabled
		merged[name] = base
	}
	return merged
}

// Validate checks the wiring: required lines present, names known, pins distinct
func (h *HardwareConfig) Validate() error {
	for name := range h.Inputs {
		if !slices.Contains(inputOrder, name) {
			return fmt.Errorf("unknown input %q", name)
		}
	}
	for name := range h.Outputs {
		if !slices.Contains(outputOrder, name) {
			return fmt.Errorf("unknown output %q", name)
		}
	}

	for _, name := range []string{hardware.InputPresence, hardware.InputStorm} {
		if !h.hasInput(name) {
			return fmt.Errorf("input %q is required", name)
		}
	}
	if !h.hasOutput(hardware.OutputAntenna) {
		return fmt.Errorf("output %q is required", hardware.OutputAntenna)
	}

	used := make(map[int]string)
	claim := func(name string, n int) error {
		if n < 0 {
			return fmt.Errorf("%s: pin must not be negative", name)
		}
		if other, ok := used[n]; ok {
			return fmt.Errorf("%s: pin %d already used by %s", name, n, other)
		}
		used[n] = name
		return nil
	}
	for _, spec := range h.Pins() {
		if err := claim(spec.Name, spec.Offset); err != nil {
			return err
		}
	}
	if h.DHT.IsEnabled() {
		if h.DHT.Pin == nil {
			return fmt.Errorf("dht pin is required when the sensor is enabled")
		}
		if err := claim("dht", *h.DHT.Pin); err != nil {
			return err
		}
		if h.DHT.MaxRetries < 1 {
			return fmt.Errorf("dht max_retries must be at least 1")
		}
	}
	return nil
}

func (h *HardwareConfig) hasInput(name string) bool {
	p, ok := h.Inputs[name]
	return ok && !p.Disabled && p.Pin != nil
}

func (h *HardwareConfig) hasOutput(name string) bool {
	p, ok := h.Outputs[name]
	return ok && !p.Disabled && p.Pin != nil
}

// Pins returns every enabled line, inputs first, in a stable order
func (h *HardwareConfig) Pins() []hardware.PinSpec {
	var specs []hardware.PinSpec
	specs = append(specs, h.inputSpecs()...)
	return append(specs, h.outputSpecs()...)
}

func (h *HardwareConfig) inputSpecs() []hardware.PinSpec {
	var specs []hardware.PinSpec
	for _, name := range inputOrder {
		if h.hasInput(name) {
			specs = append(specs, toSpec(name, h.Inputs[name]))
		}
	}
	return specs
}

func (h *HardwareConfig) outputSpecs() []hardware.PinSpec {
	var specs []hardware.PinSpec
	for _, name := range outputOrder {
		if h.hasOutput(name) {
			specs = append(specs, toSpec(name, h.Outputs[name]))
		}
	}
	return specs
}

// BoardSpec converts the wiring into a GPIO request
func (h *HardwareConfig) BoardSpec() hardware.BoardSpec {
	return hardware.BoardSpec{
		Chip:           h.Chip,
		Consumer:       h.Consumer,
		Inputs:         h.inputSpecs(),
		Outputs:        h.outputSpecs(),
		RequestTimeout: h.RequestTimeout,
	}
}

// LineNames returns the enabled input and output names, for simulated boards
func (h *HardwareConfig) LineNames() (inputs, outputs []string) {
	for _, s := range h.inputSpecs() {
		inputs = append(inputs, s.Name)
	}
	for _, s := range h.outputSpecs() {
		outputs = append(outputs, s.Name)
	}
	return inputs, outputs
}

func toSpec(name string, p PinConfig) hardware.PinSpec {
	spec := hardware.PinSpec{Name: name, Offset: *p.Pin}
	if p.ActiveLow != nil {
		spec.ActiveLow = *p.ActiveLow
	}
	if p.PullUp != nil {
		spec.PullUp = *p.PullUp
	}
	return spec
}
