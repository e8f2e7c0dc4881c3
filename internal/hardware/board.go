// Package hardware owns every GPIO line of the controller. Callers work in
// logical on/off terms; pin polarity never leaves this package.
package hardware

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrInputRead wraps any failure to sample a digital input
	ErrInputRead = errors.New("input read failed")

	// ErrActuatorWrite wraps any failure to drive an output line
	ErrActuatorWrite = errors.New("actuator write failed")
)

// Well-known line names
const (
	InputPresence = "presence"
	InputStorm    = "storm"
	InputClouds   = "clouds"

	OutputAntenna   = "antenna"
	OutputStormLED  = "storm_led"
	OutputCloudsLED = "clouds_led"
	OutputOnAirLED  = "on_air_led"
	OutputStatusLED = "status_led"
)

// Input is a digital sensor input
type Input interface {
	// Read returns the logical state of the input
	Read() (bool, error)
}

// Output is a driven line such as a relay or LED
type Output interface {
	// Set drives the output to the logical state
	Set(on bool) error

	// State reads back the logical state currently driven
	State() (bool, error)
}

// Board is the set of lines a controller was wired with
type Board struct {
	inputs  map[string]Input
	outputs map[string]Output
	closers []func() error
}

// NewBoard creates an empty board
func NewBoard() *Board {
	return &Board{
		inputs:  make(map[string]Input),
		outputs: make(map[string]Output),
	}
}

// AddInput registers a named input
func (b *Board) AddInput(name string, in Input) {
	b.inputs[name] = in
}

// AddOutput registers a named output
func (b *Board) AddOutput(name string, out Output) {
	b.outputs[name] = out
}

// Input returns the named input if it is wired
func (b *Board) Input(name string) (Input, bool) {
	in, ok := b.inputs[name]
	return in, ok
}

// Output returns the named output if it is wired
func (b *Board) Output(name string) (Output, bool) {
	out, ok := b.outputs[name]
	return out, ok
}

// OutputNames returns wired output names, sorted
func (b *Board) OutputNames() []string {
	names := make([]string, 0, len(b.outputs))
	for name := range b.outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases every line
func (b *Board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Blink toggles an output on and off the given number of times, ending off.
func Blink(out Output, times int, on, off time.Duration, sleep func(time.Duration)) error {
	for i := 0; i < times; i++ {
		if err := out.Set(true); err != nil {
			return fmt.Errorf("blink on: %w", err)
		}
		sleep(on)
		if err := out.Set(false); err != nil {
			return fmt.Errorf("blink off: %w", err)
		}
		sleep(off)
	}
	return nil
}
