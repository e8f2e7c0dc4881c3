package hardware

import (
	"fmt"
	"sync"
)

// SimPin is an in-memory line used for desktop runs and tests
type SimPin struct {
	name    string
	mu      sync.Mutex
	on      bool
	readErr error
	setErr  error
	writes  int
	history []bool
}

// Read returns the simulated input state
func (p *SimPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInputRead, p.name, p.readErr)
	}
	return p.on, nil
}

// Set records a write
func (p *SimPin) Set(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrActuatorWrite, p.name, p.setErr)
	}
	p.on = on
	p.writes++
	p.history = append(p.history, on)
	return nil
}

// State reads back the last written state
func (p *SimPin) State() (bool, error) {
	return p.Read()
}

// Drive changes the pin without counting it as a write (an external stimulus)
func (p *SimPin) Drive(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.on = on
}

// FailReads makes subsequent reads return err (nil clears)
func (p *SimPin) FailReads(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// FailWrites makes subsequent writes return err (nil clears)
func (p *SimPin) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setErr = err
}

// Writes returns the number of successful writes
func (p *SimPin) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// History returns every written state in order
func (p *SimPin) History() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.history...)
}

// SimBoard is a Board made only of SimPins
type SimBoard struct {
	*Board
	pins map[string]*SimPin
}

// NewSimBoard creates simulated lines for the given names
func NewSimBoard(inputs, outputs []string) *SimBoard {
	sb := &SimBoard{
		Board: NewBoard(),
		pins:  make(map[string]*SimPin),
	}
	for _, name := range inputs {
		p := &SimPin{name: name}
		sb.pins[name] = p
		sb.AddInput(name, p)
	}
	for _, name := range outputs {
		p := &SimPin{name: name}
		sb.pins[name] = p
		sb.AddOutput(name, p)
	}
	return sb
}

// Pin returns the simulated line by name, or nil
func (sb *SimBoard) Pin(name string) *SimPin {
	return sb.pins[name]
}
