package hardware

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/warthog618/go-gpiocdev"
)

// PinSpec describes one line to request
type PinSpec struct {
	Name      string
	Offset    int
	ActiveLow bool
	PullUp    bool
}

// BoardSpec describes every line to request from a GPIO chip
type BoardSpec struct {
	Chip     string
	Consumer string
	Inputs   []PinSpec
	Outputs  []PinSpec

	// RequestTimeout bounds retries when a line is still held by a previous process
	RequestTimeout time.Duration
}

// level converts a logical state into the pin level for the given polarity
func level(on, activeLow bool) int {
	if on != activeLow {
		return 1
	}
	return 0
}

// logical converts a pin level back into the logical state
func logical(value int, activeLow bool) bool {
	return (value != 0) != activeLow
}

// LineInput is a digital input on a gpiocdev line
type LineInput struct {
	name      string
	line      *gpiocdev.Line
	activeLow bool
}

// Read samples the line
func (i *LineInput) Read() (bool, error) {
	v, err := i.line.Value()
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInputRead, i.name, err)
	}
	return logical(v, i.activeLow), nil
}

// LineOutput is a driven gpiocdev line
type LineOutput struct {
	name      string
	line      *gpiocdev.Line
	activeLow bool
}

// Set drives the line, inverting for active-low wiring
func (o *LineOutput) Set(on bool) error {
	if err := o.line.SetValue(level(on, o.activeLow)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrActuatorWrite, o.name, err)
	}
	return nil
}

// State reads back the driven level
func (o *LineOutput) State() (bool, error) {
	v, err := o.line.Value()
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInputRead, o.name, err)
	}
	return logical(v, o.activeLow), nil
}

// OpenBoard requests every line in spec. Outputs start in the logical off state.
func OpenBoard(spec BoardSpec, logger zerolog.Logger) (*Board, error) {
	board := NewBoard()

	for _, p := range spec.Inputs {
		opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithConsumer(spec.Consumer)}
		if p.PullUp {
			opts = append(opts, gpiocdev.WithPullUp)
		}
		line, err := requestLine(spec, p, opts, logger)
		if err != nil {
			board.Close()
			return nil, err
		}
		board.AddInput(p.Name, &LineInput{name: p.Name, line: line, activeLow: p.ActiveLow})
		board.closers = append(board.closers, line.Close)
	}

	for _, p := range spec.Outputs {
		opts := []gpiocdev.LineReqOption{
			gpiocdev.AsOutput(level(false, p.ActiveLow)),
			gpiocdev.WithConsumer(spec.Consumer),
		}
		line, err := requestLine(spec, p, opts, logger)
		if err != nil {
			board.Close()
			return nil, err
		}
		board.AddOutput(p.Name, &LineOutput{name: p.Name, line: line, activeLow: p.ActiveLow})
		board.closers = append(board.closers, line.Close)
	}

	logger.Info().
		Str("chip", spec.Chip).
		Int("inputs", len(spec.Inputs)).
		Int("outputs", len(spec.Outputs)).
		Msg("GPIO lines requested")

	return board, nil
}

// requestLine retries while the line is busy; a missing chip fails immediately
func requestLine(spec BoardSpec, p PinSpec, opts []gpiocdev.LineReqOption, logger zerolog.Logger) (*gpiocdev.Line, error) {
	var line *gpiocdev.Line

	operation := func() error {
		l, err := gpiocdev.RequestLine(spec.Chip, p.Offset, opts...)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return backoff.Permanent(err)
			}
			logger.Warn().Err(err).Str("line", p.Name).Int("offset", p.Offset).Msg("GPIO line request failed, retrying")
			return err
		}
		line = l
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = spec.RequestTimeout
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 5 * time.Second
	}

	if err := backoff.Retry(operation, bo); err != nil {
		return nil, fmt.Errorf("request %s line %d on %s: %w", p.Name, p.Offset, spec.Chip, err)
	}
	return line, nil
}
