package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/afroash/storm-antenna/internal/hardware"
	"github.com/afroash/storm-antenna/internal/metrics"
	"github.com/afroash/storm-antenna/internal/models"
	"github.com/rs/zerolog"
)

// ErrUnknownChannel is returned for a channel the board does not wire
var ErrUnknownChannel = errors.New("unknown channel")

// Blink timings used by the output tests and the status indicator
const (
	DefaultTestOnDuration  = 1 * time.Second
	DefaultTestOffDuration = 500 * time.Millisecond

	IndividualBlinks   = 3
	IndividualInterval = 500 * time.Millisecond

	FailureBlinks   = 5
	FailureInterval = 200 * time.Millisecond
)

// RelayReadback is the relay state observed before a cycle. Known is false
// when the readback failed, in which case the relay is always written.
type RelayReadback struct {
	Connected bool
	Known     bool
}

// ApplierOptions configures test timings
type ApplierOptions struct {
	TestOnDuration  time.Duration
	TestOffDuration time.Duration

	// Sleep replaces time.Sleep, mainly for tests
	Sleep func(time.Duration)
}

// Applier drives outputs from plans and manual commands, honouring overrides
type Applier struct {
	outputs   map[models.Channel]hardware.Output
	status    hardware.Output // nil unless a status LED is wired
	overrides *OverrideStore
	opts      ApplierOptions
	logger    zerolog.Logger
}

// NewApplier binds the applier to the channels wired on the board
func NewApplier(board *hardware.Board, overrides *OverrideStore, opts ApplierOptions, logger zerolog.Logger) *Applier {
	if opts.TestOnDuration <= 0 {
		opts.TestOnDuration = DefaultTestOnDuration
	}
	if opts.TestOffDuration <= 0 {
		opts.TestOffDuration = DefaultTestOffDuration
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}

	a := &Applier{
		outputs:   make(map[models.Channel]hardware.Output),
		overrides: overrides,
		opts:      opts,
		logger:    logger,
	}
	for _, ch := range models.AllChannels {
		if out, ok := board.Output(string(ch)); ok {
			a.outputs[ch] = out
		}
	}
	a.status, _ = board.Output(hardware.OutputStatusLED)
	return a
}

// Channels returns the wired channels in display order
func (a *Applier) Channels() []models.Channel {
	var chs []models.Channel
	for _, ch := range models.AllChannels {
		if _, ok := a.outputs[ch]; ok {
			chs = append(chs, ch)
		}
	}
	return chs
}

// Has reports whether a channel is wired
func (a *Applier) Has(ch models.Channel) bool {
	_, ok := a.outputs[ch]
	return ok
}

// ApplyAutomatic writes the plan to every channel that is not overridden.
// The relay is written only when the target differs from the readback;
// LEDs are rewritten every time. A failed write does not stop the others.
func (a *Applier) ApplyAutomatic(plan models.ActuatorPlan, relay RelayReadback) error {
	overrides := a.overrides.Get()
	var errs []error

	for _, ch := range a.Channels() {
		if overrides.Get(ch) {
			continue
		}
		target := plan.Target(ch)
		if ch == models.ChannelAntenna && relay.Known && relay.Connected == target {
			continue
		}
		if err := a.write(ch, target); err != nil {
			errs = append(errs, err)
			continue
		}
		if ch == models.ChannelAntenna {
			a.logger.Info().
				Bool("connected", target).
				Str("reason", plan.Reason).
				Msg("antenna switched")
		}
	}
	return errors.Join(errs...)
}

// ApplyManual drives one channel and marks it overridden. The antenna channel
// also drives and overrides the on-air LED. Flags are set only once every
// write succeeded; if the linked LED write fails the relay is put back.
func (a *Applier) ApplyManual(ch models.Channel, on bool) error {
	if _, ok := a.outputs[ch]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}
	_, linked := a.outputs[models.ChannelOnAirLED]
	linked = linked && ch == models.ChannelAntenna

	var prev bool
	var prevErr error
	if linked {
		prev, prevErr = a.outputs[ch].State()
	}
	if err := a.write(ch, on); err != nil {
		return err
	}
	if linked {
		if err := a.write(models.ChannelOnAirLED, on); err != nil {
			if prevErr == nil && prev != on {
				if rerr := a.write(ch, prev); rerr != nil {
					return errors.Join(err, fmt.Errorf("restoring %s: %w", ch, rerr))
				}
			}
			return err
		}
	}

	a.overrides.SetFlag(ch)
	if ch == models.ChannelAntenna {
		a.overrides.SetFlag(models.ChannelOnAirLED)
	}

	a.logger.Info().
		Str("channel", string(ch)).
		Bool("on", on).
		Msg("manual override applied")
	return nil
}

// Reset clears every override; outputs are left as they are until the next cycle
func (a *Applier) Reset() {
	a.overrides.ResetAll()
	a.logger.Info().Msg("all overrides reset, automatic mode restored")
}

// TestSequence turns each wired output on then off in turn, ending with all of
// them off. Override flags are neither consulted nor changed.
func (a *Applier) TestSequence(ctx context.Context) error {
	order := []models.Channel{
		models.ChannelStormLED,
		models.ChannelCloudsLED,
		models.ChannelOnAirLED,
		models.ChannelAntenna,
	}

	var errs []error
	for _, ch := range order {
		if _, ok := a.outputs[ch]; !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		a.logger.Debug().Str("channel", string(ch)).Msg("testing output")
		if err := a.write(ch, true); err != nil {
			errs = append(errs, err)
		}
		a.opts.Sleep(a.opts.TestOnDuration)
		if err := a.write(ch, false); err != nil {
			errs = append(errs, err)
		}
		a.opts.Sleep(a.opts.TestOffDuration)
	}

	if a.status != nil && ctx.Err() == nil {
		err := hardware.Blink(a.status, 1, a.opts.TestOnDuration, a.opts.TestOffDuration, a.opts.Sleep)
		if err != nil {
			errs = append(errs, fmt.Errorf("status_led: %w", err))
		}
	}
	return errors.Join(errs...)
}

// TestIndividual blinks each wired LED three times, one LED at a time
func (a *Applier) TestIndividual(ctx context.Context) error {
	var errs []error
	for _, ch := range []models.Channel{models.ChannelStormLED, models.ChannelCloudsLED, models.ChannelOnAirLED} {
		out, ok := a.outputs[ch]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := hardware.Blink(out, IndividualBlinks, IndividualInterval, IndividualInterval, a.opts.Sleep); err != nil {
			metrics.ActuatorWrites.WithLabelValues(string(ch), "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}

// Indicate shows service health on the status LED: steady on when ready,
// five quick flashes on failure. Boards without the LED ignore it.
func (a *Applier) Indicate(ready bool) error {
	if a.status == nil {
		return nil
	}
	if ready {
		return a.status.Set(true)
	}
	return hardware.Blink(a.status, FailureBlinks, FailureInterval, FailureInterval, a.opts.Sleep)
}

func (a *Applier) write(ch models.Channel, on bool) error {
	if err := a.outputs[ch].Set(on); err != nil {
		metrics.ActuatorWrites.WithLabelValues(string(ch), "error").Inc()
		a.logger.Error().Err(err).Str("channel", string(ch)).Bool("on", on).Msg("output write failed")
		return fmt.Errorf("%s: %w", ch, err)
	}
	metrics.ActuatorWrites.WithLabelValues(string(ch), "ok").Inc()
	return nil
}
