package control

import (
	"context"
	"sync"
	"time"

	"github.com/afroash/storm-antenna/internal/metrics"
	"github.com/afroash/storm-antenna/internal/models"
	"github.com/rs/zerolog"
)

// SnapshotReader captures sensor snapshots
type SnapshotReader interface {
	Read(ctx context.Context) (models.SensorSnapshot, error)
	HasClimate() bool
	HasClouds() bool
}

// CycleSink receives every record the controller produces. Implementations
// must not block for long; the controller calls them with its lock held.
type CycleSink interface {
	Record(rec *models.CycleRecord)
}

// CommandSink receives every control command outcome
type CommandSink interface {
	RecordCommand(rec *models.CommandRecord)
}

// Controller runs decision cycles and control commands one at a time
type Controller struct {
	mu         sync.Mutex
	reader     SnapshotReader
	applier    *Applier
	overrides  *OverrideStore
	thresholds models.Thresholds
	device     *models.DeviceInfo
	sinks      []CycleSink
	commands   []CommandSink
	last       *models.CycleRecord
	logger     zerolog.Logger
}

// NewController wires the classifier, engine and applier together
func NewController(reader SnapshotReader, applier *Applier, overrides *OverrideStore, thresholds models.Thresholds, device *models.DeviceInfo, logger zerolog.Logger) *Controller {
	return &Controller{
		reader:     reader,
		applier:    applier,
		overrides:  overrides,
		thresholds: thresholds,
		device:     device,
		logger:     logger,
	}
}

// AddSink registers a record consumer. Call before serving.
func (c *Controller) AddSink(s CycleSink) {
	c.sinks = append(c.sinks, s)
}

// AddCommandSink registers a command consumer. Call before serving.
func (c *Controller) AddCommandSink(s CommandSink) {
	c.commands = append(c.commands, s)
}

// Device returns the controller identity
func (c *Controller) Device() *models.DeviceInfo {
	return c.device
}

// Thresholds returns the classifier bounds in use
func (c *Controller) Thresholds() models.Thresholds {
	return c.thresholds
}

// Channels returns the wired channels
func (c *Controller) Channels() []models.Channel {
	return c.applier.Channels()
}

// Overrides returns the current override flags
func (c *Controller) Overrides() models.OverrideState {
	return c.overrides.Get()
}

// Status returns a copy of the most recent record, or nil before the first cycle
func (c *Controller) Status() *models.CycleRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last.Copy()
}

// Cycle reads the sensors, decides and applies the plan to non-overridden channels.
// Sensor and actuator faults end up in the record; the cycle itself never fails.
func (c *Controller) Cycle(ctx context.Context) *models.CycleRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	rec := c.runCycle(ctx)
	metrics.CycleLatency.Observe(time.Since(start).Seconds())

	c.publish(rec)
	return rec.Copy()
}

func (c *Controller) runCycle(ctx context.Context) *models.CycleRecord {
	snap, err := c.reader.Read(ctx)
	relay := RelayReadback{Connected: snap.AntennaConnected, Known: true}
	if err != nil {
		metrics.SensorFaults.WithLabelValues("inputs").Inc()
		c.logger.Error().Err(err).Msg("sensor read failed, falling back to antenna off")
		snap = models.FailSafeSnapshot(c.device.SinceStart(), false, err)
		relay = RelayReadback{}
	}

	weather := c.assess(snap)
	overrides := c.overrides.Get()
	plan := Decide(snap, weather, overrides)

	rec := models.NewCycleRecord(models.RecordKindCycle, snap, weather, plan, overrides)
	if snap.Fault != "" {
		rec.Faults = append(rec.Faults, "sensor: "+snap.Fault)
	}
	if err := c.applier.ApplyAutomatic(plan, relay); err != nil {
		c.logger.Error().Err(err).Msg("applying plan failed")
		rec.Faults = append(rec.Faults, faultStrings(err)...)
	}

	c.observe(rec)
	c.logger.Debug().Msgf("cycle: %s", rec.String())
	return rec
}

func (c *Controller) assess(snap models.SensorSnapshot) models.WeatherAssessment {
	switch {
	case snap.Fault != "":
		return Classify(nil, nil, snap.Fault, c.thresholds)
	case c.reader.HasClimate():
		if !snap.HasClimate() {
			metrics.SensorFaults.WithLabelValues("climate").Inc()
		}
		return Classify(snap.Temperature, snap.Humidity, snap.WeatherDetail, c.thresholds)
	case c.reader.HasClouds():
		return FromCloudsSensor(snap.Clouds)
	default:
		return NoWeatherSensor()
	}
}

// Manual drives one channel and holds it until Reset
func (c *Controller) Manual(ctx context.Context, ch models.Channel, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.applier.ApplyManual(ch, on)
	c.command("manual", ch, on, err)
	if err != nil {
		return err
	}
	rec := c.derived(models.RecordKindManual)
	if ch == models.ChannelAntenna {
		rec.Snapshot.AntennaConnected = on
	}
	c.publish(rec)
	return nil
}

// Reset clears every override. The next cycle restores automatic states.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.applier.Reset()
	c.command("reset", "", false, nil)
	c.publish(c.derived(models.RecordKindReset))
}

// TestOutputs runs the on/off sequence across every output
func (c *Controller) TestOutputs(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info().Msg("testing all outputs")
	err := c.applier.TestSequence(ctx)
	c.command("test_outputs", "", false, err)
	if err == nil {
		c.publish(c.afterTest())
	}
	return err
}

// TestIndividual blinks each LED in turn
func (c *Controller) TestIndividual(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info().Msg("testing individual LEDs")
	err := c.applier.TestIndividual(ctx)
	c.command("test_individual", "", false, err)
	if err == nil {
		c.publish(c.afterTest())
	}
	return err
}

// Indicate forwards service health to the status LED
func (c *Controller) Indicate(ready bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applier.Indicate(ready)
}

// derived builds a record from the last cycle with the current overrides
func (c *Controller) derived(kind models.RecordKind) *models.CycleRecord {
	overrides := c.overrides.Get()
	if c.last == nil {
		return models.NewCycleRecord(kind, models.SensorSnapshot{Timestamp: c.device.SinceStart()}, NoWeatherSensor(), models.ActuatorPlan{}, overrides)
	}
	rec := models.NewCycleRecord(kind, c.last.Snapshot, c.last.Weather, c.last.Plan, overrides)
	rec.Snapshot = c.last.Copy().Snapshot
	return rec
}

// afterTest records the all-off state a completed output test leaves behind
func (c *Controller) afterTest() *models.CycleRecord {
	rec := c.derived(models.RecordKindTest)
	rec.Snapshot.AntennaConnected = false
	rec.Plan = models.ActuatorPlan{Reason: "output test completed"}
	return rec
}

func (c *Controller) publish(rec *models.CycleRecord) {
	c.last = rec
	for _, s := range c.sinks {
		s.Record(rec.Copy())
	}
}

func (c *Controller) command(name string, ch models.Channel, on bool, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ManualCommands.WithLabelValues(name, result).Inc()

	rec := models.NewCommandRecord(name, ch, on, err)
	for _, s := range c.commands {
		s.RecordCommand(rec)
	}
}

func (c *Controller) observe(rec *models.CycleRecord) {
	metrics.CyclesTotal.WithLabelValues(antennaLabel(rec.Plan.AntennaShouldConnect)).Inc()
	metrics.AntennaConnected.Set(metrics.BoolValue(rec.Snapshot.AntennaConnected))
	for _, ch := range models.AllChannels {
		metrics.OverrideActive.WithLabelValues(string(ch)).Set(metrics.BoolValue(rec.Overrides.Get(ch)))
	}
	if rec.Snapshot.HasClimate() {
		metrics.Temperature.Set(*rec.Snapshot.Temperature)
		metrics.Humidity.Set(*rec.Snapshot.Humidity)
	}
}

func antennaLabel(connect bool) string {
	if connect {
		return "connect"
	}
	return "disconnect"
}

// faultStrings flattens a joined error into one entry per fault
func faultStrings(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, faultStrings(e)...)
		}
		return out
	}
	return []string{err.Error()}
}
