package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordKind tells what produced a CycleRecord.
type RecordKind string

const (
	RecordKindCycle  RecordKind = "cycle"
	RecordKindManual RecordKind = "manual"
	RecordKindReset  RecordKind = "reset"
	RecordKindTest   RecordKind = "test"
)

// CycleRecord is the full outcome of one decision cycle or control command.
// It is what the status page, the JSON API, the stream and the history store see.
type CycleRecord struct {
	ID         string            `json:"id"`
	Kind       RecordKind        `json:"kind"`
	RecordedAt time.Time         `json:"recorded_at"`
	Snapshot   SensorSnapshot    `json:"snapshot"`
	Weather    WeatherAssessment `json:"weather"`
	Plan       ActuatorPlan      `json:"plan"`
	Overrides  OverrideState     `json:"overrides"`
	Faults     []string          `json:"faults,omitempty"`
}

// NewCycleRecord stamps a record with a fresh ID and the current time.
func NewCycleRecord(kind RecordKind, snapshot SensorSnapshot, weather WeatherAssessment, plan ActuatorPlan, overrides OverrideState) *CycleRecord {
	return &CycleRecord{
		ID:         uuid.NewString(),
		Kind:       kind,
		RecordedAt: time.Now().UTC(),
		Snapshot:   snapshot,
		Weather:    weather,
		Plan:       plan,
		Overrides:  overrides,
	}
}

// OnAir reports whether the station is on air. It follows AntennaState, so a
// manually held antenna reports the relay rather than the automatic decision.
func (r *CycleRecord) OnAir() bool {
	return r.AntennaState()
}

// Copy returns a deep copy of the record
func (r *CycleRecord) Copy() *CycleRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Snapshot.Temperature != nil {
		t := *r.Snapshot.Temperature
		c.Snapshot.Temperature = &t
	}
	if r.Snapshot.Humidity != nil {
		h := *r.Snapshot.Humidity
		c.Snapshot.Humidity = &h
	}
	if r.Faults != nil {
		c.Faults = append([]string(nil), r.Faults...)
	}
	return &c
}

func (r *CycleRecord) String() string {
	return fmt.Sprintf("%s %s [%s] antenna=%t reason=%q",
		r.Kind,
		r.RecordedAt.Format(time.RFC3339),
		r.Snapshot.String(),
		r.Plan.AntennaShouldConnect,
		r.Plan.Reason)
}

// CommandRecord is one accepted or rejected control command.
type CommandRecord struct {
	ID       string    `json:"id"`
	IssuedAt time.Time `json:"issued_at"`
	Command  string    `json:"command"`
	Channel  Channel   `json:"channel,omitempty"`
	State    bool      `json:"state"`
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
}

// NewCommandRecord creates a command record; err marks it failed.
func NewCommandRecord(command string, ch Channel, state bool, err error) *CommandRecord {
	rec := &CommandRecord{
		ID:       uuid.NewString(),
		IssuedAt: time.Now().UTC(),
		Command:  command,
		Channel:  ch,
		State:    state,
		OK:       err == nil,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// AntennaState is the relay state after the record was applied: the readback
// when the antenna is overridden, the plan otherwise.
func (r *CycleRecord) AntennaState() bool {
	if r.Overrides.Antenna {
		return r.Snapshot.AntennaConnected
	}
	return r.Plan.AntennaShouldConnect
}
