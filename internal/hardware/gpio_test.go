package hardware

import (
	"errors"
	"testing"
	"time"
)

func TestLevelPolarity(t *testing.T) {
	tests := []struct {
		name      string
		on        bool
		activeLow bool
		want      int
	}{
		{"relay on", true, false, 1},
		{"relay off", false, false, 0},
		{"led on is low", true, true, 0},
		{"led off is high", false, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := level(tt.on, tt.activeLow); got != tt.want {
				t.Errorf("level(%v, %v) = %d, want %d", tt.on, tt.activeLow, got, tt.want)
			}
			if got := logical(tt.want, tt.activeLow); got != tt.on {
				t.Errorf("logical(%d, %v) = %v, want %v", tt.want, tt.activeLow, got, tt.on)
			}
		})
	}
}

func TestSimBoard(t *testing.T) {
	sb := NewSimBoard([]string{InputPresence}, []string{OutputAntenna})

	in, ok := sb.Input(InputPresence)
	if !ok {
		t.Fatal("presence input not wired")
	}
	sb.Pin(InputPresence).Drive(true)
	v, err := in.Read()
	if err != nil || !v {
		t.Fatalf("Read() = %v, %v; want true, nil", v, err)
	}

	out, ok := sb.Output(OutputAntenna)
	if !ok {
		t.Fatal("antenna output not wired")
	}
	if err := out.Set(true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if state, _ := out.State(); !state {
		t.Error("State() should read back true")
	}
	if sb.Pin(OutputAntenna).Writes() != 1 {
		t.Errorf("Writes = %d, want 1", sb.Pin(OutputAntenna).Writes())
	}

	if _, ok := sb.Output(OutputOnAirLED); ok {
		t.Error("unwired output reported as present")
	}
}

func TestSimPin_Failures(t *testing.T) {
	sb := NewSimBoard([]string{InputStorm}, []string{OutputStormLED})

	sb.Pin(InputStorm).FailReads(errors.New("bus error"))
	in, _ := sb.Input(InputStorm)
	if _, err := in.Read(); !errors.Is(err, ErrInputRead) {
		t.Errorf("Read error = %v, want ErrInputRead", err)
	}

	sb.Pin(OutputStormLED).FailWrites(errors.New("line released"))
	out, _ := sb.Output(OutputStormLED)
	if err := out.Set(true); !errors.Is(err, ErrActuatorWrite) {
		t.Errorf("Set error = %v, want ErrActuatorWrite", err)
	}
}

func TestBlink(t *testing.T) {
	sb := NewSimBoard(nil, []string{OutputStatusLED})
	out, _ := sb.Output(OutputStatusLED)

	var slept []time.Duration
	sleep := func(d time.Duration) { slept = append(slept, d) }

	if err := Blink(out, 3, 200*time.Millisecond, 100*time.Millisecond, sleep); err != nil {
		t.Fatalf("Blink failed: %v", err)
	}

	history := sb.Pin(OutputStatusLED).History()
	want := []bool{true, false, true, false, true, false}
	if len(history) != len(want) {
		t.Fatalf("history = %v, want %v", history, want)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %v, want %v", i, history[i], want[i])
		}
	}
	if len(slept) != 6 || slept[0] != 200*time.Millisecond || slept[1] != 100*time.Millisecond {
		t.Errorf("unexpected sleeps: %v", slept)
	}
}

func TestBoard_Close(t *testing.T) {
	b := NewBoard()
	var closed []int
	b.closers = append(b.closers,
		func() error { closed = append(closed, 1); return nil },
		func() error { closed = append(closed, 2); return errors.New("busy") },
	)

	err := b.Close()
	if err == nil {
		t.Error("Close should surface closer errors")
	}
	if len(closed) != 2 || closed[0] != 2 || closed[1] != 1 {
		t.Errorf("closers ran in %v, want reverse order", closed)
	}
}
