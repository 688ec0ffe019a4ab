// Package pomodoro implements the work/break focus timer shown next to the
// task list.
package pomodoro

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type Mode string

const (
	Work       Mode = "work"
	ShortBreak Mode = "shortBreak"
	LongBreak  Mode = "longBreak"
)

func (m Mode) Valid() bool {
	switch m {
	case Work, ShortBreak, LongBreak:
		return true
	}
	return false
}

// Settings are lengths in minutes.
type Settings struct {
	WorkTime              int `json:"workTime" yaml:"workTime"`
	ShortBreakTime        int `json:"shortBreakTime" yaml:"shortBreakTime"`
	LongBreakTime         int `json:"longBreakTime" yaml:"longBreakTime"`
	CyclesBeforeLongBreak int `json:"cyclesBeforeLongBreak" yaml:"cyclesBeforeLongBreak"`
}

func DefaultSettings() Settings {
	return Settings{WorkTime: 25, ShortBreakTime: 5, LongBreakTime: 15, CyclesBeforeLongBreak: 4}
}

func (s Settings) Validate() error {
	if s.WorkTime < 1 || s.ShortBreakTime < 1 || s.LongBreakTime < 1 || s.CyclesBeforeLongBreak < 1 {
		return errors.New("pomodoro settings must all be at least 1")
	}
	return nil
}

// Merge overlays the non-zero fields of o onto s.
func (s Settings) Merge(o Settings) Settings {
	if o.WorkTime != 0 {
		s.WorkTime = o.WorkTime
	}
	if o.ShortBreakTime != 0 {
		s.ShortBreakTime = o.ShortBreakTime
	}
	if o.LongBreakTime != 0 {
		s.LongBreakTime = o.LongBreakTime
	}
	if o.CyclesBeforeLongBreak != 0 {
		s.CyclesBeforeLongBreak = o.CyclesBeforeLongBreak
	}
	return s
}

// Length is the duration of a session in mode m.
func (s Settings) Length(m Mode) time.Duration {
	switch m {
	case ShortBreak:
		return time.Duration(s.ShortBreakTime) * time.Minute
	case LongBreak:
		return time.Duration(s.LongBreakTime) * time.Minute
	default:
		return time.Duration(s.WorkTime) * time.Minute
	}
}

// State is a snapshot of the timer.
type State struct {
	Mode      Mode          `json:"mode"`
	Remaining time.Duration `json:"remaining"`
	Active    bool          `json:"active"`
	Cycles    int           `json:"cycles"`
	Settings  Settings      `json:"settings"`
}

// Completion reports a finished session and the mode that follows it.
type Completion struct {
	Finished Mode
	Next     Mode
	Cycles   int
}

// Timer is safe for concurrent use.
type Timer struct {
	mu        sync.Mutex
	settings  Settings
	mode      Mode
	remaining time.Duration
	active    bool
	cycles    int
}

func New(settings Settings) (*Timer, error) {
	settings = DefaultSettings().Merge(settings)
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Timer{settings: settings, mode: Work, remaining: settings.Length(Work)}, nil
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{Mode: t.mode, Remaining: t.remaining, Active: t.active, Cycles: t.cycles, Settings: t.settings}
}

// Toggle starts or pauses the countdown.
func (t *Timer) Toggle() {
	t.mu.Lock()
	t.active = !t.active
	t.mu.Unlock()
}

// Reset stops the timer and refills the current mode.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
	t.remaining = t.settings.Length(t.mode)
}

func (t *Timer) SwitchMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("unknown pomodoro mode %q", m)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
	t.mode = m
	t.remaining = t.settings.Length(m)
	return nil
}

// UpdateSettings merges s into the current settings and resets the timer.
func (t *Timer) UpdateSettings(s Settings) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	merged := t.settings.Merge(s)
	if err := merged.Validate(); err != nil {
		return err
	}
	t.settings = merged
	t.active = false
	t.remaining = merged.Length(t.mode)
	return nil
}

// Tick counts d down while active. When the session runs out the timer
// stops, moves to the following mode and returns the completion.
func (t *Timer) Tick(d time.Duration) *Completion {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return nil
	}
	t.remaining -= d
	if t.remaining > 0 {
		return nil
	}

	c := &Completion{Finished: t.mode}
	t.active = false
	if t.mode == Work {
		t.cycles++
		if t.cycles%t.settings.CyclesBeforeLongBreak == 0 {
			t.mode = LongBreak
		} else {
			t.mode = ShortBreak
		}
	} else {
		t.mode = Work
	}
	t.remaining = t.settings.Length(t.mode)
	c.Next = t.mode
	c.Cycles = t.cycles
	return c
}

// Clock produces ticks; tests supply a manual one.
type Clock interface {
	Ticker(d time.Duration) (<-chan time.Time, func())
}

type realClock struct{}

func (realClock) Ticker(d time.Duration) (<-chan time.Time, func()) {
	tk := time.NewTicker(d)
	return tk.C, tk.Stop
}

// RealClock ticks with the wall clock.
var RealClock Clock = realClock{}

// Run ticks the timer once per second until ctx is done, sending every
// completion on done.
func (t *Timer) Run(ctx context.Context, clock Clock, done chan<- Completion) error {
	ticks, stop := clock.Ticker(time.Second)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			if c := t.Tick(time.Second); c != nil {
				select {
				case done <- *c:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
