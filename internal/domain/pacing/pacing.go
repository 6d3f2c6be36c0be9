// Package pacing spreads campaign sends over time so the WhatsApp
// provider sees a human-looking rate instead of a burst.
package pacing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/zaplinehq/zapline/internal/domain"
)

// Profile is a named inter-send delay policy. Delay constants are
// policy knobs; only the ordering and window invariants are guaranteed.
type Profile struct {
	name   string
	delay  time.Duration
	jitter float64 // fraction of delay added as random extra, [0, 1)
}

// NewProfile creates a pacing profile. delay must be positive so that
// schedules are strictly increasing.
func NewProfile(name string, delay time.Duration, jitter float64) (Profile, error) {
	if name == "" {
		return Profile{}, fmt.Errorf("profile name is required")
	}
	if delay <= 0 {
		return Profile{}, fmt.Errorf("profile %s: delay must be positive, got %s", name, delay)
	}
	if jitter < 0 || jitter >= 1 {
		return Profile{}, fmt.Errorf("profile %s: jitter must be in [0, 1), got %g", name, jitter)
	}
	return Profile{name: name, delay: delay, jitter: jitter}, nil
}

// Name returns the profile name.
func (p Profile) Name() string { return p.name }

// Delay returns the base inter-send delay.
func (p Profile) Delay() time.Duration { return p.delay }

// Jitter returns the jitter fraction.
func (p Profile) Jitter() float64 { return p.jitter }

// Window is the allowed sending window of a calendar day, tenant-local.
// Sends are permitted in [openHour:00, closeHour:00).
type Window struct {
	openHour  int
	closeHour int
	loc       *time.Location
}

// NewWindow creates a sending window.
func NewWindow(openHour, closeHour int, loc *time.Location) (Window, error) {
	if openHour < 0 || closeHour > 24 || openHour >= closeHour {
		return Window{}, fmt.Errorf("invalid window hours [%d, %d)", openHour, closeHour)
	}
	if loc == nil {
		loc = time.Local
	}
	return Window{openHour: openHour, closeHour: closeHour, loc: loc}, nil
}

// Contains reports whether t falls inside the sending window.
func (w Window) Contains(t time.Time) bool {
	lt := t.In(w.loc)
	openAt := time.Date(lt.Year(), lt.Month(), lt.Day(), w.openHour, 0, 0, 0, w.loc)
	closeAt := time.Date(lt.Year(), lt.Month(), lt.Day(), w.closeHour, 0, 0, 0, w.loc)
	return !lt.Before(openAt) && lt.Before(closeAt)
}

// NextOpen returns the next instant inside the window at or after t.
// Inside the window it returns t unchanged.
func (w Window) NextOpen(t time.Time) time.Time {
	lt := t.In(w.loc)
	openAt := time.Date(lt.Year(), lt.Month(), lt.Day(), w.openHour, 0, 0, 0, w.loc)
	closeAt := time.Date(lt.Year(), lt.Month(), lt.Day(), w.closeHour, 0, 0, 0, w.loc)
	switch {
	case lt.Before(openAt):
		return openAt
	case lt.Before(closeAt):
		return lt
	default:
		return openAt.AddDate(0, 0, 1)
	}
}

// Scheduler assigns not-before timestamps to a batch of sends.
type Scheduler struct {
	window   Window
	profiles map[string]Profile
	rnd      *rand.Rand
}

// NewScheduler creates a scheduler over the given window and profiles.
func NewScheduler(window Window, profiles map[string]Profile) *Scheduler {
	return NewSeededScheduler(window, profiles, time.Now().UnixNano())
}

// NewSeededScheduler creates a scheduler with a fixed jitter seed, for
// deterministic tests.
func NewSeededScheduler(window Window, profiles map[string]Profile, seed int64) *Scheduler {
	return &Scheduler{
		window:   window,
		profiles: profiles,
		rnd:      rand.New(rand.NewSource(seed)),
	}
}

// KnownProfile reports whether a profile name is configured.
func (s *Scheduler) KnownProfile(name string) bool {
	_, ok := s.profiles[name]
	return ok
}

// FirstSlot snaps now forward to the next instant inside the sending
// window. Inside the window it returns now unchanged.
func (s *Scheduler) FirstSlot(now time.Time) time.Time {
	return s.window.NextOpen(now)
}

// Schedule produces exactly count not-before timestamps for the named
// profile, starting at or after startAt. The sequence is strictly
// increasing, spaced by the profile delay plus jitter, and every entry
// lies inside the sending window; entries that would fall outside roll
// over to the next opening.
func (s *Scheduler) Schedule(count int, profile string, startAt time.Time) ([]time.Time, error) {
	p, ok := s.profiles[profile]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPacingProfile, profile)
	}
	if count <= 0 {
		return nil, nil
	}

	slots := make([]time.Time, 0, count)
	cur := s.window.NextOpen(startAt)
	slots = append(slots, cur)

	for len(slots) < count {
		cur = cur.Add(s.step(p))
		if !s.window.Contains(cur) {
			cur = s.window.NextOpen(cur)
		}
		slots = append(slots, cur)
	}
	return slots, nil
}

// step is the base delay plus non-negative jitter, so consecutive slots
// always move forward.
func (s *Scheduler) step(p Profile) time.Duration {
	d := p.delay
	if p.jitter > 0 {
		d += time.Duration(s.rnd.Float64() * p.jitter * float64(p.delay))
	}
	return d
}
