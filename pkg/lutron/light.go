package lutron

import (
	"context"
	"fmt"
	"sync"
)

// MaxLightBrightness is the top of the 0-255 brightness scale used by
// home automation front ends.
const MaxLightBrightness = 255

// LevelController is the part of Session a Light needs.
type LevelController interface {
	SetLevel(ctx context.Context, zone, brightness, fadeSeconds int) error
	QueryLevel(ctx context.Context, zone int) (float64, error)
}

// Light is a dimmable zone with a name and a cached on/off state.
// The cache only changes when the hub acknowledges a command or answers a
// query.
type Light struct {
	Name string
	Zone int

	ctrl LevelController

	mu         sync.Mutex
	on         bool
	brightness int
}

// NewLight returns a light for zone controlled through ctrl.
func NewLight(ctrl LevelController, name string, zone int) *Light {
	return &Light{Name: name, Zone: zone, ctrl: ctrl}
}

// IsOn reports the last known on/off state.
func (l *Light) IsOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// Brightness returns the last known brightness on the 0-255 scale, or 0
// while the light is off.
func (l *Light) Brightness() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.on {
		return 0
	}
	return l.brightness
}

// TurnOn fades the light to brightness (0-255) over transitionSeconds.
func (l *Light) TurnOn(ctx context.Context, brightness, transitionSeconds int) error {
	if l.Zone < 1 {
		return fmt.Errorf("%w: light %q has no zone", ErrInvalidZone, l.Name)
	}
	if brightness < 0 || brightness > MaxLightBrightness {
		return fmt.Errorf("%w: %d out of 0-255", ErrInvalidBrightness, brightness)
	}

	if err := l.ctrl.SetLevel(ctx, l.Zone, ToPercent(brightness), transitionSeconds); err != nil {
		return err
	}

	l.mu.Lock()
	l.on = true
	l.brightness = brightness
	l.mu.Unlock()
	return nil
}

// TurnOff fades the light to 0 over transitionSeconds.
func (l *Light) TurnOff(ctx context.Context, transitionSeconds int) error {
	if l.Zone < 1 {
		return fmt.Errorf("%w: light %q has no zone", ErrInvalidZone, l.Name)
	}

	if err := l.ctrl.SetLevel(ctx, l.Zone, 0, transitionSeconds); err != nil {
		return err
	}

	l.mu.Lock()
	l.on = false
	l.brightness = 0
	l.mu.Unlock()
	return nil
}

// Update refreshes the cached state from the hub.
func (l *Light) Update(ctx context.Context) error {
	if l.Zone < 1 {
		return fmt.Errorf("%w: light %q has no zone", ErrInvalidZone, l.Name)
	}

	level, err := l.ctrl.QueryLevel(ctx, l.Zone)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.brightness = FromPercent(level)
	l.on = level > 0
	l.mu.Unlock()
	return nil
}

// ToPercent converts 0-255 brightness to the hub's 0-100 scale,
// truncating.
func ToPercent(brightness int) int {
	return int(float64(brightness) / MaxLightBrightness * MaxBrightness)
}

// FromPercent converts a hub level (0-100) to 0-255, truncating.
func FromPercent(level float64) int {
	return int(level / MaxBrightness * MaxLightBrightness)
}
