package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// fadeValue is a fade time in whole seconds. It accepts plain seconds
// ("1800"), Go durations ("30m", "1h30m") and clock notation ("30:00",
// "1:30:00").
type fadeValue int

var _ pflag.Value = (*fadeValue)(nil)

func newFadeValue(seconds int) *fadeValue {
	v := fadeValue(seconds)
	return &v
}

func (f *fadeValue) String() string {
	return strconv.Itoa(int(*f))
}

func (f *fadeValue) Set(s string) error {
	secs, err := parseFade(s)
	if err != nil {
		return err
	}
	*f = fadeValue(secs)
	return nil
}

func (f *fadeValue) Type() string {
	return "fade"
}

func (f *fadeValue) Seconds() int {
	return int(*f)
}

func parseFade(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty fade time")
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("fade time %d must not be negative", n)
		}
		return n, nil
	}

	if strings.Contains(s, ":") {
		return parseClock(s)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid fade time %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("fade time %s must not be negative", d)
	}
	return int(d / time.Second), nil
}

// parseClock parses MM:SS or HH:MM:SS.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid fade time %q", s)
	}

	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid fade time %q", s)
		}
		// Minutes and seconds after the leading field stay below 60.
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("invalid fade time %q", s)
		}
		total = total*60 + n
	}
	return total, nil
}
