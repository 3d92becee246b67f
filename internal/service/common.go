package service

import (
	"fmt"
	"strings"
	"time"
)

func validatePositiveFloat(name string, value float64) error {
	if value <= 0 {
		return fmt.Errorf("%s must be > 0", name)
	}
	return nil
}

func normalizeName(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}

// parseTimeOfDay validates an "HH:MM" occurrence slot.
func parseTimeOfDay(value string) (hour, minute int, err error) {
	t, perr := time.Parse("15:04", strings.TrimSpace(value))
	if perr != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q, expected HH:MM", value)
	}
	return t.Hour(), t.Minute(), nil
}

func validateDate(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", name, value)
	}
	return nil
}
