// Package legacy reads the flat-file store that predates the SQLite
// schema. The file is only ever read; deleting it is left to the user
// so a failed migration can always be retried.
package legacy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

type Intake struct {
	Name    string    `json:"name"`
	Amount  float64   `json:"amount"`
	Units   string    `json:"units"`
	Time    time.Time `json:"time"`
	GoalMet bool      `json:"goalmet"`
}

type Goal struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Dosage      float64  `json:"dosage"`
	Units       string   `json:"units"`
	Frequency   string   `json:"frequency"` // once | twice | three-times
	Times       []string `json:"times"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Active      bool     `json:"active"`
	Completed   bool     `json:"completed"`
}

type Store struct {
	Intakes []Intake `json:"intakes"`
	Goals   []Goal   `json:"goals"`
}

// Load reads the legacy store. A missing file returns (nil, nil): there
// is simply nothing to migrate.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read legacy store %s: %w", path, err)
	}
	var store Store
	if err := json.Unmarshal(raw, &store); err != nil {
		return nil, fmt.Errorf("decode legacy store %s: %w", path, err)
	}
	return &store, nil
}

// FrequencyCount maps the legacy word form onto a per-day count.
func FrequencyCount(word string) (int, error) {
	switch strings.TrimSpace(strings.ToLower(word)) {
	case "", "once", "1":
		return 1, nil
	case "twice", "2":
		return 2, nil
	case "three-times", "thrice", "3":
		return 3, nil
	default:
		return 0, fmt.Errorf("unknown legacy frequency %q", word)
	}
}
