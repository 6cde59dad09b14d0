// Package debug provides the operator-facing debug surface: named telemetry
// variables and a table of callable functions.
package debug

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/chamburr/soccer/internal/log"
)

// Enabled mirrors every variable update to the debug log.
// Use the --debug flag to enable; it is very verbose at control rates.
var Enabled bool

// Reporter receives named telemetry values. Implementations must not block.
type Reporter interface {
	Set(name string, value any)
}

// Nop discards everything.
type Nop struct{}

// Set does nothing.
func (Nop) Set(string, any) {}

// Variables is the latest value of every named telemetry variable.
type Variables struct {
	mu     sync.RWMutex
	values map[string]string
	seq    uint64
}

// NewVariables creates an empty variable table.
func NewVariables() *Variables {
	return &Variables{values: make(map[string]string)}
}

// Set formats value and stores it under name.
func (v *Variables) Set(name string, value any) {
	s := format(value)

	v.mu.Lock()
	v.values[name] = s
	v.seq++
	v.mu.Unlock()

	if Enabled {
		log.Debug("variable", "name", name, "value", s)
	}
}

// Get returns one variable.
func (v *Variables) Get(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s, ok := v.values[name]
	return s, ok
}

// Snapshot copies the table. The sequence number increases on every Set,
// so pollers can skip unchanged snapshots.
func (v *Variables) Snapshot() (map[string]string, uint64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]string, len(v.values))
	for k, s := range v.values {
		out[k] = s
	}
	return out, v.seq
}

// Names returns the variable names in sorted order.
func (v *Variables) Names() []string {
	v.mu.RLock()
	names := make([]string, 0, len(v.values))
	for k := range v.values {
		names = append(names, k)
	}
	v.mu.RUnlock()
	sort.Strings(names)
	return names
}

func format(value any) string {
	switch x := value.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 2, 32)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
