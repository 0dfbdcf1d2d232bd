// Package telemetry is where components publish named numbers and flags for a dashboard. Sinks
// are passed to components explicitly.
package telemetry

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"go.viam.com/armctl/logging"
)

// Sink receives named values.
type Sink interface {
	PutNumber(key string, value float64)
	PutBool(key string, value bool)
}

// Table is an in-memory dashboard keeping the latest value of every key. It is safe for
// concurrent use.
type Table struct {
	mu      sync.RWMutex
	numbers map[string]float64
	bools   map[string]bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{numbers: map[string]float64{}, bools: map[string]bool{}}
}

// PutNumber implements Sink.
func (t *Table) PutNumber(key string, value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.numbers[key] = value
}

// PutBool implements Sink.
func (t *Table) PutBool(key string, value bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bools[key] = value
}

// Number returns the latest value published under key.
func (t *Table) Number(key string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.numbers[key]
	return v, ok
}

// Bool returns the latest flag published under key.
func (t *Table) Bool(key string) (bool, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.bools[key]
	return v, ok
}

// Keys returns every published key in sorted order.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := append(lo.Keys(t.numbers), lo.Keys(t.bools)...)
	sort.Strings(keys)
	return keys
}

type logSink struct {
	logger logging.Logger
}

// NewLogSink returns a sink that writes every value as a debug log line.
func NewLogSink(logger logging.Logger) Sink {
	return &logSink{logger: logger}
}

func (ls *logSink) PutNumber(key string, value float64) {
	ls.logger.Debugw("telemetry", "key", key, "value", value)
}

func (ls *logSink) PutBool(key string, value bool) {
	ls.logger.Debugw("telemetry", "key", key, "value", value)
}

type multiSink []Sink

// Multi fans every value out to each sink in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	return multiSink(lo.Filter(sinks, func(s Sink, _ int) bool { return s != nil }))
}

func (ms multiSink) PutNumber(key string, value float64) {
	for _, s := range ms {
		s.PutNumber(key, value)
	}
}

func (ms multiSink) PutBool(key string, value bool) {
	for _, s := range ms {
		s.PutBool(key, value)
	}
}

type discard struct{}

func (discard) PutNumber(string, float64) {}
func (discard) PutBool(string, bool)      {}

// Discard drops everything.
var Discard Sink = discard{}
