// Package sensor holds the values published by the hardware decoders and
// the registry the display layer reads them from.
package sensor

import (
	"fmt"
	"sync"
)

// Type represents the kind of quantity a sensor reports
type Type string

const (
	Temperature Type = "temperature"
	Clock       Type = "clock"
)

// ParameterDescription describes a user-adjustable sensor parameter
type ParameterDescription struct {
	Name        string  `json:"name"`
	Unit        string  `json:"unit"`
	Description string  `json:"description"`
	Default     float32 `json:"default"`
}

// Parameter is the current value of a described parameter
type Parameter struct {
	ParameterDescription
	Value     float32 `json:"value"`
	IsDefault bool    `json:"is_default"`
}

// Sensor is one published channel. Values are guarded because the poller
// writes them while the display layer reads.
type Sensor struct {
	mu         sync.RWMutex
	hardware   string
	hwIndex    int
	typ        Type
	index      int
	name       string
	value      *float32
	parameters []Parameter
}

// Snapshot is a point-in-time copy of a sensor
type Snapshot struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Type       Type               `json:"type"`
	Index      int                `json:"index"`
	Value      *float32           `json:"value"`
	Parameters map[string]float32 `json:"parameters,omitempty"`
}

// New creates a sensor with an unknown value and every parameter at its default
func New(hardware string, hwIndex int, typ Type, index int, name string, params ...ParameterDescription) *Sensor {
	s := &Sensor{
		hardware: hardware,
		hwIndex:  hwIndex,
		typ:      typ,
		index:    index,
		name:     name,
	}
	for _, p := range params {
		s.parameters = append(s.parameters, Parameter{ParameterDescription: p, Value: p.Default, IsDefault: true})
	}
	return s
}

// ID returns the identifier, e.g. /intelcpu/0/temperature/1
func (s *Sensor) ID() string {
	return fmt.Sprintf("/%s/%d/%s/%d", s.hardware, s.hwIndex, s.typ, s.index)
}

// Hardware returns the hardware class the sensor belongs to
func (s *Sensor) Hardware() string { return s.hardware }

// Name returns the display name
func (s *Sensor) Name() string { return s.name }

// Type returns the sensor kind
func (s *Sensor) Type() Type { return s.typ }

// Index returns the sensor index within its hardware and kind
func (s *Sensor) Index() int { return s.index }

// Value returns the current value; ok is false while unknown
func (s *Sensor) Value() (float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.value == nil {
		return 0, false
	}
	return *s.value, true
}

// SetValue stores a known value
func (s *Sensor) SetValue(v float32) {
	s.mu.Lock()
	s.value = &v
	s.mu.Unlock()
}

// SetUnknown clears the value
func (s *Sensor) SetUnknown() {
	s.mu.Lock()
	s.value = nil
	s.mu.Unlock()
}

// Parameter returns the current value of the named parameter, or 0 if absent
func (s *Sensor) Parameter(name string) float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.parameters {
		if p.Name == name {
			return p.Value
		}
	}
	return 0
}

// SetParameter overrides the named parameter
func (s *Sensor) SetParameter(name string, v float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.parameters {
		if s.parameters[i].Name == name {
			s.parameters[i].Value = v
			s.parameters[i].IsDefault = v == s.parameters[i].Default
			return nil
		}
	}
	return fmt.Errorf("sensor %s has no parameter %q", s.ID(), name)
}

// ResetParameter restores the named parameter to its default
func (s *Sensor) ResetParameter(name string) error {
	s.mu.RLock()
	var def float32
	found := false
	for _, p := range s.parameters {
		if p.Name == name {
			def, found = p.Default, true
		}
	}
	s.mu.RUnlock()
	if !found {
		return fmt.Errorf("sensor %s has no parameter %q", s.ID(), name)
	}
	return s.SetParameter(name, def)
}

// Parameters returns a copy of the parameter list
func (s *Sensor) Parameters() []Parameter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Parameter, len(s.parameters))
	copy(out, s.parameters)
	return out
}

// Snapshot copies the sensor state
func (s *Sensor) Snapshot() Snapshot {
	snap := Snapshot{
		ID:    s.ID(),
		Name:  s.name,
		Type:  s.typ,
		Index: s.index,
	}
	if v, ok := s.Value(); ok {
		snap.Value = &v
	}
	for _, p := range s.Parameters() {
		if snap.Parameters == nil {
			snap.Parameters = map[string]float32{}
		}
		snap.Parameters[p.Name] = p.Value
	}
	return snap
}
