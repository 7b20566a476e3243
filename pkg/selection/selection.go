// Package selection holds the single active protocol index shared by the
// protocol table and the radial chart.
package selection

import (
	"encoding/json"
	"strconv"
)

// Index is an optional position into the protocol catalog.
type Index struct {
	value int
	set   bool
}

func None() Index {
	return Index{}
}

func At(i int) Index {
	return Index{value: i, set: true}
}

// Get returns the index and whether one is set.
func (x Index) Get() (int, bool) {
	return x.value, x.set
}

func (x Index) IsNone() bool {
	return !x.set
}

// Is reports whether x is set to i.
func (x Index) Is(i int) bool {
	return x.set && x.value == i
}

func (x Index) String() string {
	if !x.set {
		return "none"
	}
	return strconv.Itoa(x.value)
}

func (x Index) MarshalJSON() ([]byte, error) {
	if !x.set {
		return []byte("null"), nil
	}
	return json.Marshal(x.value)
}

func (x *Index) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*x = None()
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return err
	}
	*x = At(i)
	return nil
}

// Toggle is the transition shared by table rows and chart sectors: clicking
// the active index clears it, clicking any other index selects it.
func Toggle(current Index, clicked int) Index {
	if current.Is(clicked) {
		return None()
	}
	return At(clicked)
}

// Source tags who produced a selection change.
type Source string

const (
	SourceTable   Source = "table"
	SourceChart   Source = "chart"
	SourceContext Source = "context"
)

type Listener func(Index, Source)

// Coordinator owns the shared index. It is not safe for concurrent use; the
// owner serialises events so a mutation and the re-render it triggers happen
// in one turn.
type Coordinator struct {
	current   Index
	listeners []Listener
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

func (c *Coordinator) Current() Index {
	return c.current
}

// Subscribe registers a consumer notified after every change.
func (c *Coordinator) Subscribe(l Listener) {
	c.listeners = append(c.listeners, l)
}

// Apply commits a selection already computed by a producer. Producers compute
// it with Toggle before reporting.
func (c *Coordinator) Apply(next Index, source Source) {
	c.current = next
	for _, l := range c.listeners {
		l(next, source)
	}
}

// Toggle applies the toggle rule for a click on index i.
func (c *Coordinator) Toggle(i int, source Source) Index {
	next := Toggle(c.current, i)
	c.Apply(next, source)
	return next
}

// Reset clears the selection; called whenever the active plan changes.
func (c *Coordinator) Reset() {
	c.Apply(None(), SourceContext)
}
