// Package fingerprint maps decoded remote signals to human-readable button names.
//
// A Table covers one protocol family. Lookup tries the full payload value first
// and falls back to the (address, command) pair only when both are non-zero,
// since zero usually means the decoder did not populate the field.
package fingerprint

import (
	"fmt"

	"github.com/sweeney/ir-learner/internal/logic"
)

// Unknown is the name returned when no fingerprint matches.
const Unknown = "UNKNOWN"

// Button is one fingerprint entry.
type Button struct {
	Name    string
	Value   uint64
	Address uint32
	Command uint32
}

type pair struct {
	address uint32
	command uint32
}

// Table is a read-only fingerprint table for a single protocol family.
type Table struct {
	Name     string
	Protocol logic.Protocol

	buttons []Button
	byValue map[uint64]string
	byPair  map[pair]string
}

// NewTable builds the value and pair indexes. Duplicate keys keep the first
// button that defines them.
func NewTable(name string, protocol logic.Protocol, buttons []Button) *Table {
	t := &Table{
		Name:     name,
		Protocol: protocol,
		buttons:  append([]Button(nil), buttons...),
		byValue:  make(map[uint64]string, len(buttons)),
		byPair:   make(map[pair]string, len(buttons)),
	}
	for _, b := range buttons {
		if b.Value != 0 {
			if _, dup := t.byValue[b.Value]; !dup {
				t.byValue[b.Value] = b.Name
			}
		}
		if b.Address != 0 && b.Command != 0 {
			k := pair{b.Address, b.Command}
			if _, dup := t.byPair[k]; !dup {
				t.byPair[k] = b.Name
			}
		}
	}
	return t
}

// Identify returns the button name for ev, or Unknown and false.
func (t *Table) Identify(ev logic.DecodedEvent) (string, bool) {
	if name, ok := t.byValue[ev.Value]; ok {
		return name, true
	}
	if ev.Address != 0 && ev.Command != 0 {
		if name, ok := t.byPair[pair{ev.Address, ev.Command}]; ok {
			return name, true
		}
	}
	return Unknown, false
}

// Buttons returns a copy of the table entries in definition order.
func (t *Table) Buttons() []Button {
	return append([]Button(nil), t.buttons...)
}

// Len returns the number of buttons in the table.
func (t *Table) Len() int {
	return len(t.buttons)
}

// Set is an ordered list of tables. Several tables may cover the same
// protocol; lookup tries them in the order they were added.
type Set struct {
	tables []*Table
}

// NewSet creates a set from tables, in order.
func NewSet(tables ...*Table) *Set {
	s := &Set{}
	for _, t := range tables {
		s.Add(t)
	}
	return s
}

// Add appends t. Tables added earlier take precedence.
func (s *Set) Add(t *Table) {
	s.tables = append(s.tables, t)
}

// Identify returns the first match for ev among the tables for its protocol.
func (s *Set) Identify(ev logic.DecodedEvent) (name, table string, ok bool) {
	for _, t := range s.tables {
		if t.Protocol != ev.Protocol {
			continue
		}
		if n, hit := t.Identify(ev); hit {
			return n, t.Name, true
		}
	}
	return Unknown, "", false
}

// Tables returns the tables in lookup order.
func (s *Set) Tables() []*Table {
	return append([]*Table(nil), s.tables...)
}

// Buttons returns the number of buttons across all tables.
func (s *Set) Buttons() int {
	n := 0
	for _, t := range s.tables {
		n += t.Len()
	}
	return n
}

// String renders the table for -print-table.
func (t *Table) String() string {
	s := fmt.Sprintf("%s (%s, %d buttons)\n", t.Name, t.Protocol, len(t.buttons))
	for _, b := range t.buttons {
		s += fmt.Sprintf("  %-12s value=0x%X address=0x%X command=0x%X\n", b.Name, b.Value, b.Address, b.Command)
	}
	return s
}
