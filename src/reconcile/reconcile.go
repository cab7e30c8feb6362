// Package reconcile merges partial dispatch records into net power per
// (timepoint, group, entity) and derives hourly ramping from the result.
package reconcile

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/ryansname/switchsum/src/timeindex"
)

// TransmissionGroup is the group name used for net transmission flows, whose
// entities are load areas.
const TransmissionGroup = "Net_Tx"

// ErrUnknownTimepoint is returned when a dispatch key names a timepoint the
// study schedule does not contain.
var ErrUnknownTimepoint = errors.New("reconcile: timepoint not in study schedule")

// Key identifies one source's output at one timepoint
type Key struct {
	Timepoint int64
	Group     string
	Entity    string // project ID, or load area for TransmissionGroup
}

func (k Key) at(tp int64) Key {
	k.Timepoint = tp
	return k
}

func compareKeys(a, b Key) int {
	return cmp.Or(
		cmp.Compare(a.Group, b.Group),
		cmp.Compare(a.Entity, b.Entity),
		cmp.Compare(a.Timepoint, b.Timepoint),
	)
}

// Ledger accumulates net MW by key. Absent keys are an implicit zero.
type Ledger struct {
	net map[Key]float64
}

// NewLedger returns an empty ledger
func NewLedger() *Ledger {
	return &Ledger{net: make(map[Key]float64)}
}

// Add accumulates mw into the key's net power. Generation is positive,
// charging and transmission sent are negative.
func (l *Ledger) Add(tp int64, group, entity string, mw float64) {
	l.net[Key{Timepoint: tp, Group: group, Entity: entity}] += mw
}

// AddTransfer records a transmission flow: the sender loses sent MW and the
// receiver gains received MW, the difference being line losses.
func (l *Ledger) AddTransfer(tp int64, from, to string, sent, received float64) {
	l.Add(tp, TransmissionGroup, from, -sent)
	l.Add(tp, TransmissionGroup, to, received)
}

// Net returns the net power for a key and whether any record contributed to it
func (l *Ledger) Net(tp int64, group, entity string) (float64, bool) {
	v, ok := l.net[Key{Timepoint: tp, Group: group, Entity: entity}]
	return v, ok
}

// Len returns the number of reconciled keys
func (l *Ledger) Len() int {
	return len(l.net)
}

// Keys returns every key, sorted by group, entity, then timepoint
func (l *Ledger) Keys() []Key {
	keys := make([]Key, 0, len(l.net))
	for k := range l.net {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// Totals is a pair of ramp sums in MW
type Totals struct {
	Up   float64
	Down float64
}

func (t *Totals) add(ramp float64) {
	if ramp > 0 {
		t.Up += ramp
	} else {
		t.Down -= ramp
	}
}

// GroupKey identifies a group's ramp totals within a period
type GroupKey struct {
	Period int
	Group  string
}

// Ramps holds the ramp totals derived from a ledger
type Ramps struct {
	System map[int]*Totals      // by period, every group including transmission
	Groups map[GroupKey]*Totals // by period and group; TransmissionGroup holds transmission
}

// ForSystem returns the system totals for a period, zero when nothing ramped
func (r *Ramps) ForSystem(period int) Totals {
	if t, ok := r.System[period]; ok {
		return *t
	}
	return Totals{}
}

// ForGroup returns a group's totals for a period, zero when nothing ramped
func (r *Ramps) ForGroup(period int, group string) Totals {
	if t, ok := r.Groups[GroupKey{Period: period, Group: group}]; ok {
		return *t
	}
	return Totals{}
}

// Ramps computes hourly ramping for every key: the change from the prior
// timepoint on the same date, plus a closing ramp back to zero whenever the
// next timepoint has no record.
func (l *Ledger) Ramps(ix *timeindex.Index) (*Ramps, error) {
	r := &Ramps{
		System: make(map[int]*Totals),
		Groups: make(map[GroupKey]*Totals),
	}
	for _, k := range l.Keys() {
		tp, ok := ix.Timepoint(k.Timepoint)
		if !ok {
			return nil, fmt.Errorf("%w: %d (%s %s)", ErrUnknownTimepoint, k.Timepoint, k.Group, k.Entity)
		}

		sys := r.System[tp.Period]
		if sys == nil {
			sys = &Totals{}
			r.System[tp.Period] = sys
		}
		gk := GroupKey{Period: tp.Period, Group: k.Group}
		group := r.Groups[gk]
		if group == nil {
			group = &Totals{}
			r.Groups[gk] = group
		}

		current := l.net[k]
		ramp := current - l.net[k.at(tp.Prior)]
		sys.add(ramp)
		group.add(ramp)

		if _, ok := l.net[k.at(tp.Next)]; !ok {
			sys.Down += math.Abs(current)
			group.Down += math.Abs(current)
		}
	}
	return r, nil
}
