package summary

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/ryansname/switchsum/src/tabfile"
)

// TechGroups maps each technology onto its reporting group
type TechGroups map[string]string

// Group returns the group of tech. Technologies missing from the grouping
// table are a data integrity error.
func (g TechGroups) Group(tech string) (string, error) {
	group, ok := g[tech]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTechnology, tech)
	}
	return group, nil
}

// LoadTechGroups reads tech_grouping.txt
func LoadTechGroups(path string, logger logrus.FieldLogger) (TechGroups, error) {
	groups := make(TechGroups)
	_, err := tabfile.Scan(path, tabfile.Options{Logger: logger}, func(r tabfile.Row) error {
		tech, err := r.String("technology")
		if err != nil {
			return err
		}
		group, err := r.String("tech_group")
		if err != nil {
			return err
		}
		groups[tech] = group
		return nil
	})
	return groups, err
}

// Classes records which groups dispatch flexibly and which are intermittent
type Classes struct {
	Flexible     map[string]bool
	Intermittent map[string]bool
}

// NewClasses returns empty classes
func NewClasses() Classes {
	return Classes{Flexible: make(map[string]bool), Intermittent: make(map[string]bool)}
}

// IntermittentGroups returns the intermittent groups, sorted
func (c Classes) IntermittentGroups() []string {
	out := make([]string, 0, len(c.Intermittent))
	for g := range c.Intermittent {
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}

// LoadClasses reads generator_info.tab. Dispatchable or storage technologies
// make their group flexible; intermittent technologies make it intermittent.
func LoadClasses(path string, groups TechGroups, logger logrus.FieldLogger) (Classes, error) {
	c := NewClasses()
	_, err := tabfile.Scan(path, tabfile.Options{AMPLHeader: true, Logger: logger}, func(r tabfile.Row) error {
		tech, err := r.String("technology")
		if err != nil {
			return err
		}
		group, err := groups.Group(tech)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", r.Path, r.Line, err)
		}
		dispatchable, err := r.Int("dispatchable")
		if err != nil {
			return err
		}
		storage, err := r.Int("storage")
		if err != nil {
			return err
		}
		intermittent, err := r.Int("intermittent")
		if err != nil {
			return err
		}
		if dispatchable == 1 || storage == 1 {
			c.Flexible[group] = true
		}
		if intermittent == 1 {
			c.Intermittent[group] = true
		}
		return nil
	})
	return c, err
}

// Path is a one-way transmission path between load areas
type Path struct {
	Start string
	End   string
}

// Line holds the physical attributes of a transmission path
type Line struct {
	LengthKm       float64
	DeratingFactor float64
}

// Lines maps paths to their physical attributes
type Lines map[Path]Line

// Lookup returns the line for a path. Unknown paths are a data integrity error.
func (l Lines) Lookup(start, end string) (Line, error) {
	line, ok := l[Path{Start: start, End: end}]
	if !ok {
		return Line{}, fmt.Errorf("%w: %s -> %s", ErrUnknownPath, start, end)
	}
	return line, nil
}

// LoadLines reads transmission_lines.tab
func LoadLines(path string, logger logrus.FieldLogger) (Lines, error) {
	lines := make(Lines)
	_, err := tabfile.Scan(path, tabfile.Options{AMPLHeader: true, Logger: logger}, func(r tabfile.Row) error {
		start, err := r.String("load_area_start")
		if err != nil {
			return err
		}
		end, err := r.String("load_area_end")
		if err != nil {
			return err
		}
		v, err := r.Floats("transmission_length_km", "transmission_derating_factor")
		if err != nil {
			return err
		}
		lines[Path{Start: start, End: end}] = Line{LengthKm: v[0], DeratingFactor: v[1]}
		return nil
	})
	return lines, err
}

// CarbonTargets maps a calendar year to its emissions relative to the base year
type CarbonTargets map[int]float64

// ForPeriod averages the targets of the years in [start, start+years). The
// second return is false when no target year falls inside the period.
func (c CarbonTargets) ForPeriod(start int, years float64) (float64, bool) {
	var sum float64
	n := 0
	for year, rel := range c {
		if year >= start && float64(year) < float64(start)+years {
			sum += rel
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// LoadCarbonTargets reads carbon_cap_targets.tab
func LoadCarbonTargets(path string, logger logrus.FieldLogger) (CarbonTargets, error) {
	targets := make(CarbonTargets)
	_, err := tabfile.Scan(path, tabfile.Options{AMPLHeader: true, Logger: logger}, func(r tabfile.Row) error {
		year, err := r.Int("year")
		if err != nil {
			return err
		}
		rel, err := r.Float("carbon_emissions_relative_to_base")
		if err != nil {
			return err
		}
		targets[year] = rel
		return nil
	})
	return targets, err
}
