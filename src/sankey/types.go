package sankey

// Section is a column of the flow diagram
type Section int

const (
	SectionSupply Section = iota
	SectionGrid
	SectionDemand
)

func (s Section) String() string {
	switch s {
	case SectionSupply:
		return "supply"
	case SectionGrid:
		return "grid"
	case SectionDemand:
		return "demand"
	default:
		return "supply"
	}
}

// Node names that are not technology groups
const (
	NodeGrid            = "Grid"
	NodeLoad            = "Load"
	NodeStorageCharging = "Storage charging"
	NodeTransmission    = "Transmission losses"
)

// Node is a box in the diagram
type Node struct {
	Name    string
	Section Section
}

// Flow is annual energy moving between two nodes in one period, MWh/yr
type Flow struct {
	Period int
	Source Node
	Target Node
	Energy float64
}

// Diagram holds the flows of one period
type Diagram struct {
	Period int
	Flows  []Flow
}

// Nodes lists the diagram's nodes in section order, then first appearance
func (d Diagram) Nodes() []Node {
	seen := make(map[Node]bool)
	var nodes []Node
	for section := SectionSupply; section <= SectionDemand; section++ {
		for _, f := range d.Flows {
			for _, n := range []Node{f.Source, f.Target} {
				if n.Section == section && !seen[n] {
					seen[n] = true
					nodes = append(nodes, n)
				}
			}
		}
	}
	return nodes
}

// Inflow is the energy entering n
func (d Diagram) Inflow(n Node) float64 {
	var total float64
	for _, f := range d.Flows {
		if f.Target == n {
			total += f.Energy
		}
	}
	return total
}

// Outflow is the energy leaving n
func (d Diagram) Outflow(n Node) float64 {
	var total float64
	for _, f := range d.Flows {
		if f.Source == n {
			total += f.Energy
		}
	}
	return total
}
