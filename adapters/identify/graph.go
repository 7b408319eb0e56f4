// Package identify derives backdoor adjustment sets for the do-sampler.
package identify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal"
	"gocausal/ports"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Edge is a directed cause -> effect pair
type Edge struct {
	From string
	To   string
}

// GraphOptions configures a GraphIdentifier
type GraphOptions struct {
	// ProceedWhenUnidentifiable returns the observed part of the backdoor set,
	// with a warning, instead of core.ErrUnidentifiableEffect
	ProceedWhenUnidentifiable bool
	Logger                    *internal.Logger
}

// GraphIdentifier reads the backdoor set off a causal DAG: the parents of the
// treatments. Blocking every parent blocks every backdoor path, so the set is
// valid whenever all parents are observed.
type GraphIdentifier struct {
	g       *causalGraph
	proceed bool
	logger  *internal.Logger
}

var _ ports.IdentifierPort = (*GraphIdentifier)(nil)

// NewGraphIdentifier builds the DAG from an edge list
func NewGraphIdentifier(edges []Edge, opts GraphOptions) (*GraphIdentifier, error) {
	g := newCausalGraph()
	for _, e := range edges {
		if e.From == "" || e.To == "" {
			return nil, core.NewConfigurationError("graph", "edge with empty endpoint")
		}
		if e.From == e.To {
			return nil, core.NewConfigurationError("graph", fmt.Sprintf("self loop on %q", e.From))
		}
		g.SetEdge(g.NewEdge(g.named(e.From), g.named(e.To)))
	}
	return newIdentifier(g, opts)
}

// ParseDOT builds the DAG from a Graphviz digraph
func ParseDOT(src string, opts GraphOptions) (*GraphIdentifier, error) {
	g := newCausalGraph()
	if err := dot.Unmarshal([]byte(src), g); err != nil {
		return nil, core.NewConfigurationError("graph", err.Error())
	}
	for _, n := range graph.NodesOf(g.Nodes()) {
		name := n.(*variable).name
		if name == "" {
			return nil, core.NewConfigurationError("graph", "node without a name")
		}
		g.names[name] = n.(*variable)
	}
	return newIdentifier(g, opts)
}

func newIdentifier(g *causalGraph, opts GraphOptions) (*GraphIdentifier, error) {
	if _, err := topo.Sort(g); err != nil {
		return nil, core.NewConfigurationError("graph", "causal graph has a cycle: "+err.Error())
	}
	logger := opts.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &GraphIdentifier{g: g, proceed: opts.ProceedWhenUnidentifiable, logger: logger.With("GraphIdentifier")}, nil
}

// Identify returns the parents of causes that are not causes themselves.
// An outcome among them means the graph contradicts the query.
func (gi *GraphIdentifier) Identify(ctx context.Context, causes, outcomes []string, columns []string) (causal.ConfounderSet, error) {
	if err := ctx.Err(); err != nil {
		return causal.ConfounderSet{}, err
	}
	for _, name := range append(append([]string(nil), causes...), outcomes...) {
		if _, ok := gi.g.names[name]; !ok {
			return causal.ConfounderSet{}, core.NewConfigurationError("graph", fmt.Sprintf("variable %q is not in the causal graph", name))
		}
	}

	isCause := toSet(causes)
	isOutcome := toSet(outcomes)
	observed := toSet(columns)

	required := make(map[string]bool)
	for _, c := range causes {
		for _, p := range gi.g.parents(c) {
			if isCause[p] {
				continue
			}
			if isOutcome[p] {
				return causal.ConfounderSet{}, core.NewConfigurationError("graph",
					fmt.Sprintf("outcome %q is a cause of treatment %q", p, c))
			}
			required[p] = true
		}
	}

	var present, missing []string
	for name := range required {
		if observed[name] {
			present = append(present, name)
		} else {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	if len(missing) > 0 {
		if !gi.proceed {
			return causal.ConfounderSet{}, core.NewUnidentifiableError(causes, missing)
		}
		gi.logger.Warn("backdoor set for %v is missing unobserved %v; proceeding with %v", causes, missing, present)
	}
	set := causal.NewConfounderSet(present...)
	gi.logger.Debug("backdoor set for %v: %s", causes, set)
	return set, nil
}

// Variables returns the graph's variables in topological order
func (gi *GraphIdentifier) Variables() []string {
	order, err := topo.Sort(gi.g)
	if err != nil {
		return nil
	}
	out := make([]string, len(order))
	for i, n := range order {
		out[i] = n.(*variable).name
	}
	return out
}

// DOT renders the graph as a Graphviz digraph
func (gi *GraphIdentifier) DOT() (string, error) {
	b, err := dot.Marshal(gi.g, "causal", "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// causalGraph is a simple.DirectedGraph whose nodes carry variable names
type causalGraph struct {
	*simple.DirectedGraph
	names map[string]*variable
}

func newCausalGraph() *causalGraph {
	return &causalGraph{DirectedGraph: simple.NewDirectedGraph(), names: make(map[string]*variable)}
}

// NewNode returns a named node so DOT decoding keeps variable names
func (g *causalGraph) NewNode() graph.Node {
	return &variable{Node: g.DirectedGraph.NewNode()}
}

// named returns the node for name, adding it on first use
func (g *causalGraph) named(name string) *variable {
	if v, ok := g.names[name]; ok {
		return v
	}
	v := g.NewNode().(*variable)
	v.name = name
	g.AddNode(v)
	g.names[name] = v
	return v
}

func (g *causalGraph) parents(name string) []string {
	v, ok := g.names[name]
	if !ok {
		return nil
	}
	var out []string
	for _, n := range graph.NodesOf(g.To(v.ID())) {
		out = append(out, n.(*variable).name)
	}
	sort.Strings(out)
	return out
}

type variable struct {
	graph.Node
	name string
}

func (v *variable) SetDOTID(id string) { v.name = id }
func (v *variable) DOTID() string      { return v.name }

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[strings.TrimSpace(n)] = true
	}
	return out
}
