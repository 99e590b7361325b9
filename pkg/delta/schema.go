package delta

import "fmt"

// Relation describes one relation participating in the join.
type Relation struct {
	// Name identifies the relation and keys its component in join tuples.
	Name string
	// Key extracts the relation's primary key from a record.
	Key Extractor
}

// Edge is one equi-join edge between two adjacent relations of the chain:
// LeftKey(left record) = RightKey(right record).
type Edge struct {
	Left     string
	Right    string
	LeftKey  Extractor
	RightKey Extractor
}

// Chain is a validated acyclic foreign-key join chain. The declaration order
// of the relations is also the priority order used to break timestamp ties:
// later relations have higher priority.
type Chain struct {
	relations []Relation
	edges     []Edge
	positions map[string]int
}

// NewChain validates the relation chain and its join edges. Edge i must
// connect relation i to relation i+1; anything else (unknown endpoints,
// reversed or crossing edges, missing extractors) is rejected, since the
// construction requires a total order over the joined relations and an
// acyclic foreign-key chain.
func NewChain(relations []Relation, edges []Edge) (*Chain, error) {
	if len(relations) < 2 {
		return nil, newBuildError("join chain needs at least two relations", nil)
	}
	if len(edges) != len(relations)-1 {
		return nil, newBuildError(fmt.Sprintf("join chain over %d relations needs exactly %d edges, got %d",
			len(relations), len(relations)-1, len(edges)), nil)
	}

	positions := make(map[string]int, len(relations))
	for i, rel := range relations {
		if rel.Name == "" {
			return nil, newBuildError(fmt.Sprintf("relation at position %d has no name", i), nil)
		}
		if _, exists := positions[rel.Name]; exists {
			return nil, newBuildError(fmt.Sprintf("duplicate relation %q", rel.Name), nil)
		}
		if rel.Key == nil {
			return nil, newBuildError(fmt.Sprintf("relation %q has no primary-key extractor", rel.Name), nil)
		}
		positions[rel.Name] = i
	}

	for i, edge := range edges {
		if edge.Left != relations[i].Name || edge.Right != relations[i+1].Name {
			return nil, newBuildError(fmt.Sprintf("edge %d must join %q to %q, joins %q to %q",
				i, relations[i].Name, relations[i+1].Name, edge.Left, edge.Right), nil)
		}
		if edge.LeftKey == nil || edge.RightKey == nil {
			return nil, newBuildError(fmt.Sprintf("edge %q-%q has a missing key extractor",
				edge.Left, edge.Right), nil)
		}
	}

	return &Chain{relations: relations, edges: edges, positions: positions}, nil
}

// Len returns the number of relations in the chain.
func (c *Chain) Len() int { return len(c.relations) }

// Relation returns the relation at chain position i.
func (c *Chain) Relation(i int) Relation { return c.relations[i] }

// Relations returns the relations in chain (= priority) order.
func (c *Chain) Relations() []Relation {
	result := make([]Relation, len(c.relations))
	copy(result, c.relations)
	return result
}

// Position returns the chain position of the named relation, or -1.
func (c *Chain) Position(name string) int {
	pos, ok := c.positions[name]
	if !ok {
		return -1
	}
	return pos
}

// Edge returns the join edge between positions i and i+1.
func (c *Chain) Edge(i int) Edge { return c.edges[i] }

// joinKeys returns the edge keys relation position i participates with, in
// edge order. A middle relation has two, the ends have one.
func (c *Chain) joinKeys(i int) []Extractor {
	var keys []Extractor
	if i > 0 {
		keys = append(keys, c.edges[i-1].RightKey)
	}
	if i < len(c.edges) {
		keys = append(keys, c.edges[i].LeftKey)
	}
	return keys
}
