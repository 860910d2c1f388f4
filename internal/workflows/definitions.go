package workflows

import "slices"

// Definition declares a workflow type: the node set instances may move
// through once the first transition takes them out of NodeStart.
type Definition struct {
	Type  string
	Nodes []string
}

// HasNode reports whether node belongs to the definition.
func (d Definition) HasNode(node string) bool {
	return slices.Contains(d.Nodes, node)
}
