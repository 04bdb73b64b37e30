// Package production provides production integrations for hsm machines:
// Prometheus metrics, lifecycle publishing and tree export.
package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/hsm"
)

// TreeNode is an exported view of one state and the substates known below
// it.
type TreeNode struct {
	Name     string     `json:"name" yaml:"name"`
	Active   bool       `json:"active" yaml:"active"`
	Children []TreeNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Tree captures the machine's tree from its structural root. ok is false
// when the machine is not initialized.
func Tree[K comparable](m *hsm.Machine[K]) (root TreeNode, ok bool) {
	r := m.Root()
	if r == nil {
		return TreeNode{}, false
	}
	active := make(map[hsm.State[K]]bool)
	for s := m.Leaf(); s != nil; s = s.Parent() {
		active[s] = true
	}
	return walk(r, active, make(map[hsm.State[K]]bool)), true
}

func walk[K comparable](s hsm.State[K], active, seen map[hsm.State[K]]bool) TreeNode {
	seen[s] = true
	n := TreeNode{Name: hsm.NameOf(s), Active: active[s]}
	for _, child := range s.Substates() {
		if seen[child] {
			continue
		}
		n.Children = append(n.Children, walk(child, active, seen))
	}
	return n
}

// DefaultVisualizer renders TreeNode documents.
type DefaultVisualizer struct{}

// ExportDOT generates Graphviz DOT source for the tree. States with
// substates become clusters; the active path is highlighted.
func (v *DefaultVisualizer) ExportDOT(root TreeNode) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph HSM {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
`)
	next := 0
	renderState(&buf, root, &next, "  ")
	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the tree to JSON.
func (v *DefaultVisualizer) ExportJSON(root TreeNode) ([]byte, error) {
	return json.MarshalIndent(root, "", "  ")
}

// ExportYAML serializes the tree to YAML.
func (v *DefaultVisualizer) ExportYAML(root TreeNode) ([]byte, error) {
	data, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}
	return data, nil
}

// renderState recursively renders states and clusters. Node IDs are
// sequential so repeated names stay distinct.
func renderState(buf *bytes.Buffer, state TreeNode, next *int, indent string) {
	id := fmt.Sprintf("s%d", *next)
	*next++

	if len(state.Children) > 0 {
		style := ""
		if state.Active {
			style = ` style=filled fillcolor=orange`
		}
		fmt.Fprintf(buf, "%ssubgraph cluster_%s {\n", indent, id)
		fmt.Fprintf(buf, "%s  label=%q;\n", indent, state.Name)
		fmt.Fprintf(buf, "%s  %q [label=%q shape=ellipse%s];\n", indent, id, state.Name, style)
		for _, child := range state.Children {
			renderState(buf, child, next, indent+"  ")
		}
		fmt.Fprintf(buf, "%s}\n", indent)
		return
	}

	style := ""
	if state.Active {
		style = ` style=filled fillcolor=lightgreen`
	}
	fmt.Fprintf(buf, "%s%q [label=%q%s];\n", indent, id, state.Name, style)
}
