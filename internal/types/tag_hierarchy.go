package types

// TagNode is one node of the tag hierarchy forest.
type TagNode struct {
	Label    string    `json:"label" yaml:"label"`
	Children []TagNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// TagHierarchy is a forest of tag nodes.
type TagHierarchy []TagNode

// UncategorizedLabel is the top-level bucket for used tags missing from the hierarchy.
const UncategorizedLabel = "Uncategorized"

// Find returns the first node with the given label, searching depth-first.
func (h TagHierarchy) Find(label string) (*TagNode, bool) {
	for i := range h {
		if n, ok := h[i].find(label); ok {
			return n, true
		}
	}
	return nil, false
}

func (n *TagNode) find(label string) (*TagNode, bool) {
	if n.Label == label {
		return n, true
	}
	for i := range n.Children {
		if found, ok := n.Children[i].find(label); ok {
			return found, true
		}
	}
	return nil, false
}

// Subtree returns label followed by every descendant label. A label that is
// not in the hierarchy yields just itself.
func (h TagHierarchy) Subtree(label string) []string {
	node, ok := h.Find(label)
	if !ok {
		return []string{label}
	}
	var out []string
	node.walk(func(n *TagNode) {
		out = append(out, n.Label)
	})
	return out
}

// Labels returns every label in the forest in depth-first order.
func (h TagHierarchy) Labels() []string {
	var out []string
	for i := range h {
		h[i].walk(func(n *TagNode) {
			out = append(out, n.Label)
		})
	}
	return out
}

func (n *TagNode) walk(fn func(*TagNode)) {
	fn(n)
	for i := range n.Children {
		n.Children[i].walk(fn)
	}
}
