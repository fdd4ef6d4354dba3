package symbolic

import "sort"

// SubtreeFlops returns the accumulated work of every node's subtree.
func (t *Tree) SubtreeFlops() []float64 {
	acc := make([]float64, t.Len()+1)
	for i := range t.Nodes {
		acc[i] += t.Nodes[i].Flops
		acc[t.Nodes[i].Parent] += acc[i]
	}

	return acc[:t.Len()]
}

// markSubtrees flags maximal subtrees with total work <= limit.
// A subtree root is a node under the limit whose parent is the virtual root
// or exceeds the limit. Every descendant of a subtree root is InSubtree.
func (t *Tree) markSubtrees(limit float64) {
	acc := t.SubtreeFlops()
	for i := len(t.Nodes) - 1; i >= 0; i-- {
		nd := &t.Nodes[i]
		p := nd.Parent
		switch {
		case p < t.Len() && t.Nodes[p].InSubtree:
			nd.InSubtree = true
		case acc[i] <= limit:
			nd.InSubtree, nd.SubtreeRoot = true, true
		}
	}
}

// SubtreeNodes lists the nodes of the subtree rooted at root in ascending
// index order, so children always precede parents.
func (t *Tree) SubtreeNodes(root int) []int {
	out := []int{root}
	for k := 0; k < len(out); k++ {
		for c := t.Nodes[out[k]].FirstChild; c != None; c = t.Nodes[c].NextChild {
			out = append(out, c)
		}
	}
	sort.Ints(out)

	return out
}
