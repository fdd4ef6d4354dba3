package symbolic

import "sort"

// None marks an absent arena link.
const None = -1

// Node is one supernode of the elimination tree.
type Node struct {
	NCol int // fully-summed columns owned by the node
	NRow int // rows of the node, NRow >= NCol

	Parent     int // parent index; Tree.Len() for roots
	FirstChild int // first child or None
	NextChild  int // next sibling or None
	LeastDesc  int // smallest node index in this node's subtree

	// Rows lists the global (elimination order, 0-based) row of every local
	// row. The first NCol entries are the node's own columns.
	Rows []int

	// AMap pairs a 0-based index into the numeric values with the 0-based
	// destination col*NRow+row inside the node.
	AMap [][2]int

	Flops       float64 // dense elimination work of the node alone
	InSubtree   bool    // handled by the subtree collaborator
	SubtreeRoot bool    // root of a collaborator-owned subtree
}

// FirstCol returns the global index of the node's first column.
func (n *Node) FirstCol() int { return n.Rows[0] }

// Tree is the arena of supernodes.
type Tree struct {
	N     int    // matrix order
	Nodes []Node // children precede parents

	// Perm maps elimination index k to the caller's row index. Nil means identity.
	Perm []int

	MaxFront int   // largest NRow
	NFactor  int64 // entries of L
}

// Len returns the number of real nodes; it doubles as the virtual root index.
func (t *Tree) Len() int { return len(t.Nodes) }

// IsRoot reports whether node i has no real parent.
func (t *Tree) IsRoot(i int) bool { return t.Nodes[i].Parent == t.Len() }

// Children returns the child indices of node i in sibling order.
// Passing Len() lists the real roots.
func (t *Tree) Children(i int) []int {
	var out []int
	if i == t.Len() {
		for j := range t.Nodes {
			if t.IsRoot(j) {
				out = append(out, j)
			}
		}
		return out
	}
	for c := t.Nodes[i].FirstChild; c != None; c = t.Nodes[c].NextChild {
		out = append(out, c)
	}

	return out
}

// TreeOption configures NewTree.
type TreeOption func(*treeOptions)

type treeOptions struct {
	perm         []int
	subtreeFlops float64
}

// WithPerm attaches the ordering that maps elimination indices to caller indices.
func WithPerm(perm []int) TreeOption {
	return func(o *treeOptions) { o.perm = perm }
}

// WithSubtreeFlops marks maximal subtrees whose total work does not exceed
// flops as collaborator-owned. Zero disables marking.
func WithSubtreeFlops(flops float64) TreeOption {
	return func(o *treeOptions) { o.subtreeFlops = flops }
}

// NewTree builds the arena from 1-indexed analysis arrays.
// Implementation:
//   - Stage 1: validate array lengths, column partition and parent links.
//   - Stage 2: copy each node's row list (0-based) and check its leading
//     rows are the node's own columns and the rest strictly increase.
//   - Stage 3: check every contribution row of a child appears in its parent.
//   - Stage 4: decode amap pairs and bound-check destinations.
//   - Stage 5: link siblings, compute LeastDesc, flops and factor size.
//
// Inputs:
//   - n: matrix order.
//   - sptr: nnodes+1 column pointers; node i owns columns sptr[i]..sptr[i+1]-1.
//   - sparent: nnodes parents; nnodes+1 denotes a root.
//   - rptr, rlist: row lists; node i has rlist[rptr[i]-1 : rptr[i+1]-1].
//   - nptr, nlist: amap pairs; node i owns pairs nptr[i]..nptr[i+1]-1 of nlist.
//
// Errors:
//   - ErrMalformedTree describing the first inconsistency found.
//
// Complexity:
//   - Time O(nnodes + len(rlist) log + len(nlist)), Space O(len(rlist) + len(nlist)).
func NewTree(n int, sptr, sparent, rptr, rlist, nptr, nlist []int, opts ...TreeOption) (*Tree, error) {
	var o treeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if n < 0 {
		return nil, treeErrorf("negative order %d", n)
	}
	if len(sptr) < 1 {
		return nil, treeErrorf("sptr is empty")
	}
	nnodes := len(sptr) - 1
	switch {
	case len(sparent) != nnodes:
		return nil, treeErrorf("sparent has %d entries, want %d", len(sparent), nnodes)
	case len(rptr) != nnodes+1:
		return nil, treeErrorf("rptr has %d entries, want %d", len(rptr), nnodes+1)
	case len(nptr) != nnodes+1:
		return nil, treeErrorf("nptr has %d entries, want %d", len(nptr), nnodes+1)
	case sptr[0] != 1 || sptr[nnodes] != n+1:
		return nil, treeErrorf("sptr must span 1..%d", n+1)
	case rptr[0] != 1 || rptr[nnodes]-1 != len(rlist):
		return nil, treeErrorf("rptr does not cover rlist")
	case nptr[0] != 1 || 2*(nptr[nnodes]-1) != len(nlist):
		return nil, treeErrorf("nptr does not cover nlist")
	}
	if o.perm != nil {
		if err := checkPerm(n, o.perm); err != nil {
			return nil, treeErrorf("perm: %v", err)
		}
	}

	t := &Tree{N: n, Nodes: make([]Node, nnodes), Perm: o.perm}
	var i, k int // loop iterators
	for i = 0; i < nnodes; i++ {
		nd := &t.Nodes[i]
		nd.NCol = sptr[i+1] - sptr[i]
		nd.NRow = rptr[i+1] - rptr[i]
		nd.Parent = sparent[i] - 1
		nd.FirstChild, nd.NextChild, nd.LeastDesc = None, None, i
		if nd.NCol < 1 {
			return nil, treeErrorf("node %d owns no column", i)
		}
		if nd.NRow < nd.NCol {
			return nil, treeErrorf("node %d has %d rows < %d columns", i, nd.NRow, nd.NCol)
		}
		if nd.Parent <= i || nd.Parent > nnodes {
			return nil, treeErrorf("node %d has parent %d", i, sparent[i])
		}
		if nd.Parent == nnodes && nd.NRow != nd.NCol {
			return nil, treeErrorf("root %d has a contribution block", i)
		}
		nd.Rows = make([]int, nd.NRow)
		for k = 0; k < nd.NRow; k++ {
			r := rlist[rptr[i]-1+k] - 1
			if r < 0 || r >= n {
				return nil, treeErrorf("node %d row %d out of range", i, r+1)
			}
			if k < nd.NCol && r != sptr[i]-1+k {
				return nil, treeErrorf("node %d row %d is not its column %d", i, r+1, sptr[i]+k)
			}
			if k > 0 && r <= nd.Rows[k-1] {
				return nil, treeErrorf("node %d rows not strictly increasing", i)
			}
			nd.Rows[k] = r
		}
		npair := nptr[i+1] - nptr[i]
		nd.AMap = make([][2]int, npair)
		for k = 0; k < npair; k++ {
			src := nlist[2*(nptr[i]-1+k)] - 1
			dst := nlist[2*(nptr[i]-1+k)+1] - 1
			if src < 0 {
				return nil, treeErrorf("node %d amap source %d", i, src+1)
			}
			if dst < 0 || dst >= nd.NCol*nd.NRow {
				return nil, treeErrorf("node %d amap destination %d", i, dst+1)
			}
			nd.AMap[k] = [2]int{src, dst}
		}
	}

	// Link children in ascending order and check structural nesting.
	last := make([]int, nnodes+1)
	for i = range last {
		last[i] = None
	}
	for i = 0; i < nnodes; i++ {
		p := t.Nodes[i].Parent
		if p < nnodes {
			if !containsSorted(t.Nodes[p].Rows, t.Nodes[i].Rows[t.Nodes[i].NCol:]) {
				return nil, treeErrorf("node %d contributes rows absent from parent %d", i, p)
			}
			if last[p] == None {
				t.Nodes[p].FirstChild = i
			} else {
				t.Nodes[last[p]].NextChild = i
			}
			if t.Nodes[i].LeastDesc < t.Nodes[p].LeastDesc {
				t.Nodes[p].LeastDesc = t.Nodes[i].LeastDesc
			}
		}
		last[p] = i
	}

	for i = range t.Nodes {
		nd := &t.Nodes[i]
		nd.Flops = nodeFlops(nd.NCol, nd.NRow)
		if nd.NRow > t.MaxFront {
			t.MaxFront = nd.NRow
		}
		t.NFactor += int64(nd.NCol)*int64(nd.NRow) - int64(nd.NCol)*int64(nd.NCol-1)/2
	}
	if o.subtreeFlops > 0 {
		t.markSubtrees(o.subtreeFlops)
	}

	return t, nil
}

// LocalRow returns the local row of global row g in node i, or None.
func (t *Tree) LocalRow(i, g int) int {
	rows := t.Nodes[i].Rows
	k := sort.SearchInts(rows, g)
	if k < len(rows) && rows[k] == g {
		return k
	}

	return None
}

// containsSorted reports whether every element of sub occurs in sup (both ascending).
func containsSorted(sup, sub []int) bool {
	j := 0
	for _, v := range sub {
		for j < len(sup) && sup[j] < v {
			j++
		}
		if j == len(sup) || sup[j] != v {
			return false
		}
	}

	return true
}

func checkPerm(n int, perm []int) error {
	if len(perm) != n {
		return matrixErrorf("length %d, want %d", len(perm), n)
	}
	seen := make([]bool, n)
	for _, p := range perm {
		if p < 0 || p >= n || seen[p] {
			return matrixErrorf("not a permutation")
		}
		seen[p] = true
	}

	return nil
}

// nodeFlops estimates the work of eliminating ncol columns of an nrow front.
func nodeFlops(ncol, nrow int) float64 {
	var f float64
	for j := 0; j < ncol; j++ {
		r := float64(nrow - j)
		f += r * r
	}

	return f
}
