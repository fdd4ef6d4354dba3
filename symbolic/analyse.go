package symbolic

import "sort"

// entry is one stored lower-triangular value after symmetric permutation.
type entry struct {
	r, c int // permuted row >= permuted column
	src  int // position in the caller's value array
}

// Analyse performs a minimal symbolic analysis of a symmetric matrix given
// by its lower triangle in CSC form (0-based, diagonal included).
// Implementation:
//   - Stage 1: validate the pattern and the optional ordering.
//   - Stage 2: elimination tree under the ordering, then postorder it and
//     compose the postorder into the ordering.
//   - Stage 3: elimination tree and column structures of the postordered matrix.
//   - Stage 4: merge chains of columns with nested structure into
//     fundamental supernodes.
//   - Stage 5: emit 1-indexed sptr/sparent/rptr/rlist/nptr/nlist and hand
//     them to NewTree.
//
// Inputs:
//   - n: matrix order.
//   - colPtr, rowIdx: lower CSC pattern; the values array is indexed like rowIdx.
//   - order: order[k] is the caller's index eliminated k-th, nil for natural order.
//
// Errors:
//   - ErrMalformedMatrix for inconsistent patterns or orderings.
//
// Complexity:
//   - Time O(nnz(L) log n), Space O(nnz(L)).
func Analyse(n int, colPtr, rowIdx []int, order []int, opts ...TreeOption) (*Tree, error) {
	if n < 0 || len(colPtr) != n+1 || colPtr[0] != 0 || colPtr[n] != len(rowIdx) {
		return nil, matrixErrorf("column pointers do not describe %d columns", n)
	}
	var j, p int // loop iterators
	for j = 0; j < n; j++ {
		if colPtr[j+1] < colPtr[j] {
			return nil, matrixErrorf("column pointers decrease at %d", j)
		}
		for p = colPtr[j]; p < colPtr[j+1]; p++ {
			if rowIdx[p] < j || rowIdx[p] >= n {
				return nil, matrixErrorf("entry (%d,%d) outside the lower triangle", rowIdx[p], j)
			}
		}
	}
	if order == nil {
		order = make([]int, n)
		for j = range order {
			order[j] = j
		}
	} else if err := checkPerm(n, order); err != nil {
		return nil, err
	}

	// Postorder the tree of the requested ordering, then recompute under it.
	parent := etree(n, permute(n, colPtr, rowIdx, order))
	post := postorder(parent)
	composed := make([]int, n)
	for k, v := range post {
		composed[k] = order[v]
	}
	entries := permute(n, colPtr, rowIdx, composed)
	parent = etree(n, entries)
	structs := columnStructures(n, parent, entries)

	// Fundamental supernodes.
	nchild := make([]int, n)
	for j = 0; j < n; j++ {
		if parent[j] != None {
			nchild[parent[j]]++
		}
	}
	snodeOf := make([]int, n)
	sptr := []int{0}
	for j = 0; j < n; j++ {
		if j > 0 && parent[j-1] == j && nchild[j] == 1 && len(structs[j-1]) == len(structs[j])+1 {
			snodeOf[j] = len(sptr) - 1
			continue
		}
		if j > 0 {
			sptr = append(sptr, j)
		}
		snodeOf[j] = len(sptr) - 1
	}
	if n > 0 {
		sptr = append(sptr, n)
	}
	nnodes := len(sptr) - 1

	// Emit 1-indexed arrays.
	sparent := make([]int, nnodes)
	rptr := make([]int, nnodes+1)
	nptr := make([]int, nnodes+1)
	var rlist []int
	perNode := make([][]int, nnodes)
	for _, e := range entries {
		s := snodeOf[e.c]
		rows := structs[sptr[s]]
		lrow := sort.SearchInts(rows, e.r)
		dst := (e.c-sptr[s])*len(rows) + lrow
		perNode[s] = append(perNode[s], e.src+1, dst+1)
	}
	var nlist []int
	rptr[0], nptr[0] = 1, 1
	for s := 0; s < nnodes; s++ {
		last := sptr[s+1] - 1
		if parent[last] == None {
			sparent[s] = nnodes + 1
		} else {
			sparent[s] = snodeOf[parent[last]] + 1
		}
		for _, r := range structs[sptr[s]] {
			rlist = append(rlist, r+1)
		}
		rptr[s+1] = len(rlist) + 1
		nlist = append(nlist, perNode[s]...)
		nptr[s+1] = len(nlist)/2 + 1
	}
	sptr1 := make([]int, len(sptr))
	for s, v := range sptr {
		sptr1[s] = v + 1
	}

	return NewTree(n, sptr1, sparent, rptr, rlist, nptr, nlist, append(opts, WithPerm(composed))...)
}

// permute maps every stored entry through order (order[k] = caller index of pivot k).
func permute(n int, colPtr, rowIdx, order []int) []entry {
	inv := make([]int, n)
	for k, v := range order {
		inv[v] = k
	}
	out := make([]entry, 0, len(rowIdx))
	for j := 0; j < n; j++ {
		for p := colPtr[j]; p < colPtr[j+1]; p++ {
			a, b := inv[rowIdx[p]], inv[j]
			if a < b {
				a, b = b, a
			}
			out = append(out, entry{r: a, c: b, src: p})
		}
	}

	return out
}

// etree computes the elimination tree with path-compressed ancestors.
func etree(n int, entries []entry) []int {
	rowAdj := make([][]int, n)
	for _, e := range entries {
		if e.r != e.c {
			rowAdj[e.r] = append(rowAdj[e.r], e.c)
		}
	}
	parent := make([]int, n)
	anc := make([]int, n)
	for k := 0; k < n; k++ {
		parent[k], anc[k] = None, None
		for _, i := range rowAdj[k] {
			for i != None && i < k {
				next := anc[i]
				anc[i] = k
				if next == None {
					parent[i] = k
				}
				i = next
			}
		}
	}

	return parent
}

// postorder returns the nodes of a forest in depth-first postorder,
// visiting roots and children in ascending index.
func postorder(parent []int) []int {
	n := len(parent)
	head, next := make([]int, n), make([]int, n)
	for j := range head {
		head[j] = None
	}
	var roots []int
	for j := n - 1; j >= 0; j-- {
		if parent[j] == None {
			continue
		}
		next[j] = head[parent[j]]
		head[parent[j]] = j
	}
	for j := 0; j < n; j++ {
		if parent[j] == None {
			roots = append(roots, j)
		}
	}
	post := make([]int, 0, n)
	stack := make([]int, 0, n)
	for _, r := range roots {
		stack = append(stack, r)
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if c := head[top]; c != None {
				head[top] = next[c] // consume the child
				stack = append(stack, c)
				continue
			}
			stack = stack[:len(stack)-1]
			post = append(post, top)
		}
	}

	return post
}

// columnStructures returns the sorted row structure of every column of L.
func columnStructures(n int, parent []int, entries []entry) [][]int {
	lower := make([][]int, n)
	for _, e := range entries {
		lower[e.c] = append(lower[e.c], e.r)
	}
	children := make([][]int, n)
	for j := 0; j < n; j++ {
		if parent[j] != None {
			children[parent[j]] = append(children[parent[j]], j)
		}
	}
	mark := make([]int, n)
	for j := range mark {
		mark[j] = None
	}
	structs := make([][]int, n)
	for j := 0; j < n; j++ {
		s := []int{j}
		mark[j] = j
		for _, r := range lower[j] {
			if mark[r] != j {
				mark[r] = j
				s = append(s, r)
			}
		}
		for _, c := range children[j] {
			for _, r := range structs[c] {
				if r != c && mark[r] != j {
					mark[r] = j
					s = append(s, r)
				}
			}
		}
		sort.Ints(s)
		structs[j] = s
	}

	return structs
}
