// Package numeric drives the multifrontal LDLᵀ factorization of a sparse
// symmetric matrix over an assembly tree built by package symbolic.
//
// Tree.Factorize submits, for every node of the tree and in node order,
// a small pipeline of tasks to a task.Runtime:
//
//	activate       sum the children's delayed columns, reserve storage
//	init           scatter the original entries of the node (AMap)
//	assemble-pre   per child: copy delayed columns and add the
//	               contribution entries that land on fully-summed columns
//	factor         dense LDLᵀ (or Cholesky) of the fully-summed columns
//	form-contrib   overwrite the contribution block with −L·D·Lᵀ
//	assemble-post  per child: add the remaining contribution entries
//	deactivate     per child: release everything but the factor
//
// Every task declares its node handles, so the runtime orders the
// pipelines of a parent after those of its children while siblings run
// concurrently. Subtrees flagged by the symbolic analysis are handed as a
// whole to a SubtreeFactorizer, whose Contribution the parent assembles
// like any other child.
//
// Solves:
//
//	SolveForward, SolveDiagonal and SolveBackward work in elimination
//	order on a column-major right-hand side; Solve wraps the three with
//	the symbolic ordering.
//
// Errors (sentinel):
//
//	– ErrNilTree        if New receives no symbolic tree.
//	– ErrValues         if the value array is shorter than the AMap needs.
//	– ErrNotFactorized  if a solve runs before a successful Factorize.
//	– ErrDimension      if a right-hand side does not fit the matrix.
//	– ErrContribution   if a subtree contribution does not match its node.
//
// Failures of the dense kernels (kernels.ErrSingular,
// kernels.ErrNotPositiveDefinite) and of the allocator
// (memory.ErrExhausted) are returned wrapped and can be matched with
// errors.Is.
//
// Example usage:
//
//	sym, _ := symbolic.Analyse(n, colPtr, rowIdx, nil)
//	nt, _ := numeric.New(sym, config.New())
//	info, err := nt.Factorize(ctx, val)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = nt.Solve(ctx, 1, b, n)
//	fmt.Println(info.NumDelay)
package numeric
