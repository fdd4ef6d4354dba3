// Package symbolic holds the read-only elimination tree consumed by the
// numeric factorization.
//
// The tree is an arena: Tree.Nodes is one contiguous slice and every link
// (Parent, FirstChild, NextChild, LeastDesc) is an index into it. Nodes are
// numbered so that children precede their parent; index Tree.Len() is the
// virtual root that parents every real root.
//
// Two constructors exist:
//
//   - NewTree consumes the Fortran-style 1-indexed arrays produced by an
//     external ordering/analysis phase (sptr, sparent, rptr, rlist, nptr,
//     nlist) and validates their consistency.
//   - Analyse is a minimal in-module analysis (elimination tree, postorder,
//     fundamental supernodes, entry maps) for a lower-triangular CSC pattern.
//     It feeds NewTree, so both paths share one validator.
//
// Row indices in the tree live in elimination order: row k is the k-th
// pivot. Tree.Perm maps that order back to the caller's numbering.
package symbolic
