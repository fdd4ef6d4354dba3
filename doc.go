// Package spldlt is a task-based multifrontal solver for sparse symmetric
// indefinite systems A·x = b, computing P·A·Pᵀ = L·D·Lᵀ with threshold
// pivoting inside each front.
//
// What is in the module?
//
//	A pure-Go factorization engine that brings together:
//		• Symbolic analysis: elimination tree, supernodes, assembly tree
//		• Dense kernels: blocked APTP LDLᵀ, TPP fallback, Cholesky (gonum BLAS/LAPACK)
//		• Fronts: tiled contribution blocks, backups, per-block column data
//		• Task runtime: data-flow submission over read/write handles
//		• Numeric tree: assembly, factorization, delayed pivots, solves
//
// Everything is organized under these subpackages:
//
//	config/    Options, functional WithX setters, YAML loading
//	symbolic/  assembly tree (index arena) and the Analyse driver
//	task/      Runtime interface with pool and sequential strategies
//	memory/    Allocator interface, heap and size-class pool
//	kernels/   dense per-front factor, contribution and solve kernels
//	front/     per-node numeric storage and its lifecycle
//	numeric/   multifrontal factorization and forward/diagonal/backward solves
//	cmd/spldlt  command-line driver for generated problems
//
// Quick example of an assembly tree, leaves first:
//
//	    [4 5 6]        root: fully-summed columns 4..6
//	     /    \
//	 [0 1]   [2 3]     children pass contributions (and delayed columns) up
//
//	go run ./cmd/spldlt factor --grid 40 --shift 1.5
package spldlt
