// Package front holds the dense storage of one supernode during the
// numeric factorization.
//
// A Front owns the fully-summed columns LCol (column-major, leading
// dimension LDL, lower triangle only), the pivot order Perm, the D⁻¹
// entries, and while active: the contribution block as a grid of Tiles,
// the kernel Backup, the ColumnData ledger and the static block grid.
//
// Dimensions grow with delayed columns: a front with NDelayIn delays has
// NRowEff = NRow+NDelayIn rows and NColEff = NCol+NDelayIn fully-summed
// columns. Local rows are ordered own columns, delayed columns, then the
// remaining symbolic rows.
package front
