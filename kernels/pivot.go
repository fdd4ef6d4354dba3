// SPDX-License-Identifier: MIT

package kernels

import (
	"math"

	"gonum.org/v1/gonum/blas"
)

// swapSym exchanges indices i and j of the symmetric front.
//
// Rows i and j of the columns left of i are swapped, as is the symmetric
// part between them. Below j only rows up to rowEnd are touched, which lets
// a diagonal-block task leave the panel tiles to their own tasks.
func (r *Region) swapSym(i, j, rowEnd int) {
	if i == j {
		return
	}
	if i > j {
		i, j = j, i
	}
	a, ld := r.A, r.LD
	for c := 0; c < i; c++ {
		a[c*ld+i], a[c*ld+j] = a[c*ld+j], a[c*ld+i]
	}
	a[i*ld+i], a[j*ld+j] = a[j*ld+j], a[i*ld+i]
	for c := i + 1; c < j; c++ {
		a[i*ld+c], a[c*ld+j] = a[c*ld+j], a[i*ld+c]
	}
	for row := j + 1; row < rowEnd; row++ {
		a[i*ld+row], a[j*ld+row] = a[j*ld+row], a[i*ld+row]
	}
	r.Perm[i], r.Perm[j] = r.Perm[j], r.Perm[i]
}

// permuteSym reorders the trailing indices [q, n): new position x takes old
// position q+order[x].
func (r *Region) permuteSym(q int, order []int) {
	w := len(order)
	if w == 0 {
		return
	}
	a, ld := r.A, r.LD
	tmp := make([]float64, w*w)
	for c := 0; c < q; c++ {
		col := a[c*ld+q : c*ld+q+w]
		for x, o := range order {
			tmp[x] = col[o]
		}
		copy(col, tmp[:w])
	}
	for y := 0; y < w; y++ {
		for x := y; x < w; x++ {
			v := a[(q+y)*ld+q+x]
			tmp[y*w+x], tmp[x*w+y] = v, v
		}
	}
	for y := 0; y < w; y++ {
		for x := y; x < w; x++ {
			a[(q+y)*ld+q+x] = tmp[order[y]*w+order[x]]
		}
	}
	if h := r.M - r.N; h > 0 {
		below := make([]float64, h*w)
		for y := 0; y < w; y++ {
			copy(below[y*h:(y+1)*h], a[(q+y)*ld+r.N:(q+y)*ld+r.M])
		}
		for y, o := range order {
			copy(a[(q+y)*ld+r.N:(q+y)*ld+r.M], below[o*h:(o+1)*h])
		}
	}
	perm := make([]int, w)
	for x, o := range order {
		perm[x] = r.Perm[q+o]
	}
	copy(r.Perm[q:q+w], perm)
}

// rotate moves the window [q, q+nb) behind the other columns of [q, n).
func (r *Region) rotate(q, nb int) {
	w := r.N - q
	if nb >= w {
		return
	}
	order := make([]int, 0, w)
	for x := nb; x < w; x++ {
		order = append(order, x)
	}
	for x := 0; x < nb; x++ {
		order = append(order, x)
	}
	r.permuteSym(q, order)
}

// maxLower locates the entry of largest magnitude in the lower triangle of
// the square [k, end). Ties keep the first entry in column-major order.
func (r *Region) maxLower(k, end int) (bi, bj int, amax float64) {
	bi, bj, amax = k, k, -1
	for j := k; j < end; j++ {
		col := r.A[j*r.LD : j*r.LD+end]
		for i := j; i < end; i++ {
			if v := abs(col[i]); v > amax {
				bi, bj, amax = i, j, v
			}
		}
	}

	return bi, bj, amax
}

// completePivot chooses a pivot from the largest entry of [k, end): a 1×1
// on whichever of its row and column diagonals passes the threshold test,
// else the 2×2 they span. t2 < 0 means a 1×1 pivot on t1.
func (r *Region) completePivot(k, end int, p *Params) (t1, t2 int, amax float64) {
	bi, bj, amax := r.maxLower(k, end)
	if bi == bj {
		return bj, -1, amax
	}
	t := bj
	if abs(r.at(bi, bi)) > abs(r.at(bj, bj)) {
		t = bi
	}
	if att := abs(r.at(t, t)); att >= p.U*amax && att > p.Small {
		return t, -1, amax
	}

	return bj, bi, amax
}

// pivot1 eliminates the 1×1 pivot at k, updating columns (k, colEnd) over
// rows below them up to rowEnd.
func (r *Region) pivot1(k, rowEnd, colEnd int) {
	a, ld := r.A, r.LD
	col := a[k*ld : k*ld+rowEnd]
	dinv := 1 / col[k]
	for j := k + 1; j < colEnd; j++ {
		lj := col[j] * dinv
		if lj == 0 {
			continue
		}
		cj := a[j*ld : j*ld+rowEnd]
		for i := j; i < rowEnd; i++ {
			cj[i] -= col[i] * lj
		}
	}
	for i := k + 1; i < rowEnd; i++ {
		col[i] *= dinv
	}
	col[k] = 1
	r.D[2*k], r.D[2*k+1] = dinv, 0
}

// invert2x2 returns the inverse of [[a11, a21], [a21, a22]].
func invert2x2(a11, a21, a22 float64) (i11, i21, i22, det float64) {
	det = a11*a22 - a21*a21

	return a22 / det, -a21 / det, a11 / det, det
}

// pivot2 eliminates the 2×2 pivot at (k, k+1).
func (r *Region) pivot2(k, rowEnd, colEnd int) {
	a, ld := r.A, r.LD
	c0 := a[k*ld : k*ld+rowEnd]
	c1 := a[(k+1)*ld : (k+1)*ld+rowEnd]
	i11, i21, i22, _ := invert2x2(c0[k], c0[k+1], c1[k+1])
	for j := k + 2; j < colEnd; j++ {
		l0 := c0[j]*i11 + c1[j]*i21
		l1 := c0[j]*i21 + c1[j]*i22
		cj := a[j*ld : j*ld+rowEnd]
		for i := j; i < rowEnd; i++ {
			cj[i] -= c0[i]*l0 + c1[i]*l1
		}
	}
	for i := k + 2; i < rowEnd; i++ {
		w0, w1 := c0[i], c1[i]
		c0[i] = w0*i11 + w1*i21
		c1[i] = w0*i21 + w1*i22
	}
	c0[k], c0[k+1], c1[k+1] = 1, 0, 1
	r.D[2*k], r.D[2*k+1] = i11, i21
	r.D[2*k+2], r.D[2*k+3] = math.Inf(1), i22
}

// zeroPivot records a zero pivot at k: L(:, k) = e_k and D⁻¹ = 0.
func (r *Region) zeroPivot(k int) {
	col := r.A[k*r.LD : k*r.LD+r.M]
	clear(col[k+1:])
	col[k] = 1
	r.D[2*k], r.D[2*k+1] = 0, 0
}

// factorDiag factors the diagonal block [q, q+nb) in place.
//
// With pivoting, each step takes the complete pivot of the remaining block
// and lperm records the local permutation applied (lperm[x] is the original
// window position now at x). Without pivoting, 1×1 pivots are taken in
// order and the first one that is tiny or yields a multiplier above 1/u
// stops the block. The return value is the number of accepted pivots.
func (r *Region) factorDiag(q, nb int, p *Params, pivoting bool, lperm []int) int {
	end := q + nb
	for i := range lperm {
		lperm[i] = i
	}
	swap := func(i, j int) {
		r.swapSym(i, j, end)
		lperm[i-q], lperm[j-q] = lperm[j-q], lperm[i-q]
	}
	limit := 1 / p.U
	k := q
	for k < end {
		if !pivoting {
			if abs(r.at(k, k)) <= p.Small {
				break
			}
			r.pivot1(k, end, end)
			if !withinLimit(r.A[k*r.LD+k+1:k*r.LD+end], limit) {
				break
			}
			k++
			continue
		}
		t1, t2, amax := r.completePivot(k, end, p)
		if amax <= p.Small {
			break
		}
		swap(k, t1)
		if t2 < 0 {
			r.pivot1(k, end, end)
			k++
			continue
		}
		swap(k+1, t2)
		r.pivot2(k, end, end)
		k += 2
	}

	return k - q
}

// withinLimit reports whether every |v| <= limit.
func withinLimit(v []float64, limit float64) bool {
	for _, x := range v {
		if abs(x) > limit {
			return false
		}
	}

	return true
}

// applyPivots turns the panel rows [r0, r0+rows) of window [q, q+nb) into
// multipliers for the first ne pivots and returns how many leading pivots
// kept every multiplier within 1/u.
//
// The columns are first permuted by lperm (nil keeps them); the remaining
// nb-ne columns are left permuted but unsolved.
func (r *Region) applyPivots(r0, rows, q, nb, ne int, lperm []int, p *Params) int {
	a, ld := r.A, r.LD
	off := q*ld + r0
	if lperm != nil {
		tmp := make([]float64, rows*nb)
		for c := 0; c < nb; c++ {
			copy(tmp[c*rows:(c+1)*rows], a[off+c*ld:off+c*ld+rows])
		}
		for c, o := range lperm[:nb] {
			copy(a[off+c*ld:off+c*ld+rows], tmp[o*rows:(o+1)*rows])
		}
	}
	if ne == 0 || rows == 0 {
		return ne
	}
	trsm(blas.Right, blas.Lower, blas.Trans, blas.Unit, rows, ne, 1, a[q*ld+q:], ld, a[off:], ld)
	r.scaleByDinv(r0, rows, q, ne)
	limit := 1 / p.U
	for c := 0; c < ne; c++ {
		if !withinLimit(a[off+c*ld:off+c*ld+rows], limit) {
			return c
		}
	}

	return ne
}

// scaleByDinv multiplies rows [r0, r0+rows) of pivot columns [q, q+ne) by D⁻¹.
func (r *Region) scaleByDinv(r0, rows, q, ne int) {
	a, ld, d := r.A, r.LD, r.D
	for j := q; j < q+ne; {
		c0 := a[j*ld+r0 : j*ld+r0+rows]
		if isTwoByTwo(d, j) {
			c1 := a[(j+1)*ld+r0 : (j+1)*ld+r0+rows]
			i11, i21, i22 := d[2*j], d[2*j+1], d[2*j+3]
			for x := range c0 {
				w0, w1 := c0[x], c1[x]
				c0[x] = w0*i11 + w1*i21
				c1[x] = w0*i21 + w1*i22
			}
			j += 2
			continue
		}
		dinv := d[2*j]
		for x := range c0 {
			c0[x] *= dinv
		}
		j++
	}
}

// calcLD writes W = L·D for rows [r0, r0+rows) of pivot columns [q, q+np)
// into w (leading dimension ldw), rebuilding D from the stored D⁻¹.
func (r *Region) calcLD(r0, rows, q, np int, w []float64, ldw int) {
	a, ld, d := r.A, r.LD, r.D
	for j := q; j < q+np; {
		l0 := a[j*ld+r0 : j*ld+r0+rows]
		w0 := w[(j-q)*ldw : (j-q)*ldw+rows]
		if isTwoByTwo(d, j) && j+1 < q+np {
			l1 := a[(j+1)*ld+r0 : (j+1)*ld+r0+rows]
			w1 := w[(j+1-q)*ldw : (j+1-q)*ldw+rows]
			d11, d21, d22, det := invert2x2(d[2*j], d[2*j+1], d[2*j+3])
			if det == 0 {
				clear(w0)
				clear(w1)
			} else {
				for x := range l0 {
					w0[x] = l0[x]*d11 + l1[x]*d21
					w1[x] = l0[x]*d21 + l1[x]*d22
				}
			}
			j += 2
			continue
		}
		if dinv := d[2*j]; dinv == 0 {
			clear(w0)
		} else {
			dj := 1 / dinv
			for x := range l0 {
				w0[x] = l0[x] * dj
			}
		}
		j++
	}
}
