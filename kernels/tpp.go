// SPDX-License-Identifier: MIT

package kernels

// tpp eliminates the columns [from, n) one pivot at a time with threshold
// partial pivoting over all m rows of the front.
//
// Candidates are tried in column order; the first that passes is taken.
// A column whose entries are all below Small becomes a zero pivot when
// Action is set. At a root nothing can be delayed, so when no candidate
// passes the largest remaining entry forces a pivot. Elsewhere the search
// stops and the rest is delayed.
func (r *Region) tpp(from int, p *Params) (nelim, nzero int, err error) {
	k := from
	for k < r.N {
		step, zero := r.tppSearch(k, p)
		if step == 0 {
			if !p.Root {
				break
			}
			if step, zero, err = r.forcePivot(k, p); err != nil {
				return k, nzero, err
			}
		}
		if zero {
			nzero++
		}
		k += step
	}

	return k, nzero, nil
}

func (r *Region) tppSearch(k int, p *Params) (step int, zero bool) {
	limit := 1 / p.U
	for t := k; t < r.N; t++ {
		cmax, imax := r.colMax(t, k, -1)
		att := abs(r.at(t, t))
		if cmax <= p.Small && att <= p.Small {
			if !p.Action {
				continue
			}
			r.swapSym(k, t, r.M)
			r.zeroPivot(k)
			return 1, true
		}
		if att >= p.U*cmax && att > p.Small {
			r.swapSym(k, t, r.M)
			r.pivot1(k, r.M, r.N)
			return 1, false
		}
		if imax >= 0 && imax < r.N && r.accept2x2(t, imax, k, limit) {
			lo, hi := min(t, imax), max(t, imax)
			r.swapSym(k, lo, r.M)
			r.swapSym(k+1, hi, r.M)
			r.pivot2(k, r.M, r.N)
			return 2, false
		}
	}

	return 0, false
}

// forcePivot takes the complete pivot of the trailing square at a root.
func (r *Region) forcePivot(k int, p *Params) (step int, zero bool, err error) {
	t1, t2, amax := r.completePivot(k, r.N, p)
	if amax <= p.Small {
		if !p.Action {
			return 0, false, ErrSingular
		}
		r.zeroPivot(k)
		return 1, true, nil
	}
	r.swapSym(k, t1, r.M)
	if t2 < 0 {
		r.pivot1(k, r.M, r.N)
		return 1, false, nil
	}
	r.swapSym(k+1, t2, r.M)
	r.pivot2(k, r.M, r.N)

	return 2, false, nil
}

// colMax returns the largest |A(i, t)| over the active rows i in [k, m),
// skipping t and excl, and the first row attaining it (-1 if none).
func (r *Region) colMax(t, k, excl int) (float64, int) {
	best, arg := 0.0, -1
	for i := k; i < r.M; i++ {
		if i == t || i == excl {
			continue
		}
		if v := abs(r.sym(i, t)); v > best || arg < 0 {
			best, arg = v, i
		}
	}

	return best, arg
}

// accept2x2 applies the 2×2 threshold test to the pair (t, s): every
// multiplier the pivot would produce must stay within limit.
func (r *Region) accept2x2(t, s, k int, limit float64) bool {
	i11, i21, i22, det := invert2x2(r.sym(t, t), r.sym(s, t), r.sym(s, s))
	if det == 0 {
		return false
	}
	c1, _ := r.colMax(t, k, s)
	c2, _ := r.colMax(s, k, t)

	return abs(i11)*c1+abs(i21)*c2 <= limit && abs(i21)*c1+abs(i22)*c2 <= limit
}
