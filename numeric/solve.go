package numeric

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/spldlt/front"
	"github.com/katalvlaran/spldlt/kernels"
)

// The solves below act in elimination order: row k of x belongs to the
// k-th eliminated variable of the symbolic analysis. x is column-major
// with nrhs columns and leading dimension ldx >= N.

// SolveForward overwrites x with L⁻¹x.
func (t *Tree) SolveForward(nrhs int, x []float64, ldx int) error {
	if err := t.checkSolve(nrhs, x, ldx); err != nil || nrhs == 0 {
		return err
	}
	buf := make([]float64, t.maxRows()*nrhs)
	for _, f := range t.fronts {
		m := f.NRowEff()
		gather(f, m, nrhs, x, ldx, buf)
		kernels.SolveForward(f.Region(), f.NElim, t.opts.PosDef, nrhs, buf, m)
		scatter(f, m, m, nrhs, x, ldx, buf)
	}

	return nil
}

// SolveDiagonal overwrites x with D⁻¹x. It is the identity for a
// positive-definite factorization.
func (t *Tree) SolveDiagonal(nrhs int, x []float64, ldx int) error {
	if err := t.checkSolve(nrhs, x, ldx); err != nil || nrhs == 0 || t.opts.PosDef {
		return err
	}
	buf := make([]float64, t.maxRows()*nrhs)
	for _, f := range t.fronts {
		gather(f, f.NElim, nrhs, x, ldx, buf)
		kernels.SolveDiagonal(f.Region(), f.NElim, nrhs, buf, f.NElim)
		scatter(f, f.NElim, f.NElim, nrhs, x, ldx, buf)
	}

	return nil
}

// SolveBackward overwrites x with L⁻ᵀx.
func (t *Tree) SolveBackward(nrhs int, x []float64, ldx int) error {
	if err := t.checkSolve(nrhs, x, ldx); err != nil || nrhs == 0 {
		return err
	}
	buf := make([]float64, t.maxRows()*nrhs)
	for i := len(t.fronts) - 1; i >= 0; i-- {
		f := t.fronts[i]
		m := f.NRowEff()
		gather(f, m, nrhs, x, ldx, buf)
		kernels.SolveBackward(f.Region(), f.NElim, t.opts.PosDef, nrhs, buf, m)
		scatter(f, f.NElim, m, nrhs, x, ldx, buf)
	}

	return nil
}

// Solve overwrites the caller-ordered right-hand sides x with A⁻¹x.
// Implementation:
//   - Stage 1: gather x into elimination order through the symbolic Perm.
//   - Stage 2: forward, diagonal and backward solves.
//   - Stage 3: scatter the result back.
func (t *Tree) Solve(ctx context.Context, nrhs int, x []float64, ldx int) (err error) {
	_, span := tracer.Start(ctx, "numeric.Tree.Solve",
		trace.WithAttributes(attribute.Int("nrhs", nrhs), attribute.Int("order", t.sym.N)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "solve failed")
		}
		span.End()
	}()
	if err = t.checkSolve(nrhs, x, ldx); err != nil || nrhs == 0 {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	n, perm := t.sym.N, t.sym.Perm
	y := x
	ldy := ldx
	if perm != nil {
		y, ldy = make([]float64, n*nrhs), n
		for c := 0; c < nrhs; c++ {
			for k, p := range perm {
				y[c*n+k] = x[c*ldx+p]
			}
		}
	}
	if err = t.SolveForward(nrhs, y, ldy); err != nil {
		return err
	}
	if err = t.SolveDiagonal(nrhs, y, ldy); err != nil {
		return err
	}
	if err = t.SolveBackward(nrhs, y, ldy); err != nil {
		return err
	}
	if perm != nil {
		for c := 0; c < nrhs; c++ {
			for k, p := range perm {
				x[c*ldx+p] = y[c*n+k]
			}
		}
	}

	return nil
}

func (t *Tree) checkSolve(nrhs int, x []float64, ldx int) error {
	n := t.sym.N
	switch {
	case !t.factored:
		return ErrNotFactorized
	case nrhs < 0 || ldx < max(n, 1):
		return fmt.Errorf("%w: nrhs %d, ldx %d for order %d", ErrDimension, nrhs, ldx, n)
	case nrhs > 0 && len(x) < (nrhs-1)*ldx+n:
		return fmt.Errorf("%w: %d values for %d right-hand sides", ErrDimension, len(x), nrhs)
	}
	for i, f := range t.fronts {
		if f == nil || f.LCol == nil {
			return fmt.Errorf("%w: node %d has no factor", ErrNotFactorized, i)
		}
	}

	return nil
}

func (t *Tree) maxRows() int {
	m := 0
	for _, f := range t.fronts {
		m = max(m, f.NRowEff())
	}

	return m
}

// gather copies the first m rows of front f from x into buf (leading dimension m).
func gather(f *front.Front, m, nrhs int, x []float64, ldx int, buf []float64) {
	for r := 0; r < m; r++ {
		g := f.GlobalRow(r)
		for c := 0; c < nrhs; c++ {
			buf[c*m+r] = x[c*ldx+g]
		}
	}
}

// scatter writes the first k rows of buf (leading dimension ld) back into x.
func scatter(f *front.Front, k, ld, nrhs int, x []float64, ldx int, buf []float64) {
	for r := 0; r < k; r++ {
		g := f.GlobalRow(r)
		for c := 0; c < nrhs; c++ {
			x[c*ldx+g] = buf[c*ld+r]
		}
	}
}
