// SPDX-License-Identifier: MIT
package kernels_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/katalvlaran/spldlt/config"
	"github.com/katalvlaran/spldlt/internal/testmat"
	"github.com/katalvlaran/spldlt/kernels"
	"github.com/katalvlaran/spldlt/memory"
	"github.com/katalvlaran/spldlt/task"
)

// benchSizes are the front orders to benchmark.
var benchSizes = []int{128, 256, 512}

// sink defeats dead-code elimination.
var sinkRes kernels.Result

func BenchmarkFactorIndef(b *testing.B) {
	b.ReportAllocs()
	for _, n := range benchSizes {
		for _, method := range []config.PivotMethod{config.PivotBlock, config.PivotAggressive} {
			b.Run(fmt.Sprintf("n=%d/%s", n, method), func(b *testing.B) {
				a := testmat.RandIndef(randSource(1337), n)
				orig := newRegion(a, n)
				r := newRegion(a, n)
				p := kernels.NewParams(config.New(config.WithBlockSize(64), config.WithPivotMethod(method)), true)
				rt := task.NewPool(context.Background(), 0, nil)
				defer func() { _ = rt.Close() }()
				bk, err := kernels.NewBackup(memory.Heap{}, n, n)
				if err != nil {
					b.Fatal(err)
				}
				defer bk.Release()
				grid := kernels.NewGrid(rt, "bench", 0, p.BlockSize, p.BlockSize, n, n)
				defer grid.Release()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					b.StopTimer()
					copy(r.A, orig.A)
					copy(r.Perm, orig.Perm)
					clear(r.D)
					cd := kernels.NewColumnData(n, p.BlockSize)
					b.StartTimer()
					res, err := kernels.FactorIndef(context.Background(), rt, r, grid, bk, cd, p)
					if err != nil {
						b.Fatal(err)
					}
					sinkRes = res
				}
			})
		}
	}
}

func BenchmarkFactorPosDef(b *testing.B) {
	b.ReportAllocs()
	for _, n := range benchSizes {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			a := testmat.RandPosDef(randSource(4242), n)
			orig := newRegion(a, n)
			r := newRegion(a, n)
			rt := task.NewPool(context.Background(), 0, nil)
			defer func() { _ = rt.Close() }()
			grid := kernels.NewGrid(rt, "bench", 0, 64, 64, n, n)
			defer grid.Release()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				copy(r.A, orig.A)
				b.StartTimer()
				if err := kernels.FactorPosDef(context.Background(), rt, r, grid); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
