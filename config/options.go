// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"math"

	"gopkg.in/yaml.v3"
)

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultU is the relative pivot threshold: a pivot is accepted when
	// |pivot| >= u * max|column|. Must lie in [0, 0.5].
	DefaultU = 0.01

	// DefaultSmall is the absolute tolerance below which a pivot is treated as zero.
	DefaultSmall = 1e-20

	// DefaultBlockSize is the tile edge used by the blocked kernels.
	DefaultBlockSize = 256

	// DefaultAction continues with an explicit zero pivot when a root node
	// cannot eliminate a column. When false the factorization fails instead.
	DefaultAction = true

	// DefaultSmallSubtreeFlops is the estimated work under which a whole
	// subtree is handed to the subtree collaborator.
	DefaultSmallSubtreeFlops = 4e6

	// DefaultWorkers lets the pool pick GOMAXPROCS.
	DefaultWorkers = 0

	// MaxU is the largest admissible pivot threshold.
	MaxU = 0.5
)

// ---------- Internal panic messages (no magic strings) ----------

const (
	panicUInvalid         = "config: WithU: u must be finite and within [0, 0.5]"
	panicSmallInvalid     = "config: WithSmall: small must be finite and non-negative"
	panicBlockSizeInvalid = "config: WithBlockSize: block size must be positive"
	panicWorkersInvalid   = "config: WithWorkers: workers must be non-negative"
	panicFlopsInvalid     = "config: WithSmallSubtreeFlops: threshold must be finite and non-negative"
)

// ---------- Enumerations ----------

// PivotMethod selects how candidate pivots are searched inside a front.
type PivotMethod int

const (
	// PivotBlock factors one window of columns at a time, checks the
	// off-diagonal multipliers a posteriori and retries failed columns.
	PivotBlock PivotMethod = iota
	// PivotAggressive factors the whole front without pivoting and falls
	// back to PivotBlock when any multiplier breaks the threshold.
	PivotAggressive
)

// FailedPivotMethod selects what happens to columns the blocked pass could not eliminate.
type FailedPivotMethod int

const (
	// FailedPivotTPP runs an unblocked threshold partial pivoting pass.
	FailedPivotTPP FailedPivotMethod = iota
	// FailedPivotPass delays every remaining column straight to the parent.
	FailedPivotPass
)

// ExecutorKind selects the task runtime strategy.
type ExecutorKind int

const (
	// ExecutorPool runs tasks on a dependency-tracking worker pool.
	ExecutorPool ExecutorKind = iota
	// ExecutorSequential runs every task inline at submission.
	ExecutorSequential
)

var (
	pivotNames    = map[PivotMethod]string{PivotBlock: "block", PivotAggressive: "aggressive"}
	failedNames   = map[FailedPivotMethod]string{FailedPivotTPP: "tpp", FailedPivotPass: "pass"}
	executorNames = map[ExecutorKind]string{ExecutorPool: "pool", ExecutorSequential: "sequential"}
)

func (p PivotMethod) String() string       { return enumString(pivotNames, p) }
func (f FailedPivotMethod) String() string { return enumString(failedNames, f) }
func (e ExecutorKind) String() string      { return enumString(executorNames, e) }

// MarshalYAML encodes the method by name.
func (p PivotMethod) MarshalYAML() (any, error) { return p.String(), nil }

// UnmarshalYAML decodes a method name such as "block" or "aggressive".
func (p *PivotMethod) UnmarshalYAML(n *yaml.Node) error { return enumDecode(n, pivotNames, p) }

// MarshalYAML encodes the method by name.
func (f FailedPivotMethod) MarshalYAML() (any, error) { return f.String(), nil }

// UnmarshalYAML decodes "tpp" or "pass".
func (f *FailedPivotMethod) UnmarshalYAML(n *yaml.Node) error {
	return enumDecode(n, failedNames, f)
}

// MarshalYAML encodes the executor by name.
func (e ExecutorKind) MarshalYAML() (any, error) { return e.String(), nil }

// UnmarshalYAML decodes "pool" or "sequential".
func (e *ExecutorKind) UnmarshalYAML(n *yaml.Node) error { return enumDecode(n, executorNames, e) }

func enumString[T comparable](names map[T]string, v T) string {
	if s, ok := names[v]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%v)", any(v))
}

func enumDecode[T comparable](n *yaml.Node, names map[T]string, dst *T) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	for v, name := range names {
		if name == s {
			*dst = v
			return nil
		}
	}
	return fmt.Errorf("%w: unknown value %q at line %d", ErrConfigParse, s, n.Line)
}

// ---------- Options ----------

// Options is the effective configuration of one factorization.
// Fields are exported so the struct can be decoded from YAML; programmatic
// callers should prefer New with Option setters.
type Options struct {
	U                 float64           `yaml:"u"`                   // relative pivot threshold
	Small             float64           `yaml:"small"`               // zero-pivot tolerance
	BlockSize         int               `yaml:"block_size"`          // tile edge
	Action            bool              `yaml:"action"`              // continue on singular
	PivotMethod       PivotMethod       `yaml:"pivot_method"`        // block | aggressive
	FailedPivotMethod FailedPivotMethod `yaml:"failed_pivot_method"` // tpp | pass
	SmallSubtreeFlops float64           `yaml:"small_subtree_flops"` // subtree hand-off threshold
	PosDef            bool              `yaml:"posdef"`              // Cholesky policy
	Executor          ExecutorKind      `yaml:"executor"`            // pool | sequential
	Workers           int               `yaml:"workers"`             // pool size, 0 = GOMAXPROCS

	Logger *slog.Logger `yaml:"-"`
}

// Option mutates Options. Constructors panic only on nonsensical values.
type Option func(*Options)

// Default returns the documented defaults.
func Default() Options {
	return Options{
		U:                 DefaultU,
		Small:             DefaultSmall,
		BlockSize:         DefaultBlockSize,
		Action:            DefaultAction,
		PivotMethod:       PivotBlock,
		FailedPivotMethod: FailedPivotTPP,
		SmallSubtreeFlops: DefaultSmallSubtreeFlops,
		Executor:          ExecutorPool,
		Workers:           DefaultWorkers,
	}
}

// New resolves opts over Default.
// Implementation:
//   - Stage 1: start from Default().
//   - Stage 2: apply every non-nil Option in order (last writer wins).
//
// Complexity:
//   - Time O(len(opts)), Space O(1).
func New(opts ...Option) Options {
	o := Default()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

// Apply returns a copy of o with opts applied.
func (o Options) Apply(opts ...Option) Options {
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

// Validate reports the first field outside its range.
// Errors:
//   - ErrInvalidOption wrapped with the field name.
func (o Options) Validate() error {
	switch {
	case !finite(o.U) || o.U < 0 || o.U > MaxU:
		return invalidf("u", "%v not in [0, %v]", o.U, MaxU)
	case !finite(o.Small) || o.Small < 0:
		return invalidf("small", "%v must be finite and non-negative", o.Small)
	case o.BlockSize < 1:
		return invalidf("block_size", "%d must be positive", o.BlockSize)
	case !finite(o.SmallSubtreeFlops) || o.SmallSubtreeFlops < 0:
		return invalidf("small_subtree_flops", "%v must be finite and non-negative", o.SmallSubtreeFlops)
	case o.Workers < 0:
		return invalidf("workers", "%d must be non-negative", o.Workers)
	}
	if _, ok := pivotNames[o.PivotMethod]; !ok {
		return invalidf("pivot_method", "%d", int(o.PivotMethod))
	}
	if _, ok := failedNames[o.FailedPivotMethod]; !ok {
		return invalidf("failed_pivot_method", "%d", int(o.FailedPivotMethod))
	}
	if _, ok := executorNames[o.Executor]; !ok {
		return invalidf("executor", "%d", int(o.Executor))
	}

	return nil
}

// Log returns the configured logger or slog.Default().
func (o Options) Log() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}

	return o.Logger
}

// ---------- Constructors (WithX) ----------

// WithU sets the relative pivot threshold.
// Errors:
//   - Panics when u is non-finite or outside [0, MaxU].
func WithU(u float64) Option {
	if !finite(u) || u < 0 || u > MaxU {
		panic(panicUInvalid)
	}

	return func(o *Options) { o.U = u }
}

// WithSmall sets the zero-pivot tolerance.
func WithSmall(small float64) Option {
	if !finite(small) || small < 0 {
		panic(panicSmallInvalid)
	}

	return func(o *Options) { o.Small = small }
}

// WithBlockSize sets the tile edge used by every blocked kernel.
// Notes:
//   - Small blocks expose more tasks; large blocks favor BLAS-3 efficiency.
func WithBlockSize(bs int) Option {
	if bs < 1 {
		panic(panicBlockSizeInvalid)
	}

	return func(o *Options) { o.BlockSize = bs }
}

// WithAction chooses between zero pivots (true) and ErrSingular (false)
// when a root node has columns it cannot eliminate.
func WithAction(action bool) Option {
	return func(o *Options) { o.Action = action }
}

// WithPivotMethod selects the in-front pivot search.
func WithPivotMethod(m PivotMethod) Option {
	return func(o *Options) { o.PivotMethod = m }
}

// WithFailedPivotMethod selects the treatment of columns the blocked pass left behind.
func WithFailedPivotMethod(m FailedPivotMethod) Option {
	return func(o *Options) { o.FailedPivotMethod = m }
}

// WithSmallSubtreeFlops sets the subtree hand-off threshold.
func WithSmallSubtreeFlops(flops float64) Option {
	if !finite(flops) || flops < 0 {
		panic(panicFlopsInvalid)
	}

	return func(o *Options) { o.SmallSubtreeFlops = flops }
}

// WithPosDef switches to the Cholesky policy (no pivoting, no delays).
func WithPosDef() Option {
	return func(o *Options) { o.PosDef = true }
}

// WithExecutor selects the runtime strategy.
func WithExecutor(e ExecutorKind) Option {
	return func(o *Options) { o.Executor = e }
}

// WithWorkers sets the pool size; 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	if n < 0 {
		panic(panicWorkersInvalid)
	}

	return func(o *Options) { o.Workers = n }
}

// WithLogger injects a structured logger. A nil logger restores slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
