// SPDX-License-Identifier: MIT

// Package config holds the numeric and scheduling options of the spldlt
// factorization engine.
//
// What:
//
//   - Options: pivot threshold u, small-pivot tolerance, block size,
//     action on singular, pivot-search policy, failed-pivot policy,
//     small-subtree threshold, positive-definite mode and executor choice.
//   - Option: functional setters (WithU, WithBlockSize, ...) that panic on
//     nonsensical values, mirroring the rest of the module.
//   - Load / Parse: YAML files decoded over the defaults, then validated.
//
// Defaults:
//
//   - U = 0.01, Small = 1e-20, BlockSize = 256, Action = true
//   - PivotMethod = block, FailedPivotMethod = tpp
//   - Executor = pool, Workers = 0 (resolved to GOMAXPROCS by the pool)
//
// Errors:
//
//   - ErrInvalidOption    an option value is out of its documented range
//   - ErrConfigTooLarge   YAML file exceeds MaxYAMLFileSize
//   - ErrConfigParse      YAML document could not be decoded
package config
