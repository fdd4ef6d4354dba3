// SPDX-License-Identifier: MIT

// Package task is the dependency-tracked task runtime behind the numeric
// factorization.
//
// Every operation is submitted as
//
//	g.Submit(name, fn, task.R(a), task.RW(b), ...)
//
// with the data handles it reads and writes. The runtime derives the task
// graph from submission order: a reader waits for the last writer of each
// handle, a writer waits for the last writer and every reader since. Tasks
// with no conflicting accesses run concurrently.
//
// Strategies:
//
//   - Sequential: runs each task inline at Submit. Submission order is a
//     valid schedule, so no tracking is needed.
//   - Pool: a fixed set of worker goroutines (errgroup-managed) with
//     explicit dependency counting. Group.Wait called from inside a task
//     keeps executing ready tasks, so nested fine-grained work submitted by
//     a running task cannot starve the pool.
//
// Errors:
//
//   - The first task error (or recovered panic) is fatal: later tasks are
//     skipped and every Wait returns it.
//   - ErrHandleReleased: a task referenced an unregistered handle.
//   - ErrClosed: Submit after Close.
package task
