// Package sim provides the discrete-time put-rate simulator.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - config.go: run configuration, per-level defaults table and validation
//   - heuristics.go: stall and read-ratio logistics, compaction fan-out
//   - simulator.go: the fixed-length step loop and backlog state
//   - analysis.go: steady-state summary and bottleneck ranking
//
// # Architecture
//
// The core is split into three packages that form one predictive pipeline:
//   - sim/envelope/: measured device bandwidth grid and quadrilinear queries
//   - sim/ledger/: byte-counter accounting and write-amplification closure
//   - sim/: the simulator, which queries the envelope every step
//
// The ledger and the simulator are independent analyses of the same
// workload; ledger output feeds simulator configuration by hand, not by call.
// Soft diagnostics from every package are sim/trace notices carried in
// results rather than errors.
//
// Everything runs single-threaded. An envelope.Model is read-only after
// loading and may back any number of simulators.
package sim
