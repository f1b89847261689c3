// Package observe provides observability primitives for cache operations.
//
// It is a pure instrumentation library: no caching, no transport, no I/O
// beyond exporter setup. The cache coordinator records every operation
// through a Recorder; consumers wire an Observer built here (or the noop
// one) into the cache configuration.
package observe
