// Package parallel provides data-parallel loop helpers for CPU kernels.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Config bounds how loops are spread across goroutines.
type Config struct {
	Enabled      bool // run on goroutines when true, inline otherwise
	NumWorkers   int  // goroutines claiming work
	MinChunkSize int  // below this many items the loop always runs inline
}

// DefaultConfig sizes the pool to the machine.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// For calls f(i) once for every i in [0, n), inline when the loop is small
// or parallelism is disabled.
//
// Workers claim index blocks of MinChunkSize from a shared cursor, so
// uneven per-item cost balances across goroutines without a coordinator.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	stride := cfg.MinChunkSize
	workers := cfg.NumWorkers
	if blocks := (n + stride - 1) / stride; workers > blocks {
		workers = blocks
	}
	if workers < 1 {
		workers = 1
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				start := int(cursor.Add(int64(stride))) - stride
				if start >= n {
					return
				}
				end := min(start+stride, n)
				for i := start; i < end; i++ {
					f(i)
				}
			}
		}()
	}
	wg.Wait()
}
