// Command kvbench runs a fixed Set/Get/Remove workload against a store and
// reports per-operation throughput, adapting the timing-and-table report
// style this tree's comparison tooling used to produce across store
// versions into a single-engine benchmark.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/gtarraga/kvengine"
)

type phaseResult struct {
	Name     string
	Ops      int
	Duration time.Duration
	Errors   int
}

func (r phaseResult) opsPerSec() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Duration.Seconds()
}

func main() {
	dir := flag.String("dir", "", "store directory (a temp directory is used if empty)")
	keys := flag.Int("keys", 10_000, "number of distinct keys")
	valueSize := flag.Int("value-size", 64, "value size in bytes")
	fsync := flag.Bool("fsync", false, "fsync every write")
	threshold := flag.Int64("compaction-threshold", 0, "stale-byte compaction threshold (0 = default)")
	seed := flag.Int64("seed", 1, "random seed for the random-get access pattern")
	flag.Parse()

	storeDir := *dir
	if storeDir == "" {
		tmp, err := os.MkdirTemp("", "kvbench")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		storeDir = tmp
	}

	opts := []kvengine.Option{kvengine.WithFsync(*fsync)}
	if *threshold > 0 {
		opts = append(opts, kvengine.WithCompactionThreshold(*threshold))
	}

	store, err := kvengine.Open(storeDir, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	rng := rand.New(rand.NewSource(*seed))
	value := strings.Repeat("x", *valueSize)
	keyList := make([]string, *keys)
	for i := range keyList {
		keyList[i] = fmt.Sprintf("key-%08d", i)
	}

	results := []phaseResult{
		runPhase("set", *keys, func(i int) error { return store.Set(keyList[i], value) }),
		runPhase("get (sequential)", *keys, func(i int) error {
			_, _, err := store.Get(keyList[i])
			return err
		}),
		runPhase("get (random)", *keys, func(i int) error {
			_, _, err := store.Get(keyList[rng.Intn(len(keyList))])
			return err
		}),
		runPhase("remove", *keys, func(i int) error { return store.Remove(keyList[i]) }),
	}

	printResults(results)
}

func runPhase(name string, n int, op func(i int) error) phaseResult {
	start := time.Now()
	errs := 0
	for i := 0; i < n; i++ {
		if err := op(i); err != nil {
			errs++
		}
	}
	return phaseResult{Name: name, Ops: n, Duration: time.Since(start), Errors: errs}
}

func printResults(results []phaseResult) {
	fmt.Println(strings.Repeat("=", 64))
	fmt.Printf("%-20s %12s %14s %8s\n", "Phase", "Ops", "Ops/sec", "Errors")
	fmt.Println(strings.Repeat("-", 64))
	for _, r := range results {
		fmt.Printf("%-20s %12d %14.1f %8d\n", r.Name, r.Ops, r.opsPerSec(), r.Errors)
	}
	fmt.Println(strings.Repeat("=", 64))
}
