package kvengine

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

// discoverGenerations enumerates dir for files named <N>.db, parses N as an
// unsigned 64-bit generation number, and returns them sorted ascending.
// Unmatched entries are ignored, per spec §4.4.
func discoverGenerations(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var generations []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".db") {
			continue
		}
		numeral := strings.TrimSuffix(name, ".db")
		gen, err := strconv.ParseUint(numeral, 10, 64)
		if err != nil {
			continue
		}
		generations = append(generations, gen)
	}

	sort.Slice(generations, func(i, j int) bool { return generations[i] < generations[j] })
	return generations, nil
}
