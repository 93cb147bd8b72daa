package kvengine

import (
	"os"
	"path/filepath"
	"strconv"
)

// segment names one generation file, <G>.db, inside a store directory.
type segment struct {
	generation uint64
	path       string
}

func newSegment(dir string, generation uint64) *segment {
	return &segment{
		generation: generation,
		path:       generationPath(dir, generation),
	}
}

func generationPath(dir string, generation uint64) string {
	return filepath.Join(dir, strconv.FormatUint(generation, 10)+".db")
}

func (s *segment) exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *segment) size() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}
