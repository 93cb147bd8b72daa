package kvengine

import (
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// compact implements the §4.6 protocol: write one Set per live key into a
// fresh generation, repoint the index at it, then drop every older
// generation. It is called synchronously from Set/Remove when the
// stale-byte threshold is crossed — there is no background worker, because
// the store's contract is a single owner driving operations sequentially
// (spec §5).
func (s *Store) compact() error {
	newGen := s.activeGeneration + 1
	newSeg := newSegment(s.dir, newGen)

	newWriter, err := newSegmentWriter(newSeg.path)
	if err != nil {
		return ioErr("compact", err)
	}
	newReader, err := newSegmentReader(newSeg.path)
	if err != nil {
		newWriter.Close()
		return ioErr("compact", err)
	}

	oldGeneration := s.activeGeneration
	oldReaders := s.readers

	s.activeGeneration = newGen
	s.readers = map[uint64]*segmentReader{newGen: newReader}

	for key, rec := range s.index {
		sourceReader, ok := oldReaders[rec.Generation]
		if !ok {
			return corruptLogErr("compact", "no reader for generation referenced by index")
		}

		data, err := sourceReader.ReadAt(rec.Offset, rec.Length)
		if err != nil {
			return ioErr("compact", err)
		}

		destOffset := newWriter.Pos()
		if _, err := newWriter.Write(data); err != nil {
			return ioErr("compact", err)
		}

		s.index[key] = IndexRecord{Generation: newGen, Offset: destOffset, Length: rec.Length}
	}

	if s.fsync {
		if err := newWriter.Sync(); err != nil {
			return ioErr("compact", err)
		}
	} else if err := newWriter.Flush(); err != nil {
		return ioErr("compact", err)
	}
	if err := s.writer.Close(); err != nil {
		return ioErr("compact", err)
	}
	s.writer = newWriter

	if err := dropGenerations(s.dir, oldReaders, oldGeneration); err != nil {
		return ioErr("compact", err)
	}

	s.staleBytes = 0
	s.metrics.compactionsTotal.Inc()
	s.refreshGauges()
	s.logger.Info("compaction complete",
		zap.Uint64("new_generation", newGen),
		zap.Int("keys", len(s.index)),
	)
	return nil
}

// dropGenerations closes and deletes every retired generation file. The
// closes and deletes are independent of one another, so they fan out
// through an errgroup purely as an internal I/O-parallelism detail; this
// does not change the store's single-threaded external contract (spec §5).
func dropGenerations(dir string, retired map[uint64]*segmentReader, upTo uint64) error {
	var g errgroup.Group
	for gen, r := range retired {
		gen, r := gen, r
		if gen > upTo {
			continue
		}
		g.Go(func() error {
			if err := r.Close(); err != nil {
				return err
			}
			path := generationPath(dir, gen)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// closeReaders closes every reader concurrently, for the same reason
// dropGenerations does: the closes are independent.
func closeReaders(readers map[uint64]*segmentReader) error {
	var g errgroup.Group
	for _, r := range readers {
		r := r
		g.Go(r.Close)
	}
	return g.Wait()
}
