package kvengine

import "io"

// IndexRecord locates the most recent live Set command for a key: the
// generation it lives in, its byte offset, and its encoded length.
type IndexRecord struct {
	Generation uint64
	Offset     int64
	Length     int64
}

// Index maps a key to the location of its most recent live Set command.
type Index map[string]IndexRecord

// loadSegment replays one segment's command stream into idx, applying the
// load protocol from spec §4.5: a later Set overwrites an earlier one, a
// Remove deletes the key from idx, and every superseded/removed byte range
// is folded into the returned stale-byte count. Callers replay generations
// in ascending order so later writes correctly override earlier ones.
func loadSegment(r *segmentReader, generation uint64, idx Index) (int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	dec := newDecoder(r)
	var stale int64

	for {
		d, err := dec.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}

		switch c := d.Command.(type) {
		case SetCommand:
			if prior, ok := idx[c.Key]; ok {
				stale += prior.Length
			}
			idx[c.Key] = IndexRecord{Generation: generation, Offset: d.Offset, Length: d.Length}
		case RemoveCommand:
			if prior, ok := idx[c.Key]; ok {
				stale += prior.Length
				delete(idx, c.Key)
			}
			stale += d.Length
		}
	}

	return stale, nil
}
