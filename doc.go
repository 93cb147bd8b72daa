// Package kvengine implements a persistent, embeddable key/value store over
// strings. It is a log-structured engine in the bitcask family: writes are
// appended to a generation file, reads are served through an in-memory
// key→location index, and stale bytes are reclaimed by compacting live
// records into a fresh generation once a threshold is crossed.
//
// A Store is single-threaded cooperative: one owner drives Open, Set, Get,
// Remove and Close sequentially. It is not safe for concurrent use without
// external synchronization, and it is not safe for two Store instances
// (in-process or cross-process) to open the same directory at once.
package kvengine
