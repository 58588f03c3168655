// Package storage keeps packed records on disk: an indexed archive backed
// by pebble, and plain append-only record files.
package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/EarthScope/sac2mseed/pkg/codec"
)

// ErrNotFound is returned for an id that is not in the archive.
var ErrNotFound = errors.New("record not found")

const (
	recordPrefix = "r/"
	indexPrefix  = "i/"
	timeKeyLen   = 8
	idLen        = 20
)

// ArchiveConfig configures an Archive.
type ArchiveConfig struct {
	Dir string
	// Sync commits every write to stable storage before returning.
	Sync bool
}

// Entry is an archived record.
type Entry struct {
	ID     ksuid.KSUID
	Source string
	Start  codec.Time
	Raw    []byte
}

// Archive stores records keyed by source name, start time and a ksuid,
// so that a source scans in time order. A second key maps each ksuid to
// its record key.
type Archive struct {
	db        *pebble.DB
	decoder   codec.Decoder
	writeOpts *pebble.WriteOptions
}

// OpenArchive opens or creates the archive in cfg.Dir. Records are
// decoded with dec to find their source and start time.
func OpenArchive(cfg ArchiveConfig, dec codec.Decoder) (*Archive, error) {
	db, err := pebble.Open(cfg.Dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", cfg.Dir, err)
	}
	a := &Archive{db: db, decoder: dec, writeOpts: pebble.NoSync}
	if cfg.Sync {
		a.writeOpts = pebble.Sync
	}
	return a, nil
}

// timeKey encodes t so that byte order matches time order.
func timeKey(t codec.Time) []byte {
	b := make([]byte, timeKeyLen)
	binary.BigEndian.PutUint64(b, uint64(t)^(1<<63))
	return b
}

func sourcePrefix(source string) []byte {
	return []byte(recordPrefix + source + "/")
}

// sourceEnd sorts after every key of source.
func sourceEnd(source string) []byte {
	return []byte(recordPrefix + source + "0")
}

func recordKey(source string, start codec.Time, id ksuid.KSUID) []byte {
	key := sourcePrefix(source)
	key = append(key, timeKey(start)...)
	return append(key, id.Bytes()...)
}

func indexKey(id ksuid.KSUID) []byte {
	return append([]byte(indexPrefix), id.Bytes()...)
}

// parseRecordKey splits a record key into its parts.
func parseRecordKey(key []byte) (source string, start codec.Time, id ksuid.KSUID, err error) {
	rest := bytes.TrimPrefix(key, []byte(recordPrefix))
	tail := timeKeyLen + idLen
	if len(rest) < tail+1 || rest[len(rest)-tail-1] != '/' {
		return "", 0, ksuid.Nil, fmt.Errorf("malformed record key %q", key)
	}
	source = string(rest[:len(rest)-tail-1])
	start = codec.Time(binary.BigEndian.Uint64(rest[len(rest)-tail:]) ^ (1 << 63))
	id, err = ksuid.FromBytes(rest[len(rest)-idLen:])
	if err != nil {
		return "", 0, ksuid.Nil, fmt.Errorf("malformed record id: %w", err)
	}
	return source, start, id, nil
}

func entryOf(key, raw []byte) (*Entry, error) {
	source, start, id, err := parseRecordKey(key)
	if err != nil {
		return nil, err
	}
	return &Entry{ID: id, Source: source, Start: start, Raw: append([]byte(nil), raw...)}, nil
}

// Put archives a record and returns its id.
func (a *Archive) Put(raw []byte) (ksuid.KSUID, error) {
	rec, err := a.decoder.Decode(raw, false)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("failed to decode record: %w", err)
	}

	id := ksuid.New()
	key := recordKey(rec.SourceName(), rec.StartTime, id)

	batch := a.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(key, raw, nil); err != nil {
		return ksuid.Nil, fmt.Errorf("failed to stage record: %w", err)
	}
	if err := batch.Set(indexKey(id), key, nil); err != nil {
		return ksuid.Nil, fmt.Errorf("failed to stage index: %w", err)
	}
	if err := batch.Commit(a.writeOpts); err != nil {
		return ksuid.Nil, fmt.Errorf("failed to commit record: %w", err)
	}
	return id, nil
}

// WriteRecord archives a packed record.
func (a *Archive) WriteRecord(raw []byte) error {
	_, err := a.Put(raw)
	return err
}

func (a *Archive) lookup(id ksuid.KSUID) ([]byte, error) {
	key, closer, err := a.db.Get(indexKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	defer closer.Close()
	return append([]byte(nil), key...), nil
}

// Get returns the record with the given id.
func (a *Archive) Get(id ksuid.KSUID) (*Entry, error) {
	key, err := a.lookup(id)
	if err != nil {
		return nil, err
	}

	raw, closer, err := a.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	defer closer.Close()
	return entryOf(key, raw)
}

// Delete removes the record with the given id.
func (a *Archive) Delete(id ksuid.KSUID) error {
	key, err := a.lookup(id)
	if err != nil {
		return err
	}

	batch := a.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(key, nil); err != nil {
		return fmt.Errorf("failed to stage delete: %w", err)
	}
	if err := batch.Delete(indexKey(id), nil); err != nil {
		return fmt.Errorf("failed to stage delete: %w", err)
	}
	return batch.Commit(a.writeOpts)
}

// Scan calls fn for each record of source starting in [from, to], in
// start time order. An empty source scans every source.
func (a *Archive) Scan(source string, from, to codec.Time, fn func(*Entry) error) error {
	opts := &pebble.IterOptions{
		LowerBound: []byte(recordPrefix),
		UpperBound: []byte(recordPrefix[:len(recordPrefix)-1] + "0"),
	}
	if source != "" {
		opts.LowerBound = append(sourcePrefix(source), timeKey(from)...)
		if to < codec.Time(1<<63-1) {
			opts.UpperBound = append(sourcePrefix(source), timeKey(to+1)...)
		} else {
			opts.UpperBound = sourceEnd(source)
		}
	}

	iter, err := a.db.NewIter(opts)
	if err != nil {
		return fmt.Errorf("failed to open iterator: %w", err)
	}
	for iter.First(); iter.Valid(); iter.Next() {
		entry, err := entryOf(iter.Key(), iter.Value())
		if err != nil {
			iter.Close()
			return err
		}
		if entry.Start < from || entry.Start > to {
			continue
		}
		if err := fn(entry); err != nil {
			iter.Close()
			return err
		}
	}
	return iter.Close()
}

// Sources returns the archived source names in order.
func (a *Archive) Sources() ([]string, error) {
	var sources []string
	err := a.Scan("", codec.Time(-1<<63), codec.Time(1<<63-1), func(e *Entry) error {
		if n := len(sources); n == 0 || sources[n-1] != e.Source {
			sources = append(sources, e.Source)
		}
		return nil
	})
	return sources, err
}

// Close closes the archive.
func (a *Archive) Close() error {
	return a.db.Close()
}
