// Package callrecord persists call metadata and conversation transcripts in
// an embedded BadgerDB store. Values are msgpack-encoded; transcript keys
// carry a big-endian sequence number so iteration returns utterances in
// order.
package callrecord

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when a call has no stored record.
var ErrNotFound = errors.New("callrecord: not found")

// CallMeta describes one relayed call.
type CallMeta struct {
	StreamSID string    `msgpack:"stream_sid"`
	CallSID   string    `msgpack:"call_sid,omitempty"`
	From      string    `msgpack:"from,omitempty"`
	To        string    `msgpack:"to,omitempty"`
	Backend   string    `msgpack:"backend,omitempty"`
	StartedAt time.Time `msgpack:"started_at"`
	EndedAt   time.Time `msgpack:"ended_at,omitempty"`
}

// TranscriptEntry is one utterance of either party.
type TranscriptEntry struct {
	Seq  uint64    `msgpack:"seq"`
	Role string    `msgpack:"role"`
	Text string    `msgpack:"text"`
	At   time.Time `msgpack:"at"`
}

// Options configures the store.
type Options struct {
	// Dir is the data directory. Required unless InMemory is set.
	Dir string
	// InMemory runs the store without disk persistence. Used in tests.
	InMemory bool
}

// Store is a BadgerDB-backed call archive. Safe for concurrent use.
type Store struct {
	db *badger.DB

	mu   sync.Mutex
	seqs map[string]uint64
}

// Open opens or creates the store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("callrecord: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(quietLogger{})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("callrecord: open: %w", err)
	}
	return &Store{db: db, seqs: make(map[string]uint64)}, nil
}

func metaKey(streamSID string) []byte {
	return []byte("meta:" + streamSID)
}

func transcriptPrefix(streamSID string) []byte {
	return []byte("t:" + streamSID + ":")
}

func transcriptKey(streamSID string, seq uint64) []byte {
	key := append(transcriptPrefix(streamSID), 0, 0, 0, 0, 0, 0, 0, 0)
	binary.BigEndian.PutUint64(key[len(key)-8:], seq)
	return key
}

// BeginCall records the start of a call.
func (s *Store) BeginCall(meta *CallMeta) error {
	if meta.StreamSID == "" {
		return errors.New("callrecord: meta missing stream SID")
	}
	if meta.StartedAt.IsZero() {
		meta.StartedAt = time.Now()
	}
	value, err := msgpack.Marshal(meta)
	if err != nil {
		return fmt.Errorf("callrecord: encode meta: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(meta.StreamSID), value)
	})
}

// EndCall stamps the end time on a call's metadata.
func (s *Store) EndCall(streamSID string, endedAt time.Time) error {
	meta, err := s.Meta(streamSID)
	if err != nil {
		return err
	}
	meta.EndedAt = endedAt
	value, err := msgpack.Marshal(meta)
	if err != nil {
		return fmt.Errorf("callrecord: encode meta: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(streamSID), value)
	})
}

// Meta returns a call's metadata.
func (s *Store) Meta(streamSID string) (*CallMeta, error) {
	var meta CallMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(streamSID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &meta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("callrecord: load meta: %w", err)
	}
	return &meta, nil
}

// AppendTranscript stores one utterance. Sequence numbers are per call and
// strictly increasing.
func (s *Store) AppendTranscript(streamSID, role, text string) error {
	if streamSID == "" {
		return errors.New("callrecord: empty stream SID")
	}

	s.mu.Lock()
	seq, ok := s.seqs[streamSID]
	if !ok {
		loaded, err := s.lastSeq(streamSID)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		seq = loaded
	}
	seq++
	s.seqs[streamSID] = seq
	s.mu.Unlock()

	entry := TranscriptEntry{Seq: seq, Role: role, Text: text, At: time.Now()}
	value, err := msgpack.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("callrecord: encode transcript: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(transcriptKey(streamSID, seq), value)
	})
}

// Transcript returns a call's utterances in order.
func (s *Store) Transcript(streamSID string) ([]TranscriptEntry, error) {
	prefix := transcriptPrefix(streamSID)
	var entries []TranscriptEntry
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry TranscriptEntry
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("callrecord: load transcript: %w", err)
	}
	return entries, nil
}

// Calls lists metadata for all recorded calls.
func (s *Store) Calls() ([]CallMeta, error) {
	prefix := []byte("meta:")
	var calls []CallMeta
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var meta CallMeta
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &meta)
			})
			if err != nil {
				return err
			}
			calls = append(calls, meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("callrecord: list calls: %w", err)
	}
	return calls, nil
}

// Close releases the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// lastSeq scans for the highest stored sequence of a call. Called once per
// call per process; subsequent appends use the cached counter.
func (s *Store) lastSeq(streamSID string) (uint64, error) {
	prefix := transcriptPrefix(streamSID)
	var last uint64
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			if len(key) >= 8 {
				last = binary.BigEndian.Uint64(key[len(key)-8:])
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("callrecord: scan sequence: %w", err)
	}
	return last, nil
}

// quietLogger keeps badger's info and debug chatter out of service logs.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
