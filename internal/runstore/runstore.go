// Package runstore persists per-utterance decode records in BadgerDB
// so long evaluation runs can be resumed after an interruption.
//
// Records are keyed by run/<runID>/utt/<uttID> and encoded with
// msgpack. Each run id groups one pass over a posterior set; listing
// a run returns its finished utterances so a resumed run only decodes
// the remainder. The decode parameters the run started with live
// under run/<runID>/meta so a resumed invocation can detect a
// mismatched configuration.
package runstore

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("runstore: record not found")

// Record is one utterance's outcome within a run. Failed holds the
// decode error text when the utterance could not be decoded; the
// remaining fields are meaningful only when Failed is empty.
type Record struct {
	Utt       string   `msgpack:"utt"`
	Labels    []int    `msgpack:"labels"`
	Score     float64  `msgpack:"score"`
	Hyp       []string `msgpack:"hyp,omitempty"`
	Sub       int      `msgpack:"sub"`
	Del       int      `msgpack:"del"`
	Ins       int      `msgpack:"ins"`
	RefTokens int      `msgpack:"ref_tokens"`
	Failed    string   `msgpack:"failed,omitempty"`
}

// Meta pins the decode parameters a run was started with. A resumed
// invocation is only comparable when it decodes with the same
// parameters.
type Meta struct {
	Beam  int     `msgpack:"beam"`
	Alpha float64 `msgpack:"alpha"`
	Blank int     `msgpack:"blank"`
	Unit  string  `msgpack:"unit"`
}

// Options configures the store.
type Options struct {
	// Dir is the BadgerDB data directory. Required unless InMemory.
	Dir string

	// InMemory runs BadgerDB without disk persistence, for tests.
	InMemory bool

	// Logger receives badger's error and warning output. Nil uses
	// slog.Default(). Badger's info and debug chatter is dropped.
	Logger *slog.Logger
}

// Store is a BadgerDB-backed run record store.
type Store struct {
	db *badger.DB
}

// Open opens or creates the store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("runstore: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(slogLogger{logger})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("runstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

func validRunID(runID string) error {
	if runID == "" || strings.ContainsRune(runID, '/') {
		return fmt.Errorf("runstore: invalid run id %q", runID)
	}
	return nil
}

func recordKey(runID, utt string) ([]byte, error) {
	if err := validRunID(runID); err != nil {
		return nil, err
	}
	if utt == "" || strings.ContainsRune(utt, '/') {
		return nil, fmt.Errorf("runstore: invalid utterance id %q", utt)
	}
	return []byte("run/" + runID + "/utt/" + utt), nil
}

func metaKey(runID string) ([]byte, error) {
	if err := validRunID(runID); err != nil {
		return nil, err
	}
	return []byte("run/" + runID + "/meta"), nil
}

// Put stores one utterance record, overwriting any previous record
// for the same utterance in the same run.
func (s *Store) Put(runID string, rec Record) error {
	key, err := recordKey(runID, rec.Utt)
	if err != nil {
		return err
	}
	val, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("runstore: encode record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// Get retrieves one utterance record. Returns ErrNotFound if the run
// has no record for the utterance.
func (s *Store) Get(runID, utt string) (Record, error) {
	key, err := recordKey(runID, utt)
	if err != nil {
		return Record{}, err
	}
	var val []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := msgpack.Unmarshal(val, &rec); err != nil {
		return Record{}, fmt.Errorf("runstore: decode record: %w", err)
	}
	return rec, nil
}

// PutMeta stores the run's decode parameters, overwriting any
// previous ones.
func (s *Store) PutMeta(runID string, m Meta) error {
	key, err := metaKey(runID)
	if err != nil {
		return err
	}
	val, err := msgpack.Marshal(&m)
	if err != nil {
		return fmt.Errorf("runstore: encode meta: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// GetMeta retrieves the run's decode parameters. Returns ErrNotFound
// when the run has none stored.
func (s *Store) GetMeta(runID string) (Meta, error) {
	key, err := metaKey(runID)
	if err != nil {
		return Meta{}, err
	}
	var val []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Meta{}, ErrNotFound
	}
	if err != nil {
		return Meta{}, err
	}

	var m Meta
	if err := msgpack.Unmarshal(val, &m); err != nil {
		return Meta{}, fmt.Errorf("runstore: decode meta: %w", err)
	}
	return m, nil
}

// List iterates over a run's records in lexicographic utterance id
// order. An invalid run id yields a single error.
func (s *Store) List(runID string) iter.Seq2[Record, error] {
	prefix := []byte("run/" + runID + "/utt/")

	return func(yield func(Record, error) bool) {
		if err := validRunID(runID); err != nil {
			yield(Record{}, err)
			return
		}
		err := s.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = prefix
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				val, err := it.Item().ValueCopy(nil)
				if err != nil {
					if !yield(Record{}, err) {
						return nil
					}
					continue
				}

				var rec Record
				if err := msgpack.Unmarshal(val, &rec); err != nil {
					err = fmt.Errorf("runstore: decode record: %w", err)
					if !yield(Record{}, err) {
						return nil
					}
					continue
				}
				if !yield(rec, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(Record{}, err)
		}
	}
}

// slogLogger adapts slog for badger, dropping info and debug output.
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Errorf(f string, v ...interface{}) {
	s.l.Error("badger: " + strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (s slogLogger) Warningf(f string, v ...interface{}) {
	s.l.Warn("badger: " + strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (slogLogger) Infof(string, ...interface{})  {}
func (slogLogger) Debugf(string, ...interface{}) {}
