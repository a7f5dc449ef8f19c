// Package store keeps versioned project snapshots in an embedded BadgerDB.
package store

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const keyPrefix = "project/"

var (
	// ErrNotFound is returned when a project has no snapshots
	ErrNotFound = errors.New("snapshot not found")
)

// Config holds configuration for the snapshot store
type Config struct {
	// Directory for database files. Ignored when InMemory is true
	Path string
	// No disk persistence
	InMemory bool
	// Synchronous writes
	SyncWrites bool
	// Forward badger internal logs to logrus
	Verbose bool
}

// DefaultConfig returns persistent store settings
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns settings for tests
func InMemoryConfig() Config {
	return Config{
		InMemory: true,
	}
}

// Snapshot is a single saved version of a project document
type Snapshot struct {
	Name    string
	Version int64
	Data    []byte
}

// Time returns the moment the snapshot was taken
func (s Snapshot) Time() time.Time {
	return time.Unix(0, s.Version)
}

// Store keeps project snapshots keyed by project name and version
type Store struct {
	db *badger.DB

	mu          sync.Mutex
	lastVersion int64
}

// Open creates and opens a store with the given configuration
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, errors.Wrapf(err, "can't create store directory '%s'", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Verbose {
		opts = opts.WithLogger(log.WithField("component", "badger"))
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "can't open badger database")
	}
	return &Store{db: db}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

func projectPrefix(name string) []byte {
	return []byte(keyPrefix + name + "/")
}

// Zero padded so lexicographic order matches numeric order
func snapshotKey(name string, version int64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", keyPrefix, name, version))
}

func parseKey(key []byte) (string, int64, error) {
	rest := strings.TrimPrefix(string(key), keyPrefix)
	idx := strings.LastIndex(rest, "/")
	if idx < 0 {
		return "", 0, errors.Errorf("malformed snapshot key '%s'", key)
	}
	version, err := strconv.ParseInt(rest[idx+1:], 10, 64)
	if err != nil {
		return "", 0, errors.Wrapf(err, "malformed snapshot key '%s'", key)
	}
	return rest[:idx], version, nil
}

// Versions are nanosecond timestamps, strictly increasing within a store
func (s *Store) nextVersion() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	version := time.Now().UnixNano()
	if version <= s.lastVersion {
		version = s.lastVersion + 1
	}
	s.lastVersion = version
	return version
}

// Put saves a new snapshot of the project document
func (s *Store) Put(name string, data []byte) (Snapshot, error) {
	if name == "" || strings.Contains(name, "/") {
		return Snapshot{}, errors.Errorf("invalid project name '%s'", name)
	}
	snapshot := Snapshot{Name: name, Version: s.nextVersion(), Data: data}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(name, snapshot.Version), data)
	})
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "can't put snapshot of '%s'", name)
	}
	log.WithFields(log.Fields{"project": name, "version": snapshot.Version, "bytes": len(data)}).Debug("Snapshot saved")
	return snapshot, nil
}

// Latest returns the most recent snapshot of the project
func (s *Store) Latest(name string) (Snapshot, error) {
	var snapshot Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := projectPrefix(name)
		// Reverse iteration starts at the greatest key not above the seek key
		it.Seek(append(append([]byte{}, prefix...), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return ErrNotFound
		}
		item := it.Item()
		_, version, err := parseKey(item.Key())
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		snapshot = Snapshot{Name: name, Version: version, Data: data}
		return nil
	})
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "can't get latest snapshot of '%s'", name)
	}
	return snapshot, nil
}

// Get returns the snapshot with exact version
func (s *Store) Get(name string, version int64) (Snapshot, error) {
	var snapshot Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(name, version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		snapshot = Snapshot{Name: name, Version: version, Data: data}
		return nil
	})
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "can't get snapshot %d of '%s'", version, name)
	}
	return snapshot, nil
}

// Versions lists snapshot versions of the project in ascending order
func (s *Store) Versions(name string) ([]int64, error) {
	versions := []int64{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := projectPrefix(name)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			_, version, err := parseKey(it.Item().Key())
			if err != nil {
				return err
			}
			versions = append(versions, version)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "can't list snapshots of '%s'", name)
	}
	return versions, nil
}

// Projects lists names of all projects with at least one snapshot
func (s *Store) Projects() ([]string, error) {
	names := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			name, _, err := parseKey(it.Item().Key())
			if err != nil {
				return err
			}
			if len(names) == 0 || names[len(names)-1] != name {
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't list projects")
	}
	sort.Strings(names)
	return names, nil
}

// Prune keeps only the newest keep snapshots of the project and returns how many were removed
func (s *Store) Prune(name string, keep int) (int, error) {
	versions, err := s.Versions(name)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(versions) <= keep {
		return 0, nil
	}
	stale := versions[:len(versions)-keep]
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, version := range stale {
			if err := txn.Delete(snapshotKey(name, version)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "can't prune snapshots of '%s'", name)
	}
	return len(stale), nil
}
