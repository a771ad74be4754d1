package rawdb

import (
	"sync"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/whistlenet/whistle/log"
)

// Lower bounds for the LevelDB cache (MB) and open file handles.
const (
	minCacheMB = 16
	minHandles = 16
)

// levelStore is the on-disk ledger database. Receipts and accounts are small
// and written once per command, so the block cache takes half of the memory
// budget and the write buffer a quarter.
type levelStore struct {
	path string
	db   *leveldb.DB

	closeOnce sync.Once
	closeErr  error
}

func openLevelStore(path string, cacheMB, handles int, readonly bool) (*levelStore, error) {
	cacheMB = max(cacheMB, minCacheMB)
	handles = max(handles, minHandles)
	opts := &opt.Options{
		BlockCacheCapacity:     cacheMB / 2 * opt.MiB,
		WriteBuffer:            cacheMB / 4 * opt.MiB,
		OpenFilesCacheCapacity: handles,
		Filter:                 filter.NewBloomFilter(10),
		ReadOnly:               readonly,
	}
	db, err := leveldb.OpenFile(path, opts)
	if lerrors.IsCorrupted(err) && !readonly {
		log.Warn("Recovering corrupted ledger database", "path", path, "err", err)
		db, err = leveldb.RecoverFile(path, opts)
	}
	if err != nil {
		return nil, err
	}
	log.Info("Opened ledger database", "path", path, "cache", cacheMB, "handles", handles, "readonly", readonly)
	return &levelStore{path: path, db: db}, nil
}

func (s *levelStore) Has(key []byte) (bool, error)   { return s.db.Has(key, nil) }
func (s *levelStore) Get(key []byte) ([]byte, error) { return s.db.Get(key, nil) }
func (s *levelStore) Put(key, value []byte) error    { return s.db.Put(key, value, nil) }
func (s *levelStore) Delete(key []byte) error        { return s.db.Delete(key, nil) }

func (s *levelStore) Stat(property string) (string, error) {
	return s.db.GetProperty(property)
}

func (s *levelStore) Compact(start, limit []byte) error {
	return s.db.CompactRange(util.Range{Start: start, Limit: limit})
}

// NewIterator walks the keys carrying prefix, beginning at prefix+start.
func (s *levelStore) NewIterator(prefix, start []byte) ethdb.Iterator {
	r := util.BytesPrefix(prefix)
	r.Start = append(append([]byte{}, prefix...), start...)
	return s.db.NewIterator(r, nil)
}

func (s *levelStore) NewBatch() ethdb.Batch {
	return &levelBatch{db: s.db}
}

func (s *levelStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// levelBatch buffers writes until Write applies them in one LevelDB batch.
type levelBatch struct {
	db   *leveldb.DB
	b    leveldb.Batch
	size int
}

func (b *levelBatch) Put(key, value []byte) error {
	b.b.Put(key, value)
	b.size += len(key) + len(value)
	return nil
}

func (b *levelBatch) Delete(key []byte) error {
	b.b.Delete(key)
	b.size += len(key)
	return nil
}

func (b *levelBatch) ValueSize() int { return b.size }

func (b *levelBatch) Write() error { return b.db.Write(&b.b, nil) }

func (b *levelBatch) Reset() {
	b.b.Reset()
	b.size = 0
}

func (b *levelBatch) Replay(w ethdb.KeyValueWriter) error {
	r := &batchReplayer{w: w}
	if err := b.b.Replay(r); err != nil {
		return err
	}
	return r.err
}

// batchReplayer forwards a LevelDB batch to a writer, keeping the first
// write error.
type batchReplayer struct {
	w   ethdb.KeyValueWriter
	err error
}

func (r *batchReplayer) Put(key, value []byte) {
	if r.err == nil {
		r.err = r.w.Put(key, value)
	}
}

func (r *batchReplayer) Delete(key []byte) {
	if r.err == nil {
		r.err = r.w.Delete(key)
	}
}
