package blockstore

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
)

// diskBackend persists the keyed block table to a goleveldb database.
// goleveldb gives real point lookups by key instead of a linear disk
// scan per read.
type diskBackend struct {
	db *leveldb.DB
}

// Disk opens (or creates) a goleveldb database at path.
func Disk(path string) (Backend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &diskBackend{db: db}, nil
}

func (d *diskBackend) Get(key []byte) ([]byte, bool, error) {
	v, err := d.db.Get(key, nil)
	if errors.IsCorrupted(err) {
		return nil, false, err
	}
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (d *diskBackend) Put(key []byte, value []byte) error {
	return d.db.Put(key, value, nil)
}

func (d *diskBackend) Delete(key []byte) error {
	return d.db.Delete(key, nil)
}

func (d *diskBackend) ForEach(fn func(key, value []byte) error) error {
	iter := d.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (d *diskBackend) Count() (int, error) {
	var n int
	err := d.ForEach(func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}

func (d *diskBackend) Clear() error {
	iter := d.db.NewIterator(nil, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(iter.Key())
	}
	if err := iter.Error(); err != nil {
		return err
	}

	return d.db.Write(batch, nil)
}

func (d *diskBackend) Close() error {
	return d.db.Close()
}
