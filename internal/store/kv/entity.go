package kv

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/n1k0r/librenotes-server/internal/store"
)

// Entity stores one record kind as JSON under a key prefix and maintains its
// secondary indexes. All methods run inside a caller-supplied transaction so
// several entities can be read and written atomically.
//
// Key layout:
//
//	<prefix><id>                         record
//	uidx:<prefix><index>:<value>         id (unique index)
//	idx:<prefix><index>:<value>:<id>     empty (multi-valued index)
//
// Index keys live outside the record prefix so a prefix scan yields records only.
type Entity[T any] struct {
	prefix  string
	idOf    func(*T) string
	indexes []index[T]
}

type index[T any] struct {
	name   string
	unique bool
	keyGen func(*T) []string
}

// NewEntity creates an Entity for records under prefix, keyed by idOf.
func NewEntity[T any](prefix string, idOf func(*T) string) *Entity[T] {
	return &Entity[T]{prefix: prefix, idOf: idOf}
}

// WithUniqueIndex adds an index whose values may belong to a single record.
func (e *Entity[T]) WithUniqueIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, index[T]{name: name, unique: true, keyGen: keyGen})
	return e
}

// WithIndex adds a multi-valued index.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, index[T]{name: name, keyGen: keyGen})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) uniqueKey(name, value string) []byte {
	return []byte("uidx:" + e.prefix + name + ":" + value)
}

func (e *Entity[T]) indexPrefix(name, value string) []byte {
	return []byte("idx:" + e.prefix + name + ":" + value + ":")
}

// Get loads the record with id. Returns store.ErrNotFound when absent.
func (e *Entity[T]) Get(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get(e.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s%s: %w", e.prefix, id, err)
	}

	var entity T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal %s%s: %w", e.prefix, id, err)
	}
	return &entity, nil
}

// Lookup loads the record a unique index value points at.
func (e *Entity[T]) Lookup(txn *badger.Txn, indexName, value string) (*T, error) {
	item, err := txn.Get(e.uniqueKey(indexName, value))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get index %s: %w", indexName, err)
	}

	id, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return e.Get(txn, string(id))
}

// Insert writes a new record. Returns store.ErrAlreadyExists when the id or
// a unique index value is taken.
func (e *Entity[T]) Insert(txn *badger.Txn, entity *T) error {
	id := e.idOf(entity)
	if _, err := txn.Get(e.key(id)); err == nil {
		return store.ErrAlreadyExists
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("check existing key: %w", err)
	}
	return e.write(txn, nil, entity)
}

// Replace overwrites old with entity, moving index entries as needed.
func (e *Entity[T]) Replace(txn *badger.Txn, old, entity *T) error {
	return e.write(txn, old, entity)
}

// Remove deletes the record and its index entries.
func (e *Entity[T]) Remove(txn *badger.Txn, entity *T) error {
	id := e.idOf(entity)
	if err := e.dropIndexes(txn, entity); err != nil {
		return err
	}
	return txn.Delete(e.key(id))
}

// Each calls fn for every record of this kind.
func (e *Entity[T]) Each(txn *badger.Txn, fn func(*T) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(e.prefix)

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var entity T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &entity)
		}); err != nil {
			return fmt.Errorf("unmarshal %s: %w", it.Item().Key(), err)
		}
		if err := fn(&entity); err != nil {
			return err
		}
	}
	return nil
}

// EachIndexed calls fn for every record carrying value in a multi-valued index.
func (e *Entity[T]) EachIndexed(txn *badger.Txn, indexName, value string, fn func(*T) error) error {
	prefix := e.indexPrefix(indexName, value)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	var ids []string
	for it.Rewind(); it.Valid(); it.Next() {
		ids = append(ids, string(it.Item().Key()[len(prefix):]))
	}
	it.Close()

	for _, id := range ids {
		entity, err := e.Get(txn, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(entity); err != nil {
			return err
		}
	}
	return nil
}

func (e *Entity[T]) write(txn *badger.Txn, old, entity *T) error {
	id := e.idOf(entity)

	if old != nil {
		if err := e.dropIndexes(txn, old); err != nil {
			return err
		}
	}

	for _, idx := range e.indexes {
		if !idx.unique {
			continue
		}
		for _, value := range idx.keyGen(entity) {
			item, err := txn.Get(e.uniqueKey(idx.name, value))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("check index %s: %w", idx.name, err)
			}
			owner, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(owner) != id {
				return fmt.Errorf("index %s conflict on %q: %w", idx.name, value, store.ErrAlreadyExists)
			}
		}
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal %s%s: %w", e.prefix, id, err)
	}
	if err := txn.Set(e.key(id), data); err != nil {
		return err
	}

	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			if idx.unique {
				err = txn.Set(e.uniqueKey(idx.name, value), []byte(id))
			} else {
				err = txn.Set(append(e.indexPrefix(idx.name, value), id...), nil)
			}
			if err != nil {
				return fmt.Errorf("set index %s: %w", idx.name, err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) dropIndexes(txn *badger.Txn, entity *T) error {
	id := e.idOf(entity)
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			var key []byte
			if idx.unique {
				key = e.uniqueKey(idx.name, value)
			} else {
				key = append(e.indexPrefix(idx.name, value), id...)
			}
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete index %s: %w", idx.name, err)
			}
		}
	}
	return nil
}
