package storage

// PrefixDB namespaces a DB by prepending a fixed prefix to every key, so
// caches for different networks can share one database.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB creates a new PrefixDB wrapping inner with the given prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: append([]byte{}, prefix...)}
}

func (p *PrefixDB) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	return append(out, k...)
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) { return p.inner.Get(p.key(key)) }

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error { return p.inner.Put(p.key(key), value) }

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error { return p.inner.Delete(p.key(key)) }

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) { return p.inner.Has(p.key(key)) }

// ForEach iterates over keys under prefix inside the namespace. Keys passed
// to fn have the namespace stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	n := len(p.prefix)
	return p.inner.ForEach(p.key(prefix), func(key, value []byte) error {
		return fn(key[n:], value)
	})
}

// Close is a no-op; the inner DB owns its lifecycle.
func (p *PrefixDB) Close() error {
	return nil
}
