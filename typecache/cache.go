// Package typecache interns resolved types by signature.
//
// A Cache keeps two generations. The source generation holds types that
// belong to the code being parsed and is dropped by Clear between runs. The
// class generation holds durable types, such as library types resolved from
// a classpath, and survives Clear so later runs reuse them. The class
// generation may be shared by concurrent parsers.
package typecache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/snappy"
)

// DefaultThreshold is the signature length above which keys are compressed.
// Below it a compressed key saves too little to pay for itself.
const DefaultThreshold = 50

// Origin selects the generation a value is stored in.
type Origin int

const (
	// OriginSource values are discarded by Clear.
	OriginSource Origin = iota
	// OriginClass values survive Clear.
	OriginClass
)

func (o Origin) String() string {
	switch o {
	case OriginSource:
		return "source"
	case OriginClass:
		return "class"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// Compressor turns a long signature into a shorter byte key.
type Compressor func(signature []byte) ([]byte, error)

// Snappy is the default Compressor.
func Snappy(signature []byte) ([]byte, error) {
	return snappy.Encode(nil, signature), nil
}

// KeyError reports a signature that could not be turned into a key. Cache
// methods panic with it: falling back to the uncompressed signature would
// split one signature across two keys.
type KeyError struct {
	Signature string
	Err       error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("typecache: compress key for signature of length %d: %v", len(e.Signature), e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// key is a signature as stored. Compressed keys never equal verbatim ones.
type key struct {
	s          string
	compressed bool
}

// Option configures a Cache.
type Option func(*config)

type config struct {
	threshold int
	compress  Compressor
}

// WithThreshold sets the signature length above which keys are compressed.
func WithThreshold(n int) Option {
	return func(c *config) {
		c.threshold = n
	}
}

// WithCompressor replaces the Snappy compressor.
func WithCompressor(fn Compressor) Option {
	return func(c *config) {
		c.compress = fn
	}
}

// Stats counts lookups since the cache was created or cloned.
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache maps type signatures to values of type T.
type Cache[T any] struct {
	cfg config

	mu     sync.RWMutex
	source map[key]T

	class    sync.Map // key -> T
	classLen atomic.Int64

	hits   atomic.Int64
	misses atomic.Int64
}

// New returns an empty cache.
func New[T any](opts ...Option) *Cache[T] {
	cfg := config{threshold: DefaultThreshold, compress: Snappy}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache[T]{cfg: cfg, source: make(map[key]T)}
}

func (c *Cache[T]) key(signature string) key {
	if len(signature) <= c.cfg.threshold {
		return key{s: signature}
	}
	b, err := c.cfg.compress([]byte(signature))
	if err != nil {
		panic(&KeyError{Signature: signature, Err: err})
	}
	return key{s: string(b), compressed: true}
}

// Get looks signature up in the source generation, then the class generation.
func (c *Cache[T]) Get(signature string) (T, bool) {
	k := c.key(signature)
	c.mu.RLock()
	v, ok := c.source[k]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return v, true
	}
	if cv, ok := c.class.Load(k); ok {
		c.hits.Add(1)
		return cv.(T), true
	}
	c.misses.Add(1)
	var zero T
	return zero, false
}

// Put stores v in the source generation.
func (c *Cache[T]) Put(signature string, v T) {
	c.PutOrigin(OriginSource, signature, v)
}

// PutOrigin stores v in the generation selected by origin.
func (c *Cache[T]) PutOrigin(origin Origin, signature string, v T) {
	k := c.key(signature)
	if origin == OriginClass {
		if _, loaded := c.class.Swap(k, v); !loaded {
			c.classLen.Add(1)
		}
		return
	}
	c.mu.Lock()
	c.source[k] = v
	c.mu.Unlock()
}

// Clear empties the source generation. The class generation is kept.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.source = make(map[key]T)
	c.mu.Unlock()
}

// Len returns the number of entries in both generations. The same signature
// stored in both counts twice.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	n := len(c.source)
	c.mu.RUnlock()
	return n + int(c.classLen.Load())
}

// Clone returns a cache with copies of both generations. Writes to either
// cache are not visible in the other.
func (c *Cache[T]) Clone() *Cache[T] {
	out := &Cache[T]{cfg: c.cfg}
	c.mu.RLock()
	out.source = make(map[key]T, len(c.source))
	for k, v := range c.source {
		out.source[k] = v
	}
	c.mu.RUnlock()
	c.class.Range(func(k, v any) bool {
		out.class.Store(k, v)
		out.classLen.Add(1)
		return true
	})
	return out
}

// Stats returns the hit and miss counts.
func (c *Cache[T]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
