package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrSchemaViolation  = errors.New("schema violation")
	ErrRecordNotFound   = errors.New("record not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Backend is the physical document collection behind a Store. Documents are
// JSON-encoded courses keyed by id.
type Backend interface {
	// Open performs the physical setup. It may be called again after Close.
	Open(ctx context.Context) error
	// Insert fails with ErrDuplicateKey when the id already exists.
	Insert(ctx context.Context, id string, doc []byte) error
	// Get fails with ErrRecordNotFound when the id does not exist.
	Get(ctx context.Context, id string) ([]byte, error)
	List(ctx context.Context) ([][]byte, error)
	// Put inserts or fully replaces the document.
	Put(ctx context.Context, id string, doc []byte) error
	Close() error
}

// MemoryBackend keeps documents in a map. Nothing survives a restart.
type MemoryBackend struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	order []string
}

// NewMemoryBackend creates an unopened in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Open(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.docs == nil {
		b.docs = make(map[string][]byte)
	}
	return nil
}

func (b *MemoryBackend) Insert(_ context.Context, id string, doc []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.docs == nil {
		return fmt.Errorf("memory backend is not open")
	}
	if _, ok := b.docs[id]; ok {
		return ErrDuplicateKey
	}
	b.docs[id] = append([]byte(nil), doc...)
	b.order = append(b.order, id)
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, id string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.docs == nil {
		return nil, fmt.Errorf("memory backend is not open")
	}
	doc, ok := b.docs[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return append([]byte(nil), doc...), nil
}

func (b *MemoryBackend) List(_ context.Context) ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.docs == nil {
		return nil, fmt.Errorf("memory backend is not open")
	}
	docs := make([][]byte, 0, len(b.order))
	for _, id := range b.order {
		docs = append(docs, append([]byte(nil), b.docs[id]...))
	}
	return docs, nil
}

func (b *MemoryBackend) Put(_ context.Context, id string, doc []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.docs == nil {
		return fmt.Errorf("memory backend is not open")
	}
	if _, ok := b.docs[id]; !ok {
		b.order = append(b.order, id)
	}
	b.docs[id] = append([]byte(nil), doc...)
	return nil
}

// Close keeps the documents so a reopened backend still sees them.
func (b *MemoryBackend) Close() error {
	return nil
}
