// Package store holds the in-memory task and settings state and mirrors every
// mutation to the record store in the background.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Backend is the record store the persister writes to. *db.DB satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

const writeTimeout = 5 * time.Second

// Persister performs fire-and-forget writes. Writes are serialised, and a
// write whose key has since been given a newer snapshot is skipped, so the
// stored record always converges on the latest in-memory state.
type Persister struct {
	backend Backend
	logger  *log.Logger

	writeMu sync.Mutex

	genMu sync.Mutex
	gen   map[string]uint64

	wg sync.WaitGroup
}

// NewPersister creates a persister for backend
func NewPersister(backend Backend, logger *log.Logger) *Persister {
	return &Persister{
		backend: backend,
		logger:  logger,
		gen:     make(map[string]uint64),
	}
}

// Save overwrites key with value
func (p *Persister) Save(key string, value []byte) {
	v := string(value)
	p.submit(key, "save", func(ctx context.Context) error {
		return p.backend.Set(ctx, key, v)
	})
}

// SaveMerged overlays the top-level fields of value on the record already
// stored under key, keeping fields this version does not know about.
func (p *Persister) SaveMerged(key string, value []byte) {
	v := append([]byte(nil), value...)
	p.submit(key, "save", func(ctx context.Context) error {
		merged, err := p.mergeWithStored(ctx, key, v)
		if err != nil {
			return err
		}
		return p.backend.Set(ctx, key, string(merged))
	})
}

// Remove deletes the record stored under key
func (p *Persister) Remove(key string) {
	p.submit(key, "remove", func(ctx context.Context) error {
		return p.backend.Delete(ctx, key)
	})
}

// Flush blocks until every submitted write has finished
func (p *Persister) Flush() {
	p.wg.Wait()
}

func (p *Persister) submit(key, op string, write func(context.Context) error) {
	p.genMu.Lock()
	p.gen[key]++
	mine := p.gen[key]
	p.genMu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.writeMu.Lock()
		defer p.writeMu.Unlock()

		if p.superseded(key, mine) {
			p.logger.Debug("skipping superseded write", "key", key, "op", op)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := write(ctx); err != nil {
			p.logger.Error("storage write failed", "key", key, "op", op, "err", err)
			return
		}
		p.logger.Debug("storage write", "key", key, "op", op)
	}()
}

func (p *Persister) superseded(key string, gen uint64) bool {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	return p.gen[key] != gen
}

func (p *Persister) mergeWithStored(ctx context.Context, key string, value []byte) ([]byte, error) {
	var incoming map[string]json.RawMessage
	if err := json.Unmarshal(value, &incoming); err != nil {
		return nil, err
	}

	stored, found, err := p.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]json.RawMessage)
	if found {
		if err := json.Unmarshal([]byte(stored), &merged); err != nil {
			p.logger.Warn("discarding unreadable stored record", "key", key, "err", err)
			merged = make(map[string]json.RawMessage)
		}
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return json.Marshal(merged)
}
