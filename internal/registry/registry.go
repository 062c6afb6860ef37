// Package registry maps job kinds to typed handlers. Kinds are registered at
// startup; enqueueing an unregistered kind or a payload that does not decode
// into the kind's payload type fails before anything is persisted.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joshu-sajeev/hrqueue/internal/dto"
)

var (
	ErrUnknownKind    = errors.New("unknown job kind")
	ErrInvalidPayload = errors.New("invalid job payload")
)

var validate = validator.New()

type entry struct {
	decode func(raw json.RawMessage) (any, error)
	run    func(ctx context.Context, payload any) error
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register binds fn to the kind of payload type P. P must be a value type.
// Registering a kind twice panics.
func Register[P dto.Payload](r *Registry, fn func(ctx context.Context, payload P) error) {
	var zero P
	kind := zero.Kind()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.entries[kind]; dup {
		panic(fmt.Sprintf("registry: kind %q registered twice", kind))
	}

	r.entries[kind] = entry{
		decode: func(raw json.RawMessage) (any, error) {
			return decodePayload[P](raw)
		},
		run: func(ctx context.Context, payload any) error {
			return fn(ctx, payload.(P))
		},
	}
}

func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.entries))
	for k := range r.entries {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Validate checks that raw decodes into the payload type of kind.
func (r *Registry) Validate(kind string, raw json.RawMessage) error {
	e, err := r.lookup(kind)
	if err != nil {
		return err
	}
	_, err = e.decode(raw)
	return err
}

// Dispatch decodes raw and runs the kind's handler. A panicking handler is
// reported as an error.
func (r *Registry) Dispatch(ctx context.Context, kind string, raw json.RawMessage) (err error) {
	e, err := r.lookup(kind)
	if err != nil {
		return err
	}

	payload, err := e.decode(raw)
	if err != nil {
		return err
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler %s panicked: %v", kind, rec)
		}
	}()

	return e.run(ctx, payload)
}

func (r *Registry) lookup(kind string) (entry, error) {
	r.mu.RLock()
	e, ok := r.entries[kind]
	r.mu.RUnlock()
	if !ok {
		return entry{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return e, nil
}
