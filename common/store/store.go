package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/fx"

	"github.com/yawfe/stormd/common/config"
)

//go:generate mockgen -package $GOPACKAGE -source $GOFILE -destination=store_mock.go Store

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// Value is a stored blob and the store revision it was last written at.
type Value struct {
	Data    []byte
	Version int64
}

// Store is the coordination store shared by nimbus and the supervisors.
// Keys are slash separated paths; implementations may add their own prefix.
type Store interface {
	Get(ctx context.Context, key string) (*Value, error)
	// Put writes data and returns the new version.
	Put(ctx context.Context, key string, data []byte) (int64, error)
	// Delete removes every key atomically. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// List returns every key under prefix, keyed by the full key.
	List(ctx context.Context, prefix string) (map[string]*Value, error)
	// Subscribe notifies the latest revision whenever a key under prefix
	// changes. The channel is closed when ctx is done.
	Subscribe(ctx context.Context, prefix string) (<-chan int64, error)
}

// Params are the dependencies available to a store factory.
type Params struct {
	fx.In

	Cfg       config.Config
	Lifecycle fx.Lifecycle
}

// Factory builds a Store from configuration.
type Factory func(p Params) (Store, error)

var (
	storeRegistry = make(map[string]Factory)
)

// Register registers a store implementation under the name used in store.type.
// Implementations register themselves from init, so the binary chooses the
// backends it links in.
func Register(name string, factory Factory) {
	storeRegistry[name] = factory
}

// Registered returns the names of every registered implementation.
func Registered() []string {
	names := make([]string, 0, len(storeRegistry))
	for name := range storeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the store selected by the configuration.
func New(p Params) (Store, error) {
	factory, ok := storeRegistry[p.Cfg.Store.Type]
	if !ok {
		return nil, fmt.Errorf("no store registered with name %q, registered: %v", p.Cfg.Store.Type, Registered())
	}
	return factory(p)
}
