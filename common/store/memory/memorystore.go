package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/yawfe/stormd/common/store"
)

func init() {
	store.Register("memory", func(store.Params) (store.Store, error) {
		return NewStore(), nil
	})
}

type subscriber struct {
	prefix string
	ch     chan int64
}

// Store is an in-process store.Store. Every write bumps a global revision,
// like etcd, so versions are comparable across keys.
type Store struct {
	sync.Mutex
	revision    int64
	data        map[string]*store.Value
	subscribers map[*subscriber]struct{}
}

var _ store.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		data:        make(map[string]*store.Value),
		subscribers: make(map[*subscriber]struct{}),
	}
}

func (s *Store) Get(ctx context.Context, key string) (*store.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Lock()
	defer s.Unlock()

	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrKeyNotFound
	}
	return copyValue(v), nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.Lock()
	defer s.Unlock()

	s.revision++
	s.data[key] = &store.Value{
		Data:    append([]byte(nil), data...),
		Version: s.revision,
	}
	s.notifyLocked(key)
	return s.revision, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()

	var deleted []string
	for _, key := range keys {
		if _, ok := s.data[key]; ok {
			delete(s.data, key)
			deleted = append(deleted, key)
		}
	}
	if len(deleted) == 0 {
		return nil
	}
	s.revision++
	for _, key := range deleted {
		s.notifyLocked(key)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) (map[string]*store.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Lock()
	defer s.Unlock()

	result := make(map[string]*store.Value)
	for key, v := range s.data {
		if strings.HasPrefix(key, prefix) {
			result[key] = copyValue(v)
		}
	}
	return result, nil
}

func (s *Store) Subscribe(ctx context.Context, prefix string) (<-chan int64, error) {
	sub := &subscriber{prefix: prefix, ch: make(chan int64, 1)}

	s.Lock()
	s.subscribers[sub] = struct{}{}
	s.Unlock()

	go func() {
		<-ctx.Done()
		s.Lock()
		delete(s.subscribers, sub)
		close(sub.ch)
		s.Unlock()
	}()
	return sub.ch, nil
}

// notifyLocked publishes the current revision to every subscriber of key,
// replacing a revision that has not been consumed yet.
func (s *Store) notifyLocked(key string) {
	for sub := range s.subscribers {
		if !strings.HasPrefix(key, sub.prefix) {
			continue
		}
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- s.revision
	}
}

func copyValue(v *store.Value) *store.Value {
	return &store.Value{
		Data:    append([]byte(nil), v.Data...),
		Version: v.Version,
	}
}
