package metered

import (
	"context"
	"errors"

	"github.com/uber-go/tally"

	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/metrics"
	"github.com/yawfe/stormd/common/store"
)

const (
	opGet       = "get"
	opPut       = "put"
	opDelete    = "delete"
	opList      = "list"
	opSubscribe = "subscribe"
)

type meteredStore struct {
	wrapped    store.Store
	scope      tally.Scope
	logger     log.Logger
	timeSource clock.TimeSource
}

// NewStore wraps a store and records request counts, failures and latency
// per operation.
func NewStore(wrapped store.Store, scope tally.Scope, logger log.Logger, timeSource clock.TimeSource) store.Store {
	return &meteredStore{
		wrapped:    wrapped,
		scope:      scope,
		logger:     logger.WithTags(tag.ComponentStore),
		timeSource: timeSource,
	}
}

func (s *meteredStore) Get(ctx context.Context, key string) (value *store.Value, err error) {
	err = s.call(opGet, func() error {
		value, err = s.wrapped.Get(ctx, key)
		return err
	}, tag.Key(key))
	return value, err
}

func (s *meteredStore) Put(ctx context.Context, key string, data []byte) (version int64, err error) {
	err = s.call(opPut, func() error {
		version, err = s.wrapped.Put(ctx, key, data)
		return err
	}, tag.Key(key))
	return version, err
}

func (s *meteredStore) Delete(ctx context.Context, keys ...string) error {
	return s.call(opDelete, func() error {
		return s.wrapped.Delete(ctx, keys...)
	})
}

func (s *meteredStore) List(ctx context.Context, prefix string) (values map[string]*store.Value, err error) {
	err = s.call(opList, func() error {
		values, err = s.wrapped.List(ctx, prefix)
		return err
	}, tag.Key(prefix))
	return values, err
}

func (s *meteredStore) Subscribe(ctx context.Context, prefix string) (ch <-chan int64, err error) {
	err = s.call(opSubscribe, func() error {
		ch, err = s.wrapped.Subscribe(ctx, prefix)
		return err
	}, tag.Key(prefix))
	return ch, err
}

func (s *meteredStore) call(op string, fn func() error, tags ...tag.Tag) error {
	scope := s.scope.Tagged(map[string]string{metrics.OperationTag: op})

	scope.Counter(metrics.StoreRequests).Inc(1)
	before := s.timeSource.Now()
	err := fn()
	scope.Timer(metrics.StoreLatency).Record(s.timeSource.Since(before))

	if err != nil {
		s.updateErrorMetric(op, err, scope, tags)
	}
	return err
}

func (s *meteredStore) updateErrorMetric(op string, err error, scope tally.Scope, tags []tag.Tag) {
	logger := s.logger.Helper()

	// Not found is an expected answer, not a failure.
	if errors.Is(err, store.ErrKeyNotFound) {
		scope.Counter(metrics.StoreNotFound).Inc(1)
		return
	}
	scope.Counter(metrics.StoreFailures).Inc(1)
	logger.Error("Store failed with internal error.", append(tags, tag.StoreOperation(op), tag.Error(err))...)
}
