package etcd

import (
	"context"
	"fmt"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/fx"

	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/store"
)

func init() {
	store.Register(config.StoreTypeEtcd, func(p store.Params) (store.Store, error) {
		return NewStore(StoreParams{Cfg: p.Cfg.Store.Etcd, Lifecycle: p.Lifecycle})
	})
}

// Store implements store.Store on top of etcd. Every key is written under the
// configured prefix and versions are etcd mod revisions.
type Store struct {
	client *clientv3.Client
	prefix string
}

var _ store.Store = (*Store)(nil)

// StoreParams defines the dependencies for the etcd store.
type StoreParams struct {
	Client    *clientv3.Client
	Cfg       config.Etcd
	Lifecycle fx.Lifecycle
}

// NewStore creates a new etcd-backed store. A client is dialled from the
// config unless one is supplied.
func NewStore(p StoreParams) (*Store, error) {
	etcdClient := p.Client
	if etcdClient == nil {
		var err error
		etcdClient, err = clientv3.New(clientv3.Config{
			Endpoints:   p.Cfg.Endpoints,
			DialTimeout: p.Cfg.DialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create etcd client: %w", err)
		}
		p.Lifecycle.Append(fx.StopHook(etcdClient.Close))
	}

	return &Store{
		client: etcdClient,
		prefix: strings.TrimSuffix(p.Cfg.Prefix, "/"),
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) (*store.Value, error) {
	resp, err := s.client.Get(ctx, s.buildKey(key))
	if err != nil {
		return nil, fmt.Errorf("etcd get %s: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, store.ErrKeyNotFound
	}
	kv := resp.Kvs[0]
	return &store.Value{Data: kv.Value, Version: kv.ModRevision}, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) (int64, error) {
	resp, err := s.client.Put(ctx, s.buildKey(key), string(data))
	if err != nil {
		return 0, fmt.Errorf("etcd put %s: %w", key, err)
	}
	return resp.Header.Revision, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ops := make([]clientv3.Op, 0, len(keys))
	for _, key := range keys {
		ops = append(ops, clientv3.OpDelete(s.buildKey(key)))
	}
	// Atomically remove every key.
	if _, err := s.client.Txn(ctx).Then(ops...).Commit(); err != nil {
		return fmt.Errorf("etcd delete %v: %w", keys, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) (map[string]*store.Value, error) {
	resp, err := s.client.Get(ctx, s.buildKey(prefix), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcd list %s: %w", prefix, err)
	}
	result := make(map[string]*store.Value, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		result[s.parseKey(string(kv.Key))] = &store.Value{Data: kv.Value, Version: kv.ModRevision}
	}
	return result, nil
}

func (s *Store) Subscribe(ctx context.Context, prefix string) (<-chan int64, error) {
	revisionChan := make(chan int64, 1)
	watchChan := s.client.Watch(ctx, s.buildKey(prefix), clientv3.WithPrefix())
	go func() {
		defer close(revisionChan)
		for watchResp := range watchChan {
			if err := watchResp.Err(); err != nil {
				return
			}
			if len(watchResp.Events) == 0 {
				continue
			}
			// keep only the latest revision for slow consumers
			select {
			case <-revisionChan:
			default:
			}
			revisionChan <- watchResp.Header.Revision
		}
	}()
	return revisionChan, nil
}

func (s *Store) buildKey(key string) string {
	return s.prefix + key
}

func (s *Store) parseKey(etcdKey string) string {
	return strings.TrimPrefix(etcdKey, s.prefix)
}
