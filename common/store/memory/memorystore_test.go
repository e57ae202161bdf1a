package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yawfe/stormd/common/store"
)

func TestGetPutDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Get(ctx, "/storms/a")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)

	v1, err := s.Put(ctx, "/storms/a", []byte("one"))
	require.NoError(t, err)
	v2, err := s.Put(ctx, "/storms/b", []byte("two"))
	require.NoError(t, err)
	assert.Greater(t, v2, v1)

	got, err := s.Get(ctx, "/storms/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got.Data)
	assert.Equal(t, v1, got.Version)

	got.Data[0] = 'X'
	again, err := s.Get(ctx, "/storms/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), again.Data, "callers get copies")

	require.NoError(t, s.Delete(ctx, "/storms/a", "/storms/missing"))
	_, err = s.Get(ctx, "/storms/a")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, k := range []string{"/assignments/a", "/assignments/b", "/storms/a"} {
		_, err := s.Put(ctx, k, []byte(k))
		require.NoError(t, err)
	}

	values, err := s.List(ctx, "/assignments/")
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.Equal(t, []byte("/assignments/b"), values["/assignments/b"].Data)
}

func TestSubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Subscribe(ctx, "/assignments/")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "/storms/a", []byte("ignored"))
	require.NoError(t, err)
	select {
	case <-ch:
		t.Fatal("unrelated key must not notify")
	default:
	}

	_, err = s.Put(context.Background(), "/assignments/a", nil)
	require.NoError(t, err)
	rev, err := s.Put(context.Background(), "/assignments/b", nil)
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, rev, got, "only the latest revision is kept")
	case <-time.After(time.Second):
		t.Fatal("expected notification")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, time.Millisecond)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStore().Put(ctx, "/a", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
