package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRemoteCache struct {
	mutex  sync.Mutex
	values map[string][]byte
	gets   int
}

func (c *testRemoteCache) SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.values[key] = value
	return nil
}

func (c *testRemoteCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.gets++
	value, ok := c.values[key]
	if !ok {
		return nil, CacheMissError
	}
	return value, nil
}

func (c *testRemoteCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.values, key)
	return nil
}

func (c *testRemoteCache) Close() error {
	return nil
}

type testEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestTieredCacheLocal(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cache := NewTieredCacheWithRemote(1, nil, logger)

	require.NoError(t, cache.Set("a", &testEntry{Name: "alpha", Count: 3}, time.Minute))

	entry := &testEntry{}
	_, err := cache.Get("a", entry)
	require.NoError(t, err)
	assert.Equal(t, "alpha", entry.Name)
	assert.Equal(t, 3, entry.Count)

	_, err = cache.Get("b", &testEntry{})
	assert.ErrorIs(t, err, CacheMissError)

	cache.Delete("a")
	_, err = cache.Get("a", &testEntry{})
	assert.ErrorIs(t, err, CacheMissError)
}

func TestTieredCacheExpiry(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cache := NewTieredCacheWithRemote(1, nil, logger)

	now := time.Now()
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set("a", &testEntry{Name: "alpha"}, time.Minute))

	now = now.Add(2 * time.Minute)
	_, err := cache.Get("a", &testEntry{})
	assert.ErrorIs(t, err, CacheMissError)
}

func TestTieredCacheRemote(t *testing.T) {
	logger, _ := test.NewNullLogger()
	remote := &testRemoteCache{values: map[string][]byte{}}

	writer := NewTieredCacheWithRemote(1, remote, logger)
	require.NoError(t, writer.Set("a", &testEntry{Name: "shared"}, time.Minute))

	// a second instance only shares the remote tier
	reader := NewTieredCacheWithRemote(1, remote, logger)

	entry := &testEntry{}
	_, err := reader.Get("a", entry)
	require.NoError(t, err)
	assert.Equal(t, "shared", entry.Name)
	assert.Equal(t, 1, remote.gets)

	// served from the local tier now
	_, err = reader.Get("a", &testEntry{})
	require.NoError(t, err)
	assert.Equal(t, 1, remote.gets)

	reader.Delete("a")
	_, err = writer.Get("a", &testEntry{})
	require.NoError(t, err, "writer still holds its local copy")

	_, err = NewTieredCacheWithRemote(1, remote, logger).Get("a", &testEntry{})
	assert.ErrorIs(t, err, CacheMissError)
}

func TestTieredCacheCorruptRemoteEntry(t *testing.T) {
	logger, _ := test.NewNullLogger()
	remote := &testRemoteCache{values: map[string][]byte{"a": []byte("{not json")}}
	cache := NewTieredCacheWithRemote(1, remote, logger)

	_, err := cache.Get("a", &testEntry{})
	assert.Error(t, err)

	_, ok := remote.values["a"]
	assert.False(t, ok)
}
