package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coocood/freecache"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/curvewatch/utils"
)

// Tiered cache is a cache implementation combining a local & remote cache
type TieredCache struct {
	localGoCache *freecache.Cache
	remoteCache  RemoteCache
	logger       logrus.FieldLogger
	now          func() time.Time
}

type cachedValue struct {
	Version uint64      `json:"i"`
	Timeout int64       `json:"t"`
	Value   interface{} `json:"v"`
}

var CacheMissError error = errors.New("cache miss")

type RemoteCache interface {
	SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// NewTieredCache creates a local cache of cacheSize MB, backed by redis if redisAddress is set
func NewTieredCache(cacheSize int, redisAddress string, redisPrefix string, logger logrus.FieldLogger) (*TieredCache, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	var remoteCache RemoteCache
	if redisAddress != "" {
		var err error
		remoteCache, err = InitRedisCache(ctx, redisAddress, redisPrefix)
		if err != nil {
			logger.WithError(err).Errorf("error initializing remote redis cache. address: %v", redisAddress)
			return nil, err
		}
	}

	return NewTieredCacheWithRemote(cacheSize, remoteCache, logger), nil
}

func NewTieredCacheWithRemote(cacheSize int, remoteCache RemoteCache, logger logrus.FieldLogger) *TieredCache {
	if cacheSize <= 0 {
		cacheSize = 1
	}

	return &TieredCache{
		remoteCache:  remoteCache,
		localGoCache: freecache.NewCache(cacheSize * 1024 * 1024),
		logger:       logger,
		now:          time.Now,
	}
}

func (cache *TieredCache) Set(key string, value interface{}, expiration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()
	cacheValue := cachedValue{
		Version: 1,
		Value:   value,
	}
	if expiration > 0 {
		cacheValue.Timeout = cache.now().Add(expiration).Unix()
	}

	valueMarshal, err := json.Marshal(cacheValue)
	if err != nil {
		return err
	}
	if err := cache.localGoCache.Set([]byte(key), valueMarshal, int(expiration.Seconds())); err != nil {
		return err
	}
	if cache.remoteCache != nil {
		return cache.remoteCache.SetBytes(ctx, key, valueMarshal, expiration)
	}
	return nil
}

// Get unmarshals the cached value of key into returnValue. Returns CacheMissError if neither tier holds it.
func (cache *TieredCache) Get(key string, returnValue interface{}) (interface{}, error) {
	cacheValue := &cachedValue{
		Value: returnValue,
	}

	// try to retrieve the key from the local cache
	wanted, err := cache.localGoCache.Get([]byte(key))
	if err == nil {
		err = json.Unmarshal(wanted, cacheValue)
		if err != nil {
			utils.LogError(err, "error unmarshalling data for key", 0, map[string]interface{}{"key": key})
			cache.localGoCache.Del([]byte(key))
			return nil, err
		}

		if !cache.isExpired(cacheValue) {
			return returnValue, nil
		}
	}

	if cache.remoteCache == nil {
		return nil, CacheMissError
	}

	// retrieve the key from the remote cache
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	remoteValue, err := cache.remoteCache.GetBytes(ctx, key)
	if err != nil {
		if !errors.Is(err, CacheMissError) {
			cache.logger.WithError(err).WithField("key", key).Warnf("remote cache lookup failed")
		}
		return nil, CacheMissError
	}

	err = json.Unmarshal(remoteValue, cacheValue)
	if err != nil {
		cache.remoteCache.Delete(ctx, key)
		utils.LogError(err, "error unmarshalling remote data for key", 0, map[string]interface{}{"key": key})
		return nil, err
	}
	if cache.isExpired(cacheValue) {
		return nil, CacheMissError
	}

	var timeout int64
	if cacheValue.Timeout > 0 {
		timeout = cacheValue.Timeout - cache.now().Unix()
	}
	if cacheValue.Timeout == 0 || timeout > 2 {
		cache.localGoCache.Set([]byte(key), remoteValue, int(timeout))
	}

	return returnValue, nil
}

func (cache *TieredCache) Delete(key string) {
	cache.localGoCache.Del([]byte(key))

	if cache.remoteCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()

		if err := cache.remoteCache.Delete(ctx, key); err != nil {
			cache.logger.WithError(err).WithField("key", key).Warnf("remote cache delete failed")
		}
	}
}

func (cache *TieredCache) Close() error {
	if cache.remoteCache != nil {
		return cache.remoteCache.Close()
	}
	return nil
}

func (cache *TieredCache) isExpired(value *cachedValue) bool {
	return value.Timeout > 0 && value.Timeout <= cache.now().Unix()
}
