package block

import (
	"github.com/pkg/errors"
	"gopkg.in/redis.v5"
)

// RedisProvider serves blocks out of redis string values, one key per
// resource, using GETRANGE so only the requested block crosses the wire.
type RedisProvider struct {
	client *redis.Client
}

// NewRedisProvider creates a RedisProvider talking to the given address.
func NewRedisProvider(addr string) *RedisProvider {
	return &RedisProvider{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// GetBlock implements Provider.
func (p *RedisProvider) GetBlock(filename string, blockNumber uint32) ([]byte, error) {
	// negative GETRANGE offsets index from the end of the value
	if blockNumber == 0 {
		return nil, errors.New("block number must be positive")
	}
	// GETRANGE returns an empty string for a missing key, which is
	// indistinguishable from a valid empty final block.
	exists, err := p.client.Exists(filename).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "exists %s failed", filename)
	}
	if !exists {
		return nil, errors.Wrap(ErrNotFound, filename)
	}
	offset := (int64(blockNumber) - 1) * Size
	data, err := p.client.GetRange(filename, offset, offset+Size-1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "getrange %s block %d failed", filename, blockNumber)
	}
	return []byte(data), nil
}

// Close releases the underlying redis connection.
func (p *RedisProvider) Close() error {
	return p.client.Close()
}
