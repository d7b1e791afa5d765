package redis

import (
	"github.com/redis/go-redis/v9"
)

// Client wraps redis.UniversalClient so repositories do not depend on a
// concrete client type
type Client interface {
	redis.UniversalClient
}

// Nil is returned by Redis when a key does not exist
const Nil = redis.Nil
