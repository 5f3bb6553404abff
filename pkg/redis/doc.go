// Package redis connects to the Redis server used by the redis counter store
// and the redis session store.
//
//	client, err := redis.Connect(ctx, redis.Config{ConnectionURL: "redis://localhost:6379/0"})
//	if err != nil {
//		return err // errors.Is(err, redis.ErrRedisNotReady)
//	}
//	check := redis.Healthcheck(client)
//
// Connect retries the ping RetryAttempts times within ConnectTimeout.
// Healthcheck returns a probe suitable for /readyz handlers.
package redis
