package lock

// Config holds configuration for the keyed locker.
type Config struct {
	// Driver selects the lock implementation (local, redis).
	Driver string `mapstructure:"driver" default:"local"`
	// RedisAddr is the address of the Redis server used by the redis driver.
	RedisAddr string `mapstructure:"redis_addr" default:"localhost:6379"`
	// RedisPassword is the optional Redis password.
	RedisPassword string `mapstructure:"redis_password" default:""`
	// TTLSeconds bounds how long a redis lock survives a crashed holder. Held locks
	// are refreshed every TTL/2.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"30"`
	// WaitSeconds bounds how long Lock waits to obtain a contended key.
	WaitSeconds int `mapstructure:"wait_seconds" default:"10"`
}

const (
	DriverLocal = "local"
	DriverRedis = "redis"
)
