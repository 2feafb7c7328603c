package output

import "time"

// Config selects where run records are persisted.
type Config struct {
	File          string        `env:"RESULT_FILE"           envDefault:"swarms_api_results.json"`
	RedisAddr     string        `env:"RESULT_REDIS_ADDR"`
	RedisPassword string        `env:"RESULT_REDIS_PASSWORD"`
	RedisDB       int           `env:"RESULT_REDIS_DB"       envDefault:"0"`
	RedisTTL      time.Duration `env:"RESULT_REDIS_TTL"      envDefault:"168h"`
}
