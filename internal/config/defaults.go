package config

import "github.com/spf13/viper"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8772)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.connect_timeout_ms", 5000)
	v.SetDefault("redis.retry_attempts", 3)
	v.SetDefault("redis.retry_interval_ms", 1000)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "pulse")

	v.SetDefault("auth.enabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
