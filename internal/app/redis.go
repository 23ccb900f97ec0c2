package app

import (
	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/redis"
)

func (app *App) initializeRedis() error {
	if app.Config.RedisAddress == "" {
		app.Logger.Info("Redis: Not configured (remote tier disabled)")
		return nil
	}

	redisConfig := &redis.Config{
		Address:   app.Config.RedisAddress,
		Password:  app.Config.RedisPassword,
		DB:        app.Config.RedisDBNumber(),
		PoolSize:  app.Config.RedisPoolSizeNumber(),
		KeyPrefix: app.Config.RedisKeyPrefix,
	}

	redisClient, err := redis.NewClient(redisConfig)
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected",
		logging.String("address", app.Config.RedisAddress),
		logging.String("prefix", app.Config.RedisKeyPrefix),
	)
	return nil
}
