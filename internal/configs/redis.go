package config

import (
	"github.com/redis/rueidis"
	log "github.com/sirupsen/logrus"
)

func NewRedisClient(addr string) rueidis.Client {
	redisClient, err := rueidis.NewClient(
		rueidis.ClientOption{
			InitAddress: []string{addr},
			// Client-side caching is not used: every read goes to the server.
			DisableCache: true,
		},
	)
	if err != nil {
		log.Fatalf("failed to create redis client: %v", err)
	}

	return redisClient
}
