package cmd

import (
	"context"
	"fmt"
	"time"

	"VTube/db"
	"VTube/logger"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Test the Redis connection",
	Long:  `Connect to Redis and run a set/get/delete round trip.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Redis: %s, DB: %d\n", cfg.RedisAddr(), cfg.RedisDB)

		client, err := db.ConnectRedis(cfg)
		if err != nil {
			logger.Fatal("[Redis] connection failed", logger.ErrorField(err))
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.CheckRedis(ctx, client); err != nil {
			logger.Fatal("[Redis] round trip failed", logger.ErrorField(err))
		}
		fmt.Println("Redis connection and basic operations OK.")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
