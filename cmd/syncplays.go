package cmd

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/royo00/music/cache"
	"github.com/royo00/music/config"
	"github.com/royo00/music/db"
	"github.com/royo00/music/logger"
	"github.com/royo00/music/repository"
)

var syncTimeout time.Duration

var syncPlaysCmd = &cobra.Command{
	Use:   "syncplays",
	Short: "回写播放计数",
	Long:  `把 Redis 里累积的播放计数批量回写到数据库，建议配合定时任务使用`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
		})

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("无法连接数据库: %v", err)
		}
		defer db.CloseDB()

		if err := db.ConnectRedis(cfg); err != nil {
			log.Fatalf("无法连接Redis: %v", err)
		}
		defer db.CloseRedis()

		trackRepo := repository.NewMySQLTrackRepository(db.DB)
		counter := cache.NewPlayCounter(db.RedisClient)

		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		if err := counter.SyncToStore(ctx, trackRepo.IncrPlayCount); err != nil {
			log.Fatalf("播放计数回写失败: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncPlaysCmd)
	syncPlaysCmd.Flags().DurationVarP(&syncTimeout, "timeout", "t", 5*time.Minute, "回写任务的超时时间")
}
