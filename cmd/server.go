package cmd

import (
	"github.com/spf13/cobra"

	"github.com/royo00/music/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动音乐服务",
	Long:  `启动音乐系统的HTTP服务器，提供注册登录、音乐上传审核、播放收藏评分等API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
