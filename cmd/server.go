package cmd

import (
	"VTube/logger"
	"VTube/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP API: registration, login, logout, current user and health check under /api/v1.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func runServer() {
	logger.Info("[Server] starting VTube user service", logger.String("port", cfg.Port))
	if err := server.Start(cfg); err != nil {
		logger.Fatal("[Server] server exited with error", logger.ErrorField(err))
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
