package cmd

import (
	"fmt"
	"os"

	"VTube/config"
	"VTube/logger"

	"github.com/spf13/cobra"
)

var (
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vtube",
	Short: "VTube user service.",
	Long:  `VTube user service: registration with profile image upload, login and account lookups.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		cfg = config.Load(files...)

		logger.InitLogger(logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (defaults to .env)")
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
