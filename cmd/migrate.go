package cmd

import (
	"VTube/db"
	"VTube/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Run: func(cmd *cobra.Command, args []string) {
		gdb, err := db.ConnectGorm(cfg)
		if err != nil {
			logger.Fatal("[Migrate] failed to connect database", logger.ErrorField(err))
		}
		defer db.Close(gdb)

		if err := db.AutoMigrate(gdb); err != nil {
			logger.Fatal("[Migrate] migration failed", logger.ErrorField(err))
		}
		logger.Info("[Migrate] schema is up to date")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
