package cmd

import (
	"context"
	"fmt"
	"time"

	"VTube/logger"
	"VTube/storage"

	"github.com/spf13/cobra"
)

var (
	mediaPrefix string
	mediaStats  bool
	mediaDelete string
)

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Inspect and clean up stored profile images",
	Long:  `List uploaded profile images, show storage statistics, or delete one asset by its deletion reference.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		backend, err := storage.NewBackend(cfg)
		if err != nil {
			logger.Fatal("[Media] failed to create backend", logger.ErrorField(err))
		}

		if mediaDelete != "" {
			if storage.NewUploader(backend).Delete(ctx, mediaDelete) {
				fmt.Printf("Deleted %s\n", mediaDelete)
			} else {
				fmt.Printf("Nothing deleted for %s\n", mediaDelete)
			}
			return
		}

		minioBackend, ok := backend.(*storage.MinioBackend)
		if !ok {
			logger.Fatal("[Media] listing is only supported by the minio driver",
				logger.String("driver", cfg.MediaDriver))
		}

		prefix := mediaPrefix
		if prefix == "" {
			prefix = cfg.MediaFolder
		}
		assets, stats, err := minioBackend.ListAssets(ctx, prefix)
		if err != nil {
			logger.Fatal("[Media] failed to list assets", logger.ErrorField(err))
		}

		if mediaStats {
			fmt.Printf("Bucket %s, prefix %q\n", cfg.MinioBucket, prefix)
			fmt.Printf("  objects:       %d\n", stats.TotalObjects)
			fmt.Printf("  total size:    %s\n", storage.FormatSize(stats.TotalSize))
			if !stats.LastModified.IsZero() {
				fmt.Printf("  last modified: %s\n", stats.LastModified.Format(time.RFC3339))
			}
			return
		}

		for _, a := range assets {
			fmt.Printf("%-60s %10s  %s\n", a.Key, storage.FormatSize(a.Size), a.LastModified.Format(time.RFC3339))
		}
		fmt.Printf("%d object(s)\n", len(assets))
	},
}

func init() {
	rootCmd.AddCommand(mediaCmd)

	mediaCmd.Flags().StringVarP(&mediaPrefix, "prefix", "p", "", "key prefix to list (defaults to MEDIA_FOLDER)")
	mediaCmd.Flags().BoolVarP(&mediaStats, "stats", "s", false, "show storage statistics instead of listing")
	mediaCmd.Flags().StringVarP(&mediaDelete, "delete", "d", "", "delete the asset with this deletion reference")

	mediaCmd.Example = `  # list profile images
  vtube media

  # statistics for another prefix
  vtube media -p "covers/" -s

  # remove an orphaned asset reported by a failed registration
  vtube media -d "avatars/0b6f...png"`
}
