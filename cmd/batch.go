package main

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	batchTenant      string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Process a directory of card files concurrently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchTenant == "" {
			return eris.New("--tenant is required")
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := os.ReadDir(args[0])
		if err != nil {
			return eris.Wrapf(err, "read dir %s", args[0])
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentCards
		}

		zap.L().Info("processing batch",
			zap.Int("files", len(entries)),
			zap.Int("concurrency", concurrency),
		)

		var processed, failed atomic.Int64
		g, gctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(concurrency)

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(args[0], entry.Name())
			g.Go(func() error {
				// Cards are independent; one failure should not stop the batch.
				if _, err := processFile(gctx, env, batchTenant, "", path); err != nil {
					failed.Add(1)
					zap.L().Error("card failed", zap.String("file", path), zap.Error(err))
					return nil
				}
				processed.Add(1)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int64("processed", processed.Load()),
			zap.Int64("failed", failed.Load()),
		)
		if failed.Load() > 0 {
			return eris.Errorf("%d of %d cards failed", failed.Load(), failed.Load()+processed.Load())
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchTenant, "tenant", "", "tenant id (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent cards (default from config)")
	rootCmd.AddCommand(batchCmd)
}
