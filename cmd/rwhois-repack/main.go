// rwhois-repack consolidates a class's fragmented index files.
//
// Corresponds to original_source/rwhoisd/tools/rwhois_repack; its -m, -s,
// -N and -d flags map directly to rwhois.RepackOptions.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jpl-au/rwhois"
	"github.com/spf13/cobra"
)

func main() {
	var fixturePath, authArea, class, tmpDir, substring string
	var sizeLimit int64
	var dryRun, noDelete, verbose bool

	root := &cobra.Command{
		Use:          "rwhois-repack",
		Short:        "consolidate a class's index files",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, fileReg, err := rwhois.OpenClassFromFixture(fixturePath, authArea, class)
			if err != nil {
				return err
			}
			if tmpDir == "" {
				tmpDir = os.TempDir()
			}
			opts := rwhois.RepackOptions{
				SizeThreshold: sizeLimit,
				Substring:     substring,
				DryRun:        dryRun,
				NoDelete:      noDelete,
				Verbose:       verbose,
				DeleteWait:    2 * time.Second,
			}
			stats, err := rwhois.Repack(fileReg, c, tmpDir, opts, rwhois.Config{})
			if err != nil {
				return err
			}
			fmt.Printf("considered %d file(s), consolidated %d file(s), deleted %d file(s)\n",
				stats.FilesConsidered, stats.FilesConsolidated, stats.FilesDeleted)
			return nil
		},
	}

	root.Flags().StringVarP(&fixturePath, "schema", "c", "", "path to the schema fixture file (required)")
	root.Flags().StringVarP(&class, "class", "C", "", "class name to repack (required)")
	root.Flags().StringVarP(&authArea, "auth-area", "A", "", "authority area name (required)")
	root.Flags().Int64VarP(&sizeLimit, "max-size", "m", 0, "only repack index files smaller than this (bytes)")
	root.Flags().StringVarP(&substring, "substring", "s", "", "only repack index files whose path contains this")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	root.Flags().BoolVarP(&dryRun, "dry-run", "N", false, "report what would change without touching files")
	root.Flags().BoolVarP(&noDelete, "no-delete", "d", false, "keep superseded files on disk")
	_ = root.MarkFlagRequired("schema")
	_ = root.MarkFlagRequired("class")
	_ = root.MarkFlagRequired("auth-area")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
