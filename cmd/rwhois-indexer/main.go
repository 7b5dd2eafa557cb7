// rwhois-indexer rebuilds a class's secondary indexes from its data files.
//
// Corresponds to original_source/rwhoisd/tools/rwhois_indexer: that tool
// walked a data directory and called index_files directly; here the
// equivalent call is rwhois.BuildIndexes.
package main

import (
	"fmt"
	"os"

	"github.com/jpl-au/rwhois"
	"github.com/spf13/cobra"
)

func main() {
	var fixturePath, authArea, class, tmpDir string

	root := &cobra.Command{
		Use:          "rwhois-indexer",
		Short:        "rebuild a class's secondary indexes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, fileReg, err := rwhois.OpenClassFromFixture(fixturePath, authArea, class)
			if err != nil {
				return err
			}
			if tmpDir == "" {
				tmpDir = os.TempDir()
			}
			stats, err := rwhois.BuildIndexes(fileReg, c, fileReg.FilesOfKind(rwhois.FileData), tmpDir, rwhois.Config{})
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d data file(s), %d record(s), %d index line(s)\n",
				stats.DataFilesRead, stats.RecordsRead, stats.IndexLines)
			return nil
		},
	}

	root.Flags().StringVarP(&fixturePath, "schema", "c", "", "path to the schema fixture file (required)")
	root.Flags().StringVarP(&class, "class", "C", "", "class name to index (required)")
	root.Flags().StringVarP(&authArea, "auth-area", "A", "", "authority area name (required)")
	root.Flags().StringVar(&tmpDir, "tmp-dir", "", "scratch directory for external sort spill files")
	_ = root.MarkFlagRequired("schema")
	_ = root.MarkFlagRequired("class")
	_ = root.MarkFlagRequired("auth-area")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
