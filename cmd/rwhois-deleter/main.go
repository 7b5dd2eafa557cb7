// rwhois-deleter deletes records matching a query, run with the operator's
// own authority rather than a network client's credentials.
//
// Corresponds to original_source/rwhoisd/tools/rwhois_deleter: it builds a
// query from its arguments, finds up to its limit of matching records, and
// (unless -n/dry-run) deletes them after an optional confirmation prompt.
// Running locally against the data directory, it bypasses CheckGuardian
// entirely — the same trust boundary the original tool relies on by being
// runnable only by whoever already has filesystem access to the database.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/jpl-au/rwhois"
	"github.com/spf13/cobra"
)

func main() {
	var fixturePath, authArea, class, queryAttr, queryValue string
	var limit int
	var dryRun, quiet bool

	root := &cobra.Command{
		Use:          "rwhois-deleter",
		Short:        "delete records matching a query",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, fileReg, err := rwhois.OpenClassFromFixture(fixturePath, authArea, class)
			if err != nil {
				return err
			}

			q := &rwhois.Query{Clauses: []*rwhois.Term{{
				AttrName: queryAttr,
				Compare:  rwhois.CompareFull,
				Value:    queryValue,
			}}}
			cfg := rwhois.Config{HitLimit: limit}
			recs, err := rwhois.ExecuteQuery(fileReg, c, q, cfg)
			if err != nil && err != rwhois.ErrHitLimitExceeded {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("no matching records")
				return nil
			}
			if limit > 0 && len(recs) > limit {
				recs = recs[:limit]
			}

			for _, r := range recs {
				fmt.Printf("%s\n", r.ID)
			}
			if dryRun {
				fmt.Printf("dry run: would delete %d record(s)\n", len(recs))
				return nil
			}
			if !quiet {
				fmt.Printf("delete %d record(s)? [y/N] ", len(recs))
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				if answer != "y\n" && answer != "Y\n" {
					fmt.Println("aborted")
					return nil
				}
			}

			for _, r := range recs {
				if err := rwhois.CommitDelete(fileReg, c, r, true); err != nil {
					return err
				}
			}
			fmt.Printf("deleted %d record(s)\n", len(recs))
			return nil
		},
	}

	root.Flags().StringVarP(&fixturePath, "schema", "c", "", "path to the schema fixture file (required)")
	root.Flags().StringVarP(&class, "class", "C", "", "class name (required)")
	root.Flags().StringVarP(&authArea, "auth-area", "A", "", "authority area name (required)")
	root.Flags().StringVar(&queryAttr, "attr", "ID", "attribute to match")
	root.Flags().StringVar(&queryValue, "value", "", "value to match (required)")
	root.Flags().IntVarP(&limit, "limit", "l", 1, "maximum number of records to delete")
	root.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "don't actually delete anything")
	root.Flags().BoolVarP(&quiet, "quiet", "q", false, "delete without confirmation")
	_ = root.MarkFlagRequired("schema")
	_ = root.MarkFlagRequired("class")
	_ = root.MarkFlagRequired("auth-area")
	_ = root.MarkFlagRequired("value")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
