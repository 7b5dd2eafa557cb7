// rwhois-register submits one Add registration directly against a data
// directory, bypassing the wire protocol.
//
// There is no standalone original tool for this — server/register.c's
// process_registration is normally driven by a network client's spool
// submission — but an operator needs some offline way to exercise the
// same check/commit path register.c implements, the way rwhois-deleter
// offers an offline path for del_record. This reads one record in the
// on-disk textual form from a file (or stdin) and runs it through
// CheckAdd/CommitAdd with the operator's own authority, no credentials
// required.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/jpl-au/rwhois"
	"github.com/spf13/cobra"
)

func main() {
	var fixturePath, authArea, class, recordPath, registrantEmail string

	root := &cobra.Command{
		Use:          "rwhois-register",
		Short:        "add one record directly to a data directory",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			aa, c, fileReg, err := rwhois.OpenClassFromFixture(fixturePath, authArea, class)
			if err != nil {
				return err
			}

			var r *bufio.Reader
			if recordPath == "" || recordPath == "-" {
				r = bufio.NewReader(os.Stdin)
			} else {
				f, err := os.Open(recordPath)
				if err != nil {
					return err
				}
				defer f.Close()
				r = bufio.NewReader(f)
			}

			anon, result, err := rwhois.ParseRecord(r)
			if err != nil {
				return err
			}
			if result != rwhois.ParseOK {
				return fmt.Errorf("input did not contain a live record")
			}

			rec, err := rwhois.CheckAdd(context.Background(), anon, c, aa, fileReg, registrantEmail, rwhois.Config{})
			if err != nil {
				return err
			}
			tmpDir := os.TempDir()
			if err := rwhois.CommitAdd(fileReg, c, rec, tmpDir, rwhois.Config{}); err != nil {
				return err
			}
			fmt.Printf("added %s\n", rec.ID)
			return nil
		},
	}

	root.Flags().StringVarP(&fixturePath, "schema", "c", "", "path to the schema fixture file (required)")
	root.Flags().StringVarP(&class, "class", "C", "", "class name (required)")
	root.Flags().StringVarP(&authArea, "auth-area", "A", "", "authority area name (required)")
	root.Flags().StringVarP(&recordPath, "file", "f", "-", "file containing the record to add (default: stdin)")
	root.Flags().StringVar(&registrantEmail, "registrant", "", "registrant email, passed to the class's external parser")
	_ = root.MarkFlagRequired("schema")
	_ = root.MarkFlagRequired("class")
	_ = root.MarkFlagRequired("auth-area")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
