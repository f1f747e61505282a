package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/cfbkit/cfb/verify"
)

var verifyJobs int

func init() {
	rootCmd.AddCommand(newVerifyCmd())
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <file>...",
		Short: "Check allocation tables and chains",
		Long: `The verify command checks the header, that every BAT and XBAT sector is
marked in the BAT, that no successor points outside the tables, that every
chain matches its declared size, and that no sector belongs to two chains.
Files are checked in parallel.

Example:
  cfbctl verify report.doc
  cfbctl verify *.xls --jobs 8`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args)
		},
	}
	cmd.Flags().IntVarP(&verifyJobs, "jobs", "j", 4, "Files to check at once")
	return cmd
}

type verifyResult struct {
	File     string   `json:"file"`
	OK       bool     `json:"ok"`
	Corrupt  bool     `json:"corrupt,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

func verifyFile(path string) (verifyResult, error) {
	res := verifyResult{File: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return res, err
	}
	for _, e := range verify.Collect(data) {
		res.Problems = append(res.Problems, e.Error())
		res.Corrupt = res.Corrupt || verify.IsCorruption(e)
	}
	res.OK = len(res.Problems) == 0
	return res, nil
}

func runVerify(args []string) error {
	results := make([]verifyResult, len(args))
	var g errgroup.Group
	g.SetLimit(max(verifyJobs, 1))
	for i, path := range args {
		g.Go(func() error {
			printVerbose("Checking %s\n", path)
			res, err := verifyFile(path)
			if err != nil {
				return fmt.Errorf("verify %s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.OK {
				printInfo("%s %s\n", render(okStyle, "OK  "), r.File)
				continue
			}
			printInfo("%s %s\n", render(failStyle, "FAIL"), r.File)
			for _, p := range r.Problems {
				printInfo("     %s\n", p)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed verification", failed, len(results))
	}
	return nil
}
