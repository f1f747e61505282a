package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/cfbkit/cfb"
	"github.com/joshuapare/cfbkit/internal/format"
)

var lsAll bool

func init() {
	rootCmd.AddCommand(newLsCmd())
}

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <file>",
		Short: "List directory entries",
		Long: `The ls command prints the directory: index, type, size, start sector,
and which store (main or mini) holds each stream. Empty slots are skipped
unless --all is given.

Example:
  cfbctl ls report.doc
  cfbctl ls report.doc --all --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(args)
		},
	}
	cmd.Flags().BoolVarP(&lsAll, "all", "a", false, "Include empty directory slots")
	return cmd
}

type lsEntry struct {
	format.DirEntry
	TypeName string `json:"type_name"`
	Store    string `json:"store,omitempty"`
}

func runLs(args []string) error {
	fs, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer fs.Close()

	var out []lsEntry
	for _, e := range fs.Directory() {
		if e.Type == format.DirTypeEmpty && !lsAll {
			continue
		}
		out = append(out, lsEntry{DirEntry: e, TypeName: e.TypeName(), Store: storeName(fs, e)})
	}
	if jsonOut {
		return printJSON(out)
	}

	printInfo("%s\n", render(titleStyle, "IDX   TYPE     STORE  START          SIZE  NAME"))
	for _, e := range out {
		printInfo("%-5d %-8s %-6s %-12s %6d  %s\n",
			e.Index, e.TypeName, e.Store, cfb.SectorName(e.StartBlock()), e.Size(), e.Name)
	}
	return nil
}

func storeName(fs *cfb.Filesystem, e format.DirEntry) string {
	switch {
	case e.IsRoot():
		return "main"
	case !e.IsStream():
		return ""
	case fs.StoreFor(e.Size()) == cfb.BlockStore(fs.Mini()):
		return "mini"
	default:
		return "main"
	}
}
