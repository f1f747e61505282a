package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cfbkit/cfb"
)

func init() {
	rootCmd.AddCommand(newChainCmd())
}

func newChainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain <file> <name>",
		Short: "Print the sector chain of a stream",
		Long: `The chain command follows a stream's chain through the BAT or SBAT and
prints every sector in order. The names "@directory", "@sbat" and
"@ministream" select the internal chains.

Example:
  cfbctl chain report.doc WordDocument
  cfbctl chain report.doc @sbat --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(args)
		},
	}
	return cmd
}

type chainInfo struct {
	Name    string            `json:"name"`
	Store   string            `json:"store"`
	Start   cfb.SectorIndex   `json:"start"`
	Sectors []cfb.SectorIndex `json:"sectors"`
}

func resolveChain(fs *cfb.Filesystem, name string) (chainInfo, error) {
	h := fs.Header()
	ci := chainInfo{Name: name, Store: "main"}
	var store cfb.BlockStore = fs.Main()
	switch name {
	case "@directory":
		ci.Start = h.PropertyStart()
	case "@sbat":
		ci.Start = h.SBATStart()
	case "@ministream":
		ci.Start = fs.Root().StartBlock()
	default:
		e, ok := fs.Lookup(name)
		if !ok {
			return ci, fmt.Errorf("no entry named %q", name)
		}
		s, err := fs.StreamFor(e)
		if err != nil {
			return ci, err
		}
		store = s.Store()
		ci.Start = s.StartBlock()
		ci.Store = storeName(fs, e)
	}
	sectors, err := cfb.NewStream(store, ci.Start).Sectors()
	ci.Sectors = sectors
	return ci, err
}

func runChain(args []string) error {
	fs, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer fs.Close()

	ci, err := resolveChain(fs, args[1])
	if err != nil {
		return fmt.Errorf("chain %s: %w", args[1], err)
	}
	if jsonOut {
		return printJSON(ci)
	}
	parts := make([]string, 0, len(ci.Sectors)+1)
	for _, s := range ci.Sectors {
		parts = append(parts, cfb.SectorName(s))
	}
	parts = append(parts, cfb.SectorName(cfb.EndOfChain))
	printInfo("%s (%s, %d sectors)\n", render(titleStyle, ci.Name), ci.Store, len(ci.Sectors))
	printInfo("  %s\n", strings.Join(parts, " -> "))
	return nil
}
