package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cfbkit/cfb"
	"github.com/joshuapare/cfbkit/internal/format"
)

var (
	catStart int64
	catSize  int64
	catMini  bool
)

func init() {
	rootCmd.AddCommand(newCatCmd())
}

func newCatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <file> [name]",
		Short: "Write a stream to stdout",
		Long: `The cat command writes the raw contents of a stream to stdout. The stream
is found by directory name, or read directly from a chain with --start and
--size (add --mini for a mini stream chain).

Example:
  cfbctl cat report.doc WordDocument > word.bin
  cfbctl cat report.doc --start 12 --size 300 --mini`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(args)
		},
	}
	cmd.Flags().Int64Var(&catStart, "start", -1, "First sector of the chain to read")
	cmd.Flags().Int64Var(&catSize, "size", 0, "Byte length of the chain to read")
	cmd.Flags().BoolVar(&catMini, "mini", false, "Read --start from the mini stream")
	return cmd
}

func runCat(args []string) error {
	fs, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer fs.Close()

	data, err := catData(fs, args[1:])
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func catData(fs *cfb.Filesystem, names []string) ([]byte, error) {
	if len(names) == 1 {
		e, ok := fs.Lookup(names[0])
		if !ok {
			return nil, fmt.Errorf("no entry named %q", names[0])
		}
		printVerbose("Reading %q: %d bytes from sector %s\n", e.Name, e.Size(), cfb.SectorName(e.StartBlock()))
		return fs.ReadStream(e)
	}
	if catStart < 0 || catStart > int64(format.MaxRegularSector) {
		return nil, fmt.Errorf("give a stream name or a --start sector")
	}
	var store cfb.BlockStore = fs.Main()
	if catMini {
		store = fs.Mini()
	}
	return cfb.NewStream(store, cfb.SectorIndex(catStart)).ReadAll(catSize)
}
