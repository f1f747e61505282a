package main

import (
	"fmt"

	"github.com/fogleman/gg"
	"github.com/spf13/cobra"

	"github.com/joshuapare/cfbkit/cfb"
)

var (
	mapOut     string
	mapColumns int
	mapCell    int
)

func init() {
	rootCmd.AddCommand(newMapCmd())
}

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map <file>",
		Short: "Render the sector allocation map as a PNG",
		Long: `The map command draws one cell per sector, colored by its BAT entry:
free, end of chain, chained, BAT, or XBAT.

Example:
  cfbctl map report.doc -o report.png
  cfbctl map report.doc --columns 128 --cell 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(args)
		},
	}
	cmd.Flags().StringVarP(&mapOut, "output", "o", "sectors.png", "PNG file to write")
	cmd.Flags().IntVar(&mapColumns, "columns", 64, "Cells per row")
	cmd.Flags().IntVar(&mapCell, "cell", 8, "Cell edge in pixels")
	return cmd
}

// sectorColor returns the fill for a BAT entry.
func sectorColor(v cfb.SectorIndex) (r, g, b float64) {
	switch v {
	case cfb.FreeSector:
		return 0.92, 0.92, 0.92
	case cfb.EndOfChain:
		return 0.20, 0.45, 0.85
	case cfb.FATSector:
		return 0.85, 0.25, 0.25
	case cfb.DIFATSector:
		return 0.95, 0.60, 0.10
	}
	if cfb.IsRegular(v) {
		return 0.45, 0.70, 0.95
	}
	return 0, 0, 0
}

// sectorStates returns the BAT entry of every physical sector.
func sectorStates(m *cfb.MainStore) []cfb.SectorIndex {
	n := m.SectorCount()
	out := make([]cfb.SectorIndex, 0, n)
	for i := range n {
		v, err := m.NextBlock(cfb.SectorIndex(i))
		if err != nil {
			// Sectors past the last BAT are unallocated.
			v = cfb.FreeSector
		}
		out = append(out, v)
	}
	return out
}

func renderMap(states []cfb.SectorIndex, columns, cell int) *gg.Context {
	const legend = 24
	rows := max((len(states)+columns-1)/columns, 1)
	w, h := columns*cell, rows*cell+legend
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for i, v := range states {
		x, y := float64(i%columns*cell), float64(i/columns*cell+legend)
		dc.SetRGB(sectorColor(v))
		dc.DrawRectangle(x, y, float64(cell-1), float64(cell-1))
		dc.Fill()
	}

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(fmt.Sprintf("%d sectors", len(states)), 4, legend/2, 0, 0.5)
	return dc
}

func runMap(args []string) error {
	if mapColumns <= 0 || mapCell <= 1 {
		return fmt.Errorf("--columns must be positive and --cell at least 2")
	}
	fs, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer fs.Close()

	states := sectorStates(fs.Main())
	if err := renderMap(states, mapColumns, mapCell).SavePNG(mapOut); err != nil {
		return fmt.Errorf("failed to write %s: %w", mapOut, err)
	}
	printInfo("Wrote %s (%d sectors)\n", mapOut, len(states))
	return nil
}
