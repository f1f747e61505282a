package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cfbkit/cfb"
	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/internal/testutil"
)

var (
	smallData = []byte("hello from the mini stream")
	largeData = bytes.Repeat([]byte("0123456789abcdef"), 400)
)

func sampleFile(t *testing.T) string {
	t.Helper()
	return testutil.WriteContainer(t, "sample.cfb", cfb.SmallerBigBlockSize,
		testutil.Stream{Name: "Small", Data: smallData},
		testutil.Stream{Name: "Large", Data: largeData},
	)
}

func TestInfoCommand(t *testing.T) {
	path := sampleFile(t)

	tests := []struct {
		name        string
		json        bool
		wantContain []string
	}{
		{
			name:        "text",
			wantContain: []string{"Container Information", "Version:", "3.62", "Sector size:", "512", "Entries:", "3"},
		},
		{
			name:        "json",
			json:        true,
			wantContain: []string{`"sector_size": 512`, `"major_version": 3`, `"entries": 3`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			jsonOut = tt.json
			output, err := captureOutput(t, func() error { return runInfo([]string{path}) })
			require.NoError(t, err)
			if tt.json {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestInfoCommand_MissingFile(t *testing.T) {
	resetFlags()
	_, err := captureOutput(t, func() error {
		return runInfo([]string{filepath.Join(t.TempDir(), "missing.cfb")})
	})
	require.Error(t, err)
}

func TestLsCommand(t *testing.T) {
	path := sampleFile(t)

	resetFlags()
	output, err := captureOutput(t, func() error { return runLs([]string{path}) })
	require.NoError(t, err)
	assertContains(t, output, []string{"Root Entry", "Small", "Large", "mini", "main"})
	assert.NotContains(t, output, "empty")

	resetFlags()
	lsAll = true
	output, err = captureOutput(t, func() error { return runLs([]string{path}) })
	require.NoError(t, err)
	assert.Contains(t, output, "empty")

	resetFlags()
	jsonOut = true
	output, err = captureOutput(t, func() error { return runLs([]string{path}) })
	require.NoError(t, err)
	assertJSON(t, output)
	assertContains(t, output, []string{`"name": "Small"`, `"store": "mini"`, `"type_name": "root"`})
}

func TestCatCommand(t *testing.T) {
	path := sampleFile(t)

	t.Run("by name", func(t *testing.T) {
		resetFlags()
		output, err := captureOutput(t, func() error { return runCat([]string{path, "Large"}) })
		require.NoError(t, err)
		assert.Equal(t, string(largeData), output)
	})

	t.Run("by mini chain", func(t *testing.T) {
		fs, err := cfb.Open(path, cfb.OpenOptions{ReadOnly: true})
		require.NoError(t, err)
		e, ok := fs.Lookup("Small")
		require.True(t, ok)
		require.NoError(t, fs.Close())

		resetFlags()
		catStart, catSize, catMini = int64(e.StartBlock()), e.Size(), true
		output, err := captureOutput(t, func() error { return runCat([]string{path}) })
		require.NoError(t, err)
		assert.Equal(t, string(smallData), output)
	})

	t.Run("unknown name", func(t *testing.T) {
		resetFlags()
		_, err := captureOutput(t, func() error { return runCat([]string{path, "Nope"}) })
		require.ErrorContains(t, err, `no entry named "Nope"`)
	})

	t.Run("no name or start", func(t *testing.T) {
		resetFlags()
		_, err := captureOutput(t, func() error { return runCat([]string{path}) })
		require.Error(t, err)
	})
}

func TestChainCommand(t *testing.T) {
	path := sampleFile(t)

	resetFlags()
	output, err := captureOutput(t, func() error { return runChain([]string{path, "Large"}) })
	require.NoError(t, err)
	assertContains(t, output, []string{"Large (main, 13 sectors)", "-> END_OF_CHAIN"})

	resetFlags()
	output, err = captureOutput(t, func() error { return runChain([]string{path, "Small"}) })
	require.NoError(t, err)
	assert.Contains(t, output, "Small (mini, 1 sectors)")

	resetFlags()
	jsonOut = true
	output, err = captureOutput(t, func() error { return runChain([]string{path, "@directory"}) })
	require.NoError(t, err)
	assertJSON(t, output)
	assert.Contains(t, output, `"store": "main"`)

	resetFlags()
	_, err = captureOutput(t, func() error { return runChain([]string{path, "missing"}) })
	require.Error(t, err)
}

func TestVerifyCommand(t *testing.T) {
	good := sampleFile(t)

	// Clear the FAT marker of the first BAT sector.
	data, err := os.ReadFile(good)
	require.NoError(t, err)
	bad := filepath.Join(t.TempDir(), "bad.cfb")
	format.PutU32(data, 512, uint32(cfb.FreeSector))
	require.NoError(t, os.WriteFile(bad, data, 0o644))

	resetFlags()
	output, err := captureOutput(t, func() error { return runVerify([]string{good}) })
	require.NoError(t, err)
	assertContains(t, output, []string{"OK", good})

	resetFlags()
	output, err = captureOutput(t, func() error { return runVerify([]string{good, bad}) })
	require.ErrorContains(t, err, "1 of 2 files failed verification")
	assertContains(t, output, []string{"FAIL", bad, "expected FAT"})

	resetFlags()
	jsonOut = true
	output, err = captureOutput(t, func() error { return runVerify([]string{bad}) })
	require.Error(t, err)
	assertJSON(t, output)
	assert.Contains(t, output, `"corrupt": true`)
}

func TestMapCommand(t *testing.T) {
	path := sampleFile(t)

	resetFlags()
	mapOut = filepath.Join(t.TempDir(), "map.png")
	output, err := captureOutput(t, func() error { return runMap([]string{path}) })
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote")

	png, err := os.ReadFile(mapOut)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))

	resetFlags()
	mapCell = 1
	_, err = captureOutput(t, func() error { return runMap([]string{path}) })
	require.Error(t, err)
}

func TestSectorStates(t *testing.T) {
	fs, err := cfb.OpenBytes(testutil.BuildContainer(t, cfb.SmallerBigBlockSize,
		testutil.Stream{Name: "Large", Data: largeData},
	))
	require.NoError(t, err)

	states := sectorStates(fs.Main())
	require.Len(t, states, int(fs.Main().SectorCount()))
	assert.Equal(t, cfb.FATSector, states[0])

	r, g, b := sectorColor(cfb.FATSector)
	assert.NotEqual(t, [3]float64{r, g, b}, [3]float64{0, 0, 0})
}
