package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadASCIIGrid parses an ESRI ASCII grid (.asc), the plain-text raster
// interchange format the upstream raster preparation step exports. Headers
// may appear in any order; NODATA_VALUE defaults to -9999 when absent.
func ReadASCIIGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("raster: open grid: %w", err)
	}
	defer f.Close()

	g, err := parseASCIIGrid(f)
	if err != nil {
		return nil, fmt.Errorf("raster: parse %s: %w", path, err)
	}
	return g, nil
}

func parseASCIIGrid(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	headers := map[string]float64{}
	var values []float64

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		// Header lines are "name value" pairs; the first line that does not
		// start with a letter begins the data block.
		if len(fields) == 2 && isHeaderName(fields[0]) {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("header %s: %w", fields[0], err)
			}
			headers[strings.ToLower(fields[0])] = v
			continue
		}

		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("data value %q: %w", field, err)
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	ncols, ok := headers["ncols"]
	if !ok {
		return nil, fmt.Errorf("missing ncols header")
	}
	nrows, ok := headers["nrows"]
	if !ok {
		return nil, fmt.Errorf("missing nrows header")
	}
	cellSize, ok := headers["cellsize"]
	if !ok {
		return nil, fmt.Errorf("missing cellsize header")
	}

	width, height := int(ncols), int(nrows)
	if len(values) != width*height {
		return nil, fmt.Errorf("expected %d values, got %d", width*height, len(values))
	}

	noData := -9999.0
	if v, ok := headers["nodata_value"]; ok {
		noData = v
	}

	// xllcorner/yllcorner give the lower-left corner; xllcenter/yllcenter
	// give the centre of the lower-left cell.
	minX := headers["xllcorner"]
	minY := headers["yllcorner"]
	if v, ok := headers["xllcenter"]; ok {
		minX = v - cellSize/2
	}
	if v, ok := headers["yllcenter"]; ok {
		minY = v - cellSize/2
	}

	return NewGrid(width, height, cellSize, minX, minY, noData, values), nil
}

func isHeaderName(s string) bool {
	switch strings.ToLower(s) {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}

// WriteASCIIGrid writes a grid in the same format, used by the fixture
// generator and round-trip tests.
func WriteASCIIGrid(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("raster: create grid: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ncols %d\n", g.Width)
	fmt.Fprintf(w, "nrows %d\n", g.Height)
	fmt.Fprintf(w, "xllcorner %g\n", g.MinX)
	fmt.Fprintf(w, "yllcorner %g\n", g.MinY)
	fmt.Fprintf(w, "cellsize %g\n", g.CellSize)
	fmt.Fprintf(w, "NODATA_value %g\n", g.NoData)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if col > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%g", g.Value(row, col))
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("raster: write grid: %w", err)
	}
	return f.Close()
}
