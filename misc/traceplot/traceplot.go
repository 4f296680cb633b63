// traceplot draws the trace and the histogram of a trajectory column.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	app     = kingpin.New("traceplot", "trace and histogram of a trajectory column")
	trajF   = app.Arg("trajectory", "trajectory file").Required().ExistingFile()
	column  = app.Flag("col", "column name").Default("lnP").String()
	outF    = app.Flag("out", "output png file").Short('o').Default("trace.png").String()
	burnin  = app.Flag("burnin", "number of rows to skip").Default("0").Int()
	bins    = app.Flag("bins", "number of histogram bins").Default("30").Int()
	widthIn = app.Flag("width", "width in inches").Default("6").Float64()
)

// readColumn reads the iterations and the values of a column from a
// tab separated trajectory with a header.
func readColumn(r io.Reader, col string, skip int) (iter, values []float64, err error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err = scanner.Err(); err == nil {
			err = fmt.Errorf("empty trajectory")
		}
		return
	}
	header := strings.Split(scanner.Text(), "\t")
	c := -1
	for i, name := range header {
		if name == col {
			c = i
		}
	}
	if c < 0 {
		return nil, nil, fmt.Errorf("column %q not found", col)
	}

	row := 0
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != len(header) {
			return nil, nil, fmt.Errorf("line %d: expected %d fields, got %d", row+2, len(header), len(fields))
		}
		row++
		if row <= skip {
			continue
		}
		it, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, err
		}
		v, err := strconv.ParseFloat(fields[c], 64)
		if err != nil {
			return nil, nil, err
		}
		iter = append(iter, it)
		values = append(values, v)
	}
	return iter, values, scanner.Err()
}

// plots creates the trace and the histogram plots.
func plots(col string, iter, values []float64, bins int) (trace, hist *plot.Plot, err error) {
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("no values")
	}
	pts := make(plotter.XYs, len(values))
	for i := range values {
		pts[i].X = iter[i]
		pts[i].Y = values[i]
	}

	trace = plot.New()
	trace.X.Label.Text = "iteration"
	trace.Y.Label.Text = col
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, nil, err
	}
	trace.Add(line)

	hist = plot.New()
	hist.X.Label.Text = col
	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return nil, nil, err
	}
	h.Normalize(1)
	hist.Add(h)
	return trace, hist, nil
}

// save draws the plots one above the other into a png file.
func save(fn string, width vg.Length, trace, hist *plot.Plot) error {
	img := vgimg.New(width, width)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2,
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: 3 * vg.Millimeter,
	}
	canvases := plot.Align([][]*plot.Plot{{trace}, {hist}}, tiles, dc)
	trace.Draw(canvases[0][0])
	hist.Draw(canvases[1][0])

	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	f, err := os.Open(*trajF)
	if err != nil {
		app.Fatalf("%v", err)
	}
	iter, values, err := readColumn(f, *column, *burnin)
	f.Close()
	if err != nil {
		app.Fatalf("%v", err)
	}

	trace, hist, err := plots(*column, iter, values, *bins)
	if err != nil {
		app.Fatalf("%v", err)
	}
	if err := save(*outF, vg.Length(*widthIn)*vg.Inch, trace, hist); err != nil {
		app.Fatalf("%v", err)
	}
}
