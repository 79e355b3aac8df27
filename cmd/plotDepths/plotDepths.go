package main

import (
	"flag"
	"fmt"
	"github.com/dasnellings/pileup2vcf/pileup"
	"github.com/guptarohit/asciigraph"
	"github.com/vertgenlab/gonomics/exception"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"log"
	"sort"
)

func usage() {
	fmt.Print(
		"plotDepths - Summarize the depth profile of an mpileup stream before calling.\n" +
			"Usage:\n" +
			"plotDepths [options] -i input.pileup\n\n")
	flag.PrintDefaults()
}

func main() {
	input := flag.String("i", "stdin", "Input pileup file.")
	histogram := flag.String("histogram", "", "Write a depth histogram to this png file.")
	bins := flag.Int("bins", 50, "Number of histogram bins.")
	graphWidth := flag.Int("graphWidth", 120, "Width of the terminal depth profile in characters.")
	maxPositions := flag.Int("maxPositions", 0, "Stop after this many positions. 0 processes the whole stream.")
	flag.Parse()

	if *bins < 1 {
		usage()
		log.Fatal("ERROR: bins must be >= 1.")
	}

	plotDepths(*input, *histogram, *bins, *graphWidth, *maxPositions)
}

func plotDepths(input, histogram string, bins, graphWidth, maxPositions int) {
	var depths []float64
	records := pileup.GoReadToChan(input)
	for rec := range records {
		depths = append(depths, float64(rec.Depth))
		if maxPositions > 0 && len(depths) >= maxPositions {
			break
		}
	}
	if len(depths) == 0 {
		log.Fatal("ERROR: no positions found in input.")
	}

	fmt.Println(asciigraph.Plot(binMeans(depths, graphWidth),
		asciigraph.Height(10),
		asciigraph.Precision(0),
		asciigraph.Caption(fmt.Sprintf("mean depth per 1/%d of stream", graphWidth))))

	sorted := make([]float64, len(depths))
	copy(sorted, depths)
	sort.Float64s(sorted)
	fmt.Printf("Positions:\t%d\n", len(depths))
	fmt.Printf("Mean Depth:\t%.2f\n", stat.Mean(depths, nil))
	fmt.Printf("Stdev Depth:\t%.2f\n", stat.StdDev(depths, nil))
	fmt.Printf("Median Depth:\t%.0f\n", stat.Quantile(0.5, stat.Empirical, sorted, nil))

	if histogram != "" {
		saveHistogram(depths, bins, histogram)
	}
}

// binMeans collapses the per-position depths into width bins of mean depth so
// long contigs still fit in a terminal.
func binMeans(depths []float64, width int) []float64 {
	if len(depths) <= width {
		return depths
	}
	ans := make([]float64, width)
	perBin := float64(len(depths)) / float64(width)
	for i := 0; i < width; i++ {
		start := int(float64(i) * perBin)
		end := int(float64(i+1) * perBin)
		if end > len(depths) {
			end = len(depths)
		}
		ans[i] = stat.Mean(depths[start:end], nil)
	}
	return ans
}

func saveHistogram(depths []float64, bins int, outfile string) {
	hist, err := plotter.NewHist(plotter.Values(depths), bins)
	exception.PanicOnErr(err)

	pl := plot.New()
	pl.Add(hist)
	pl.Title.Text = "Pileup Depth Distribution"
	pl.X.Label.Text = "Depth"
	pl.Y.Label.Text = "Positions"

	err = pl.Save(15*vg.Centimeter, 10*vg.Centimeter, outfile)
	exception.PanicOnErr(err)
	log.Printf("Wrote depth histogram to %s\n", outfile)
}
