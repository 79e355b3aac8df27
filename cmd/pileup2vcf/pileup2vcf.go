package main

import (
	"flag"
	"fmt"
	"github.com/dasnellings/pileup2vcf/consensus"
	"github.com/dasnellings/pileup2vcf/genome"
	"github.com/dasnellings/pileup2vcf/pileup"
	"github.com/pkg/profile"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"github.com/vertgenlab/gonomics/vcf"
	"log"
	"strings"
	"sync"
	"time"
)

func usage() {
	fmt.Print(
		"pileup2vcf - Call per-position consensus bases from an mpileup stream and emit VCF records.\n" +
			"Usage:\n" +
			"samtools mpileup -s -f ref.fasta input.bam | pileup2vcf [options] -r ref.fasta > output.vcf\n\n")
	flag.PrintDefaults()
}

func main() {
	cpuprofile := flag.Bool("cpuprofile", false, "write cpu profile")
	memprofile := flag.Bool("memprofile", false, "write memory profile")
	input := flag.String("i", "stdin", "Input pileup file. Defaults to reading a samtools mpileup pipe from stdin. Must carry the mapping quality column (samtools mpileup -s).")
	output := flag.String("o", "stdout", "Output VCF file.")
	ref := flag.String("r", "", "Fasta file with the reference genome used to generate the pileup. Without -r, reference matches are reported as the literal '.' allele.")
	minCoverage := flag.Int("minCoverage", 10, "Minimum read depth for a confident call.")
	minFrequency := flag.Float64("minFrequency", 0.75, "Minimum fraction of reads supporting the majority allele for a confident call. Range [0,1].")
	variantsOnly := flag.Bool("variantsOnly", false, "Suppress records whose call matches the reference, is N, or sits on a reference N.")
	strict := flag.Bool("strict", false, "Abort on the first malformed or undecodable line instead of skipping and counting it.")
	threads := flag.Int("threads", 1, "Number of processor threads to use for calling. Output VCF will be out of order with threads > 1.")
	maxPositions := flag.Int("maxPositions", 0, "Stop after this many positions. 0 processes the whole stream. Useful when debugging an upstream pipeline.")
	flag.Parse()

	if *memprofile && *cpuprofile {
		usage()
		log.Fatal("ERROR: -memprofile and -cpuprofile are mutually exclusive.")
	}
	if *memprofile {
		defer profile.Start(profile.MemProfile).Stop()
	}
	if *cpuprofile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	if *threads < 1 {
		log.Fatal("ERROR: threads must be >= 1.")
	}
	if *minCoverage < 0 {
		log.Fatal("ERROR: minCoverage must be >= 0.")
	}
	if *minFrequency < 0 || *minFrequency > 1 {
		log.Fatal("ERROR: minFrequency must be between 0 and 1.")
	}

	pileup2vcf(*input, *output, *ref, *minCoverage, *minFrequency, *variantsOnly, *strict, *threads, *maxPositions)
}

// positionCall is one worker's answer for one input line.
type positionCall struct {
	v    vcf.Vcf
	keep bool
	err  error
}

func pileup2vcf(input, output, ref string, minCoverage int, minFrequency float64, variantsOnly, strict bool, threads, maxPositions int) {
	// progress tracking
	startTime := time.Now().UnixMilli()

	var gen *genome.Genome
	if ref != "" {
		gen = genome.Read(ref)
	}
	vcfOut := fileio.EasyCreate(output)
	vcf.NewWriteHeader(vcfOut, makeVcfHeader(ref, gen))

	settings := consensus.Settings{MinCoverage: minCoverage, MinFrequency: minFrequency}

	// overhead for multithreading. Workers share only the read-only genome.
	lineChan := make(chan string, 1000)
	outputChan := make(chan positionCall, 1000)
	wg := new(sync.WaitGroup)
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go spawnThread(lineChan, outputChan, gen, settings, variantsOnly, wg)
	}

	// spawn a goroutine to wait until threads are done, then close the output
	go func(*sync.WaitGroup) {
		wg.Wait()
		close(outputChan)
	}(wg)

	// spawn a goroutine to feed pileup lines to the workers
	go func() {
		pileups := fileio.EasyOpen(input)
		var line string
		var done bool
		var linesRead int
		for line, done = fileio.EasyNextRealLine(pileups); !done; line, done = fileio.EasyNextRealLine(pileups) {
			lineChan <- line
			linesRead++
			if maxPositions > 0 && linesRead >= maxPositions {
				break
			}
		}
		err := pileups.Close()
		exception.PanicOnErr(err)
		close(lineChan)
	}()

	var positionsProcessed, recordsWritten, linesSkipped int
	lastCheckpointTime := startTime
	currTime := startTime
	for call := range outputChan {
		if call.err != nil {
			if strict {
				log.Fatalf("ERROR: %s", call.err)
			}
			log.Printf("WARNING: skipping line: %s", call.err)
			linesSkipped++
			continue
		}
		positionsProcessed++
		if positionsProcessed%100000 == 0 {
			currTime = time.Now().UnixMilli()
			log.Printf("Processed 100000 Positions in:\t%dsec\t%s:%d", (currTime-lastCheckpointTime)/1000, call.v.Chr, call.v.Pos)
			lastCheckpointTime = currTime
		}
		if call.keep {
			vcf.WriteVcf(vcfOut, call.v)
			recordsWritten++
		}
	}

	err := vcfOut.Close()
	exception.PanicOnErr(err)

	if linesSkipped > 0 {
		log.Fatalf("ERROR: %d line(s) could not be processed, see warnings above. Run with -strict to stop at the first.", linesSkipped)
	}
	endTime := time.Now().UnixMilli()
	log.Printf("Successfully Completed\nPositions Processed: %d\nRecords Written: %d\nTotal Runtime: %d Seconds\n", positionsProcessed, recordsWritten, (endTime-startTime)/1000)
}

func spawnThread(lineChan <-chan string, outputChan chan<- positionCall, gen *genome.Genome, settings consensus.Settings, variantsOnly bool, wg *sync.WaitGroup) {
	for line := range lineChan {
		var call positionCall
		rec, err := pileup.Parse(line)
		if err != nil {
			call.err = err
			outputChan <- call
			continue
		}
		obs, err := pileup.DecodeReads(rec, gen)
		if err != nil {
			call.err = err
			outputChan <- call
			continue
		}
		res := consensus.Call(obs, rec.Quals, rec.MapQuals, settings)
		call.v = toVcf(rec, res, gen)
		call.keep = !variantsOnly || !suppress(call.v)
		outputChan <- call
	}
	wg.Done()
}

// toVcf formats one consensus result as a VCF record.
func toVcf(rec pileup.Record, res consensus.Result, gen *genome.Genome) vcf.Vcf {
	var v vcf.Vcf
	v.Chr = rec.Chr
	v.Pos = rec.Pos
	v.Id = fmt.Sprintf("%s:%d", rec.Chr, rec.Pos)
	v.Ref = "."
	if b, ok := gen.Base(rec.Chr, rec.Pos); ok {
		v.Ref = strings.ToUpper(string(dna.BaseToRune(b)))
	}
	v.Alt = []string{strings.ToUpper(res.Call)}
	v.Qual = res.Score
	v.Filter = res.FilterString()
	v.Info = fmt.Sprintf("DP=%d;AC=%d", rec.Depth, res.AlleleCount)
	return v
}

// suppress reports whether a record carries no variant worth keeping when
// running with -variantsOnly.
func suppress(v vcf.Vcf) bool {
	alt := v.Alt[0]
	return strings.EqualFold(v.Ref, alt) || alt == consensus.NoCall || v.Ref == consensus.NoCall
}

func makeVcfHeader(referenceFile string, gen *genome.Genome) vcf.Header {
	var header vcf.Header
	header.Text = append(header.Text, "##fileformat=VCFv4.2")
	header.Text = append(header.Text, fmt.Sprintf("##fileDate=%s", time.Now().Format("20060102")))
	header.Text = append(header.Text, "##source=pileup2vcf")
	if referenceFile != "" {
		header.Text = append(header.Text, fmt.Sprintf("##reference=%s", referenceFile))
		header.Text = append(header.Text, strings.TrimSuffix(gen.VcfContigLines(), "\n"))
	}
	header.Text = append(header.Text, "##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Total Read Depth\">")
	header.Text = append(header.Text, "##INFO=<ID=AC,Number=1,Type=Integer,Description=\"Reads Supporting the Called Allele\">")
	header.Text = append(header.Text, "##FILTER=<ID=depth,Description=\"Read depth below minimum coverage\">")
	header.Text = append(header.Text, "##FILTER=<ID=freq,Description=\"Majority allele frequency below minimum\">")
	header.Text = append(header.Text, "##FILTER=<ID=forwardReads,Description=\"Strand imbalance: forward read count among majority-supporting reads\">")
	header.Text = append(header.Text, "##FILTER=<ID=reverseReads,Description=\"Strand imbalance: reverse read count among majority-supporting reads\">")
	header.Text = append(header.Text, "##FILTER=<ID=score,Description=\"Negative quality-weighted agreement score\">")
	header.Text = append(header.Text, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO")
	return header
}
