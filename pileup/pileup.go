// Package pileup parses samtools mpileup lines and decodes their per-read
// base strings into ordered observations.
package pileup

import (
	"fmt"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"log"
	"strconv"
	"strings"
)

// Record is one parsed pileup line: every aligned read's call at a single
// 1-based position of one contig.
type Record struct {
	Chr        string
	Pos        int
	RefHint    byte   // reference base column as written upstream
	Depth      int    // number of reads covering this position
	ReadString string // compact per-read encoding, expanded by DecodeReads
	Quals      string // one phred+33 base quality character per read
	MapQuals   string // one phred+33 mapping quality character per read
}

// Parse splits one pileup line into a Record and validates it. Trailing fields
// beyond the seven used here are ignored. At depth 0 samtools writes `*`
// placeholder columns, so the quality-length check only applies to covered
// positions.
func Parse(line string) (Record, error) {
	var rec Record
	var err error
	col := strings.Fields(line)
	if len(col) < 4 {
		return rec, fmt.Errorf("malformed pileup line: expected at least 4 fields, got %d: %s", len(col), line)
	}
	rec.Chr = col[0]
	rec.Pos, err = strconv.Atoi(col[1])
	if err != nil || rec.Pos < 1 {
		return rec, fmt.Errorf("malformed pileup line: bad position %q on contig %s", col[1], rec.Chr)
	}
	if len(col[2]) != 1 {
		return rec, fmt.Errorf("malformed pileup line at %s:%d: bad reference column %q", rec.Chr, rec.Pos, col[2])
	}
	rec.RefHint = col[2][0]
	rec.Depth, err = strconv.Atoi(col[3])
	if err != nil || rec.Depth < 0 {
		return rec, fmt.Errorf("malformed pileup line at %s:%d: bad depth %q", rec.Chr, rec.Pos, col[3])
	}
	if rec.Depth == 0 {
		return rec, nil
	}
	if len(col) < 7 {
		return rec, fmt.Errorf("malformed pileup line at %s:%d: expected at least 7 fields, got %d", rec.Chr, rec.Pos, len(col))
	}
	rec.ReadString = col[4]
	rec.Quals = col[5]
	rec.MapQuals = col[6]
	if len(rec.Quals) != rec.Depth || len(rec.MapQuals) != rec.Depth {
		return rec, fmt.Errorf("malformed pileup line at %s:%d: depth %d but %d quality and %d mapping quality characters",
			rec.Chr, rec.Pos, rec.Depth, len(rec.Quals), len(rec.MapQuals))
	}
	return rec, nil
}

// Reader streams Records from a pileup file. The magic names "stdin", gzipped
// files, and plain text are all handled by fileio.
type Reader struct {
	file *fileio.EasyReader
}

// NewReader opens a pileup file for streaming.
func NewReader(filename string) *Reader {
	return &Reader{file: fileio.EasyOpen(filename)}
}

// Next returns the next record. done is true once the stream is exhausted.
// A parse failure is returned for the caller's strictness policy to handle.
func (r *Reader) Next() (Record, bool, error) {
	line, done := fileio.EasyNextRealLine(r.file)
	if done {
		return Record{}, true, nil
	}
	rec, err := Parse(line)
	return rec, false, err
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// GoReadToChan streams all records from a file through a channel, fatal on the
// first malformed line. Callers needing skip-and-count semantics use Reader.
func GoReadToChan(filename string) <-chan Record {
	c := make(chan Record, 1000)
	go func() {
		reader := NewReader(filename)
		for rec, done, err := reader.Next(); !done; rec, done, err = reader.Next() {
			if err != nil {
				log.Fatalf("ERROR: %s", err)
			}
			c <- rec
		}
		err := reader.Close()
		exception.PanicOnErr(err)
		close(c)
	}()
	return c
}
