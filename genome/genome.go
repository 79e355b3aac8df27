// Package genome holds a reference genome in memory for 1-based per-position lookup.
package genome

import (
	"fmt"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/fasta"
	"strings"
)

// Genome maps contig names to their base sequences. Sequences are stored
// uppercase. A nil *Genome is valid and answers every lookup with ok == false,
// which is how a run without a reference file behaves.
type Genome struct {
	names   []string // retains fasta record order for header output
	seqs    map[string][]dna.Base
	nameMap map[string]int
}

// Read loads a fasta file into a Genome. Fatal if the file is missing or
// malformed, matching startup behavior for a bad -r argument.
func Read(filename string) *Genome {
	return New(fasta.Read(filename))
}

// New builds a Genome from parsed fasta records.
func New(records []fasta.Fasta) *Genome {
	g := &Genome{
		seqs:    make(map[string][]dna.Base),
		nameMap: make(map[string]int),
	}
	for i := range records {
		dna.AllToUpper(records[i].Seq)
		g.names = append(g.names, records[i].Name)
		g.seqs[records[i].Name] = records[i].Seq
		g.nameMap[records[i].Name] = i
	}
	return g
}

// Base returns the reference base at a 1-based position. ok is false for a nil
// genome, an unknown contig, or a position off the end of the contig.
func (g *Genome) Base(chr string, pos int) (dna.Base, bool) {
	if g == nil {
		return dna.N, false
	}
	seq, found := g.seqs[chr]
	if !found || pos < 1 || pos > len(seq) {
		return dna.N, false
	}
	return seq[pos-1], true
}

// Size returns the length of a contig, or 0 if it is not present.
func (g *Genome) Size(chr string) int {
	if g == nil {
		return 0
	}
	return len(g.seqs[chr])
}

// Contigs returns contig names in fasta record order.
func (g *Genome) Contigs() []string {
	if g == nil {
		return nil
	}
	return g.names
}

// VcfContigLines renders the ##contig header lines for every contig in record
// order, one per line with a trailing newline.
func (g *Genome) VcfContigLines() string {
	ans := new(strings.Builder)
	for _, name := range g.Contigs() {
		ans.WriteString(fmt.Sprintf("##contig=<ID=%s,length=%d>\n", name, len(g.seqs[name])))
	}
	return ans.String()
}
