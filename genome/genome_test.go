package genome

import (
	"github.com/vertgenlab/gonomics/dna"
	"strings"
	"testing"
)

func TestBaseLookup(t *testing.T) {
	g := Read("testdata/test.fa")

	// lookups are 1-based and case normalized
	if b, ok := g.Base("chr1", 1); !ok || b != dna.A {
		t.Error("problem with first base lookup:", b, ok)
	}
	if b, ok := g.Base("chr1", 5); !ok || b != dna.A {
		t.Error("soft masked bases should be uppercased on load:", b, ok)
	}
	if b, ok := g.Base("chr1", 12); !ok || b != dna.T {
		t.Error("problem with last base lookup:", b, ok)
	}
	if b, ok := g.Base("chr2", 4); !ok || b != dna.C {
		t.Error("problem with second contig lookup:", b, ok)
	}

	// out of range and unknown contigs are absent, not errors
	if _, ok := g.Base("chr1", 0); ok {
		t.Error("position 0 is undefined and must be absent")
	}
	if _, ok := g.Base("chr1", 13); ok {
		t.Error("position past the end of the contig must be absent")
	}
	if _, ok := g.Base("chrX", 1); ok {
		t.Error("unknown contig must be absent")
	}
}

func TestNilGenome(t *testing.T) {
	var g *Genome
	if _, ok := g.Base("chr1", 1); ok {
		t.Error("nil genome must answer every lookup with absent")
	}
	if g.Size("chr1") != 0 || g.Contigs() != nil || g.VcfContigLines() != "" {
		t.Error("nil genome accessors must be empty")
	}
}

func TestSizeAndContigs(t *testing.T) {
	g := Read("testdata/test.fa")
	if g.Size("chr1") != 12 || g.Size("chr2") != 6 || g.Size("chrX") != 0 {
		t.Error("problem with contig sizes:", g.Size("chr1"), g.Size("chr2"), g.Size("chrX"))
	}
	contigs := g.Contigs()
	if len(contigs) != 2 || contigs[0] != "chr1" || contigs[1] != "chr2" {
		t.Error("contigs must keep fasta record order:", contigs)
	}
}

func TestVcfContigLines(t *testing.T) {
	g := Read("testdata/test.fa")
	want := "##contig=<ID=chr1,length=12>\n##contig=<ID=chr2,length=6>\n"
	if g.VcfContigLines() != want {
		t.Error("problem with contig header lines:", strings.TrimSpace(g.VcfContigLines()))
	}
}
