package pileup

import (
	"testing"
)

func TestParse(t *testing.T) {
	rec, err := Parse("chr1\t42\tA\t4\t..,,\tIIII\t]]]]\textra\tfields")
	if err != nil {
		t.Error("problem parsing well formed line:", err)
	}
	if rec.Chr != "chr1" || rec.Pos != 42 || rec.RefHint != 'A' || rec.Depth != 4 {
		t.Error("problem with parsed fields:", rec)
	}
	if rec.ReadString != "..,," || rec.Quals != "IIII" || rec.MapQuals != "]]]]" {
		t.Error("problem with parsed strings:", rec)
	}

	// space delimited works too
	rec, err = Parse("chr2 7 g 2 ., I5 ]]")
	if err != nil || rec.Chr != "chr2" || rec.Quals != "I5" {
		t.Error("problem parsing space delimited line:", rec, err)
	}
}

func TestParseZeroDepth(t *testing.T) {
	rec, err := Parse("chr1\t100\tC\t0\t*\t*\t*")
	if err != nil {
		t.Error("zero depth line with placeholders should parse:", err)
	}
	if rec.Depth != 0 || rec.ReadString != "" || rec.Quals != "" {
		t.Error("zero depth line should carry empty strings:", rec)
	}

	// samtools sometimes drops the placeholder columns entirely
	rec, err = Parse("chr1\t100\tC\t0")
	if err != nil || rec.Depth != 0 {
		t.Error("zero depth line without placeholders should parse:", rec, err)
	}
}

func TestParseMalformed(t *testing.T) {
	bad := []string{
		"chr1\t42\tA",                           // too few fields
		"chr1\tnotAnInt\tA\t4\t....\tIIII\t]]]]", // bad position
		"chr1\t0\tA\t4\t....\tIIII\t]]]]",        // position below 1
		"chr1\t42\tAC\t4\t....\tIIII\t]]]]",      // bad reference column
		"chr1\t42\tA\t-1\t....\tIIII\t]]]]",      // negative depth
		"chr1\t42\tA\t4\t....\tIIII",             // missing mapping qualities
		"chr1\t42\tA\t4\t....\tIII\t]]]]",        // quality length mismatch
		"chr1\t42\tA\t4\t....\tIIII\t]]]",        // mapping quality length mismatch
	}
	for _, line := range bad {
		if _, err := Parse(line); err == nil {
			t.Error("expected parse error for line:", line)
		}
	}
}

func TestReader(t *testing.T) {
	reader := NewReader("testdata/small.pileup")
	var count int
	var lastPos int
	for rec, done, err := reader.Next(); !done; rec, done, err = reader.Next() {
		if err != nil {
			t.Error("unexpected error reading testdata:", err)
		}
		count++
		lastPos = rec.Pos
	}
	if err := reader.Close(); err != nil {
		t.Error("problem closing reader:", err)
	}
	if count != 5 || lastPos != 15 {
		t.Error("problem streaming testdata records:", count, lastPos)
	}
}

func TestGoReadToChan(t *testing.T) {
	var count int
	for range GoReadToChan("testdata/small.pileup") {
		count++
	}
	if count != 5 {
		t.Error("problem streaming testdata through channel:", count)
	}
}
