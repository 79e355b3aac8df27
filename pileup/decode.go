package pileup

import (
	"fmt"
	"github.com/dasnellings/pileup2vcf/genome"
	"github.com/vertgenlab/gonomics/dna"
	"strings"
)

// Strand is the orientation of one read relative to the reference.
type Strand byte

const (
	Forward Strand = iota
	Reverse
	None // deletion spans carry no strand information
)

// String method for Strand enables easy writing with the fmt package.
func (s Strand) String() string {
	switch s {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	default:
		return "."
	}
}

// Observation is one decoded read at one position. Token is normally a single
// base character, a literal inserted sequence, or a run of '*' for a deletion
// span. Observation i pairs with quality character i of the source record.
type Observation struct {
	Token  string
	Strand Strand
}

// DecodeReads expands a record's read string into exactly Depth observations,
// in read order. ref may be nil; reference matches then decode to the literal
// "." token. The whole string must be consumed and the observation count must
// match the declared depth, otherwise the line fails with an error naming the
// position. A declared indel length that overruns the string is an error, not
// a skip: the upstream encoder never splits an indel across lines.
func DecodeReads(rec Record, ref *genome.Genome) ([]Observation, error) {
	obs := make([]Observation, 0, rec.Depth)
	s := rec.ReadString
	refFwd, refRev := refTokens(rec, ref)
	for i := 0; i < len(s); {
		switch c := s[i]; c {
		case '^':
			// read start: the next character is the read's mapping quality
			if i+1 >= len(s) {
				return nil, fmt.Errorf("cannot decode reads at %s:%d: read start marker at end of string", rec.Chr, rec.Pos)
			}
			i += 2
		case '$':
			i++
		case '.':
			obs = append(obs, Observation{Token: refFwd, Strand: Forward})
			i++
		case ',':
			obs = append(obs, Observation{Token: refRev, Strand: Reverse})
			i++
		case '+', '-':
			n, width := decodeLength(s[i+1:])
			if width == 0 {
				return nil, fmt.Errorf("cannot decode reads at %s:%d: indel marker %q without a length", rec.Chr, rec.Pos, c)
			}
			if n <= 0 {
				return nil, fmt.Errorf("cannot decode reads at %s:%d: bad indel length %q", rec.Chr, rec.Pos, s[i:i+1+width])
			}
			i += 1 + width
			if c == '-' {
				obs = append(obs, Observation{Token: strings.Repeat("*", n), Strand: None})
				break
			}
			if i+n > len(s) {
				return nil, fmt.Errorf("cannot decode reads at %s:%d: insertion of %d bases overruns read string", rec.Chr, rec.Pos, n)
			}
			seq := s[i : i+n]
			obs = append(obs, Observation{Token: seq, Strand: tokenStrand(seq)})
			i += n
		default:
			obs = append(obs, Observation{Token: string(c), Strand: tokenStrand(string(c))})
			i++
		}
	}
	if len(obs) != rec.Depth {
		return nil, fmt.Errorf("cannot decode reads at %s:%d: depth is %d but read string yields %d observations", rec.Chr, rec.Pos, rec.Depth, len(obs))
	}
	return obs, nil
}

// refTokens resolves the forward and reverse tokens for reference matches at
// this position. Without a loaded reference both are the literal ".".
func refTokens(rec Record, ref *genome.Genome) (fwd string, rev string) {
	b, ok := ref.Base(rec.Chr, rec.Pos)
	if !ok {
		return ".", "."
	}
	fwd = strings.ToUpper(string(dna.BaseToRune(b)))
	return fwd, strings.ToLower(fwd)
}

// maxIndelLength bounds a declared indel span. mpileup never encodes indels
// anywhere near this long; longer digit runs are corrupt input.
const maxIndelLength = 1 << 24

// decodeLength reads the leading decimal digits of s, returning the value and
// how many characters were consumed. n is -1 when the digits exceed
// maxIndelLength, so the value never overflows.
func decodeLength(s string) (n int, width int) {
	for width < len(s) && s[width] >= '0' && s[width] <= '9' {
		if n >= 0 {
			n = n*10 + int(s[width]-'0')
			if n > maxIndelLength {
				n = -1
			}
		}
		width++
	}
	return n, width
}

// tokenStrand infers orientation from token case: uppercase and "." style
// tokens are forward reads, lowercase are reverse, anything else is unknown.
func tokenStrand(token string) Strand {
	c := token[0]
	switch {
	case c >= 'A' && c <= 'Z', c == '.':
		return Forward
	case c >= 'a' && c <= 'z', c == ',':
		return Reverse
	default:
		return None
	}
}
