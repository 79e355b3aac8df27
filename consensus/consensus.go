// Package consensus tallies decoded pileup observations into a per-position
// consensus call with explicit filter diagnostics.
package consensus

import (
	"fmt"
	"github.com/dasnellings/pileup2vcf/pileup"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"math"
	"strings"
)

// NoCall is the sentinel emitted when no confident consensus exists.
const NoCall = "N"

// minStrandShare is the fraction of majority-supporting reads that each strand
// must contribute before the strand balance filters fire. Exactly this share
// passes.
const minStrandShare = 0.1

// Settings holds the thresholds consulted while calling.
type Settings struct {
	MinCoverage  int     // depth filter fires below this read count
	MinFrequency float64 // freq filter fires below this majority fraction, range [0,1]
}

// DefaultSettings returns the standard calling thresholds.
func DefaultSettings() Settings {
	return Settings{MinCoverage: 10, MinFrequency: 0.75}
}

// Result is the outcome of calling one position. Winner is the majority token
// before any filter override; Call is Winner unless a filter degraded the
// position to NoCall. Filters holds name:value diagnostics in evaluation order.
type Result struct {
	Winner      string
	Call        string
	AlleleCount int
	Frequency   float64
	Score       float64
	Filters     []string
}

// Passed reports whether no filter fired.
func (r Result) Passed() bool {
	return len(r.Filters) == 0
}

// FilterString renders the FILTER column: "PASS", or the fired diagnostics
// joined by semicolons with the original guess concatenated on the end. The
// guess entry is appended without a joining semicolon.
func (r Result) FilterString() string {
	if r.Passed() {
		return "PASS"
	}
	return strings.Join(r.Filters, ";") + "ifIHadToGuess:" + r.Winner
}

// Call computes the consensus for one position. obs is the decoded read
// column; quals and mapQuals are the phred+33 strings paired index-for-index
// with obs. Call is a pure function of its arguments.
//
// The majority is the most frequent case-preserved token, ties broken by
// smallest token in byte order. Support for the majority (allele count, strand
// balance, score weighting) is counted case-insensitively so that forward and
// reverse reads of the same base reinforce each other.
func Call(obs []pileup.Observation, quals, mapQuals string, s Settings) Result {
	var res Result
	res.Winner = majority(obs)

	var fwd, rev int
	for i := range obs {
		if !strings.EqualFold(obs[i].Token, res.Winner) {
			continue
		}
		res.AlleleCount++
		switch obs[i].Strand {
		case pileup.Forward:
			fwd++
		case pileup.Reverse:
			rev++
		}
	}

	depth := len(obs)
	if depth > 0 {
		res.Frequency = round2(float64(res.AlleleCount) / float64(depth))
	}
	res.Score = round2(score(obs, quals, mapQuals, res.Winner))

	if depth < s.MinCoverage {
		res.Filters = append(res.Filters, fmt.Sprintf("depth:%d", depth))
	}
	if res.Frequency < s.MinFrequency {
		res.Filters = append(res.Filters, fmt.Sprintf("freq:%.2f", res.Frequency))
	}
	if fwd+rev > 0 {
		fwdShare := float64(fwd) / float64(fwd+rev)
		revShare := float64(rev) / float64(fwd+rev)
		if fwdShare < minStrandShare || revShare < minStrandShare {
			res.Filters = append(res.Filters, fmt.Sprintf("forwardReads:%d", fwd), fmt.Sprintf("reverseReads:%d", rev))
		}
	}

	res.Call = res.Winner
	if res.Score < 0 {
		res.Filters = append(res.Filters, fmt.Sprintf("score:%.2f", res.Score))
		res.Call = NoCall
	}
	if !res.Passed() {
		res.Call = NoCall
	}
	return res
}

// majority returns the most frequent token across obs. Tokens tally
// case-preserved; ties resolve to the smallest token in byte order. An empty
// column has majority NoCall.
func majority(obs []pileup.Observation) string {
	if len(obs) == 0 {
		return NoCall
	}
	counts := make(map[string]int)
	for i := range obs {
		counts[obs[i].Token]++
	}
	tokens := maps.Keys(counts)
	slices.Sort(tokens)
	var winner string
	var best int
	for _, tok := range tokens {
		if counts[tok] > best {
			winner = tok
			best = counts[tok]
		}
	}
	return winner
}

// score sums the phred-weighted agreement of every read with the winner: base
// quality times mapping quality, added for supporting reads and subtracted for
// the rest.
func score(obs []pileup.Observation, quals, mapQuals string, winner string) float64 {
	var total float64
	for i := range obs {
		weight := float64(int(quals[i])-33) * float64(int(mapQuals[i])-33)
		if strings.EqualFold(obs[i].Token, winner) {
			total += weight
		} else {
			total -= weight
		}
	}
	return total
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
