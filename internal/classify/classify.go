// Package classify maps a failed worker's error output to a known failure
// outcome.
package classify

import "strings"

// Outcome tags how a grid point ended.
type Outcome string

const (
	// OK marks a point whose worker exited cleanly.
	OK Outcome = "ok"
	// EMFILE marks a worker that ran out of file descriptors.
	EMFILE Outcome = "emfile"
	// Timeout marks a worker whose internal promise timed out.
	Timeout Outcome = "timeout"
	// Unrecognized is returned when no signature matches. It is never a
	// row status: callers must propagate the original failure instead.
	Unrecognized Outcome = "unrecognized"
)

// Signature pairs an outcome with the text that identifies it.
type Signature struct {
	Outcome Outcome `yaml:"outcome" json:"outcome"`
	Pattern string  `yaml:"pattern" json:"pattern"`
}

// DefaultSignatures are the failure modes every sweep understands, in match order.
var DefaultSignatures = []Signature{
	{Outcome: EMFILE, Pattern: "EMFILE: too many open files"},
	{Outcome: Timeout, Pattern: "promise timeout of 20000ms reached"},
}

// Classifier holds an ordered signature table.
type Classifier struct {
	signatures []Signature
}

// New returns a classifier over DefaultSignatures followed by extra. The
// default entries always win over later ones for the same text.
func New(extra ...Signature) *Classifier {
	sigs := make([]Signature, 0, len(DefaultSignatures)+len(extra))
	sigs = append(sigs, DefaultSignatures...)
	sigs = append(sigs, extra...)
	return &Classifier{signatures: sigs}
}

// Signatures returns a copy of the table in match order.
func (c *Classifier) Signatures() []Signature {
	return append([]Signature(nil), c.signatures...)
}

// Outcomes lists the distinct outcomes a report may contain, OK first.
func (c *Classifier) Outcomes() []Outcome {
	out := []Outcome{OK}
	seen := map[Outcome]bool{OK: true}
	for _, s := range c.signatures {
		if !seen[s.Outcome] {
			seen[s.Outcome] = true
			out = append(out, s.Outcome)
		}
	}
	return out
}

// Classify inspects only the first line of stderr and returns the outcome of
// the first signature whose pattern occurs in it, or Unrecognized.
func (c *Classifier) Classify(stderr string) Outcome {
	head, _, _ := strings.Cut(stderr, "\n")
	for _, s := range c.signatures {
		if s.Pattern != "" && strings.Contains(head, s.Pattern) {
			return s.Outcome
		}
	}
	return Unrecognized
}
