package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		name   string
		stderr string
		want   Outcome
	}{
		{"emfile exact", "EMFILE: too many open files", EMFILE},
		{"emfile embedded", "Error executing lua: EMFILE: too many open files, scandir '/tmp/x'", EMFILE},
		{"timeout", "E5108: promise timeout of 20000ms reached", Timeout},
		{"timeout with stack", "promise timeout of 20000ms reached\nstack traceback:\n\t[C]: in ?", Timeout},
		{"empty", "", Unrecognized},
		{"unknown", "segmentation fault", Unrecognized},
		{"pattern only on second line", "Error executing lua\nEMFILE: too many open files", Unrecognized},
		{"case matters", "emfile: too many open files", Unrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.stderr))
		})
	}
}

func TestClassify_LaterLinesNeverMatter(t *testing.T) {
	c := New()
	for _, sig := range DefaultSignatures {
		head := sig.Pattern
		for _, tail := range []string{"", "\n", "\nsomething else", "\npromise timeout of 20000ms reached", "\nEMFILE: too many open files"} {
			assert.Equal(t, sig.Outcome, c.Classify(head+tail), "tail %q", tail)
		}
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	c := New()
	line := "EMFILE: too many open files while promise timeout of 20000ms reached"
	assert.Equal(t, EMFILE, c.Classify(line))
}

func TestNew_ExtraSignatures(t *testing.T) {
	c := New(
		Signature{Outcome: "oom", Pattern: "out of memory"},
		Signature{Outcome: "shadowed", Pattern: "EMFILE"},
		Signature{Outcome: "empty", Pattern: ""},
	)

	assert.Equal(t, Outcome("oom"), c.Classify("fatal: out of memory"))
	assert.Equal(t, EMFILE, c.Classify("EMFILE: too many open files"), "defaults keep priority")
	assert.Equal(t, Outcome("shadowed"), c.Classify("EMFILE on socket"))
	assert.Equal(t, Unrecognized, c.Classify("anything"), "empty patterns never match")

	assert.Len(t, c.Signatures(), 5)
	assert.Equal(t, []Outcome{OK, EMFILE, Timeout, "oom", "shadowed", "empty"}, c.Outcomes())
}

func TestSignatures_ReturnsCopy(t *testing.T) {
	c := New()
	sigs := c.Signatures()
	sigs[0].Pattern = "mutated"
	assert.Equal(t, EMFILE, c.Classify("EMFILE: too many open files"))
}
