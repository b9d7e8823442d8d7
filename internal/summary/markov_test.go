package summary

import (
	"math/rand"
	"strings"
	"testing"
)

func seeded() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func TestNewChainRejectsShortLinks(t *testing.T) {
	_, err := newChain([]string{"one.", "two.", "three."}, 1)
	if err == nil || err.Error() != "chain links may not be shorter than two" {
		t.Fatalf("err = %v", err)
	}
}

func TestNewChainRejectsShortStreams(t *testing.T) {
	_, err := newChain([]string{"lonely."}, 3)
	if err == nil || err.Error() != "word stream too short to build a chain" {
		t.Fatalf("err = %v", err)
	}
}

func TestChainWalkFollowsTraining(t *testing.T) {
	// A single deterministic path: every root has exactly one suffix.
	words := strings.Fields("the quick brown fox jumps over the lazy dog.")
	c, err := newChain(words, 3)
	if err != nil {
		t.Fatalf("newChain: %v", err)
	}

	var out []string
	c.walk(seeded(), func(word string) bool {
		out = append(out, word)
		return len(out) < 20
	})
	got := strings.Join(out, " ")
	// The only start root is "the quick"; from there the path is forced until
	// "the lazy" resolves to "dog." and the chain dead-ends.
	want := "the quick brown fox jumps over the lazy dog."
	if got != want {
		t.Fatalf("walk = %q, want %q", got, want)
	}
}

func TestChainStartWordsAfterTerminators(t *testing.T) {
	words := strings.Fields("alpha beta gamma. delta echo foxtrot.")
	c, err := newChain(words, 3)
	if err != nil {
		t.Fatalf("newChain: %v", err)
	}
	starts := map[string]bool{}
	for _, root := range c.startWords.population {
		starts[root] = true
	}
	if !starts["alpha beta"] {
		t.Fatalf("missing leading start root: %v", c.startWords.population)
	}
	if !starts["delta echo"] {
		t.Fatalf("missing post-terminator start root: %v", c.startWords.population)
	}
	if len(starts) != 2 {
		t.Fatalf("unexpected start roots: %v", c.startWords.population)
	}
}

func TestBuildParagraphClauseCount(t *testing.T) {
	words := strings.Fields(
		"cats chase mice. dogs chase cats. mice fear cats. cats nap daily. " +
			"dogs bark loudly. mice squeak softly. cats purr warmly. dogs dig holes.")
	c, err := newChain(words, 3)
	if err != nil {
		t.Fatalf("newChain: %v", err)
	}
	paragraph := c.buildParagraph(seeded(), 50, 2)
	if len(paragraph) != 2 {
		t.Fatalf("paragraph = %v", paragraph)
	}
	first := paragraph[0][0]
	if first >= 'a' && first <= 'z' {
		t.Fatalf("first clause not capitalized: %q", paragraph[0])
	}
	last := paragraph[len(paragraph)-1]
	end := last[len(last)-1]
	if end != '!' && end != '.' && end != '?' {
		t.Fatalf("paragraph ends badly: %q", last)
	}
}

func TestBuildParagraphSwapsBadEnding(t *testing.T) {
	// Every sentence ends in ';' so any successful paragraph must have its
	// tail rewritten to a proper terminator.
	words := strings.Fields("one two three; four five six; one two three; four five six;")
	c, err := newChain(words, 3)
	if err != nil {
		t.Fatalf("newChain: %v", err)
	}
	paragraph := c.buildParagraph(seeded(), 100, 1)
	if len(paragraph) == 0 {
		t.Skip("no paragraph emerged from this seed")
	}
	last := paragraph[len(paragraph)-1]
	if strings.HasSuffix(last, ";") {
		t.Fatalf("bad ending survived: %q", last)
	}
}

func TestBuildParagraphGivesUp(t *testing.T) {
	// No terminators at all: no clause can ever complete.
	words := strings.Fields("alpha beta gamma delta epsilon zeta")
	c, err := newChain(words, 3)
	if err != nil {
		t.Fatalf("newChain: %v", err)
	}
	if paragraph := c.buildParagraph(seeded(), 5, 1); paragraph != nil {
		t.Fatalf("expected no paragraph, got %v", paragraph)
	}
}

func TestRandomCounterWeights(t *testing.T) {
	cb := newCounterBuilder()
	for i := 0; i < 9; i++ {
		cb.add("common")
	}
	cb.add("rare")
	rc := newRandomCounter(cb.counts, cb.order)

	rng := seeded()
	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		counts[rc.next(rng)]++
	}
	if counts["common"] < 800 {
		t.Fatalf("weighting off: %v", counts)
	}
	if counts["rare"] == 0 {
		t.Fatalf("rare value never drawn: %v", counts)
	}
}
