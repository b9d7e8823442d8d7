// Package summary implements the Mark V Shaney channel summarizer: a word
// Markov chain trained on the channel buffer that emits a short paragraph of
// plausible nonsense.
package summary

import (
	"errors"
	"math/rand"
	"strings"
)

const (
	terminators = "!;.?"
	badEnd      = ";"
)

// goodEnds are the terminators a paragraph may finish on.
var goodEnds = []byte{'!', '.', '?'}

// randomCounter draws weighted random samples from a frequency table.
type randomCounter struct {
	population []string
	cumWeights []int
	total      int
}

func newRandomCounter(counts map[string]int, order []string) *randomCounter {
	rc := &randomCounter{}
	for _, key := range order {
		rc.total += counts[key]
		rc.population = append(rc.population, key)
		rc.cumWeights = append(rc.cumWeights, rc.total)
	}
	return rc
}

func (rc *randomCounter) next(rng *rand.Rand) string {
	pick := rng.Intn(rc.total)
	for i, weight := range rc.cumWeights {
		if pick < weight {
			return rc.population[i]
		}
	}
	return rc.population[len(rc.population)-1]
}

// counterBuilder keeps frequency counts along with first-seen key order so
// sampling is reproducible under a seeded source.
type counterBuilder struct {
	counts map[string]int
	order  []string
}

func newCounterBuilder() *counterBuilder {
	return &counterBuilder{counts: make(map[string]int)}
}

func (cb *counterBuilder) add(key string) {
	if _, seen := cb.counts[key]; !seen {
		cb.order = append(cb.order, key)
	}
	cb.counts[key]++
}

// chain is a word-level Markov model of fixed link length. Roots are the
// leading n-1 words of each window joined with a space.
type chain struct {
	n          int
	links      map[string]*randomCounter
	startWords *randomCounter
}

// newChain trains on words while collecting proper start points: the very
// first root plus every root that follows a sentence terminator.
func newChain(words []string, n int) (*chain, error) {
	if n < 2 {
		return nil, errors.New("chain links may not be shorter than two")
	}
	if len(words) < n {
		return nil, errors.New("word stream too short to build a chain")
	}

	builders := make(map[string]*counterBuilder)
	var rootOrder []string
	for i := 0; i+n <= len(words); i++ {
		root := strings.Join(words[i:i+n-1], " ")
		suffix := words[i+n-1]
		cb, ok := builders[root]
		if !ok {
			cb = newCounterBuilder()
			builders[root] = cb
			rootOrder = append(rootOrder, root)
		}
		cb.add(suffix)
	}
	links := make(map[string]*randomCounter, len(builders))
	for _, root := range rootOrder {
		cb := builders[root]
		links[root] = newRandomCounter(cb.counts, cb.order)
	}

	starts := newCounterBuilder()
	starts.add(strings.Join(words[:n-1], " "))
	for i := 0; i+n <= len(words); i++ {
		if strings.ContainsRune(terminators, lastRune(words[i])) {
			starts.add(strings.Join(words[i+1:i+n], " "))
		}
	}

	return &chain{
		n:          n,
		links:      links,
		startWords: newRandomCounter(starts.counts, starts.order),
	}, nil
}

// walk yields words from a random start point until a dead end.
func (c *chain) walk(rng *rand.Rand, emit func(word string) bool) {
	root := c.startWords.next(rng)
	for _, word := range strings.Fields(root) {
		if !emit(word) {
			return
		}
	}
	for {
		rc, ok := c.links[root]
		if !ok {
			return
		}
		word := rc.next(rng)
		if !emit(word) {
			return
		}
		parts := strings.Fields(root)
		parts = append(parts[1:], word)
		root = strings.Join(parts, " ")
	}
}

// buildParagraph tries up to attempts times to walk out the requested number
// of clauses. The first clause is capitalized and a trailing ';' is swapped
// for a proper terminator.
func (c *chain) buildParagraph(rng *rand.Rand, attempts, clauses int) []string {
	for ; attempts > 0; attempts-- {
		var paragraph []string
		var sentence []string
		c.walk(rng, func(word string) bool {
			sentence = append(sentence, word)
			if strings.ContainsRune(terminators, lastRune(word)) {
				paragraph = append(paragraph, strings.Join(sentence, " "))
				sentence = sentence[:0]
			}
			return len(paragraph) < clauses
		})
		if len(paragraph) < clauses {
			continue
		}
		first := paragraph[0]
		if r := first[0]; r >= 'a' && r <= 'z' {
			paragraph[0] = strings.ToUpper(first[:1]) + first[1:]
		}
		last := paragraph[len(paragraph)-1]
		if strings.ContainsRune(badEnd, lastRune(last)) {
			replacement := goodEnds[rng.Intn(len(goodEnds))]
			paragraph[len(paragraph)-1] = last[:len(last)-1] + string(replacement)
		}
		return paragraph
	}
	return nil
}

func lastRune(word string) rune {
	runes := []rune(word)
	if len(runes) == 0 {
		return 0
	}
	return runes[len(runes)-1]
}
