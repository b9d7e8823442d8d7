package summary

import (
	"math/rand"
	"strings"
	"time"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/session"
)

const (
	chainLength = 3
	maxAttempts = 5
)

// Summarizer condenses a snapshot of a channel buffer into a short nonsense
// paragraph, shows it, and rejoins the channel.
type Summarizer struct {
	client  *core.Client
	room    *core.ChannelRoom
	buffer  []core.ChannelLine
	clauses int
	rng     *rand.Rand
}

func NewSummarizer(client *core.Client, room *core.ChannelRoom, buffer []core.ChannelLine, clauses int) *Summarizer {
	return &Summarizer{
		client:  client,
		room:    room,
		buffer:  buffer,
		clauses: clauses,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Summarizer) Handle() (session.Handler, error) {
	if err := s.run(); err != nil {
		return nil, err
	}
	s.room.Connect(s.client.ID, s.client)
	return nil, nil
}

func (s *Summarizer) run() error {
	chain, err := newChain(s.prepare(), chainLength)
	if err != nil {
		return s.client.Print("There is nothing worth summarizing.")
	}
	paragraph := chain.buildParagraph(s.rng, maxAttempts, s.clauses)
	if len(paragraph) == 0 {
		return s.client.Print("There is nothing worth summarizing.")
	}
	longest := 0
	for _, sentence := range paragraph {
		if len(sentence) > longest {
			longest = len(sentence)
		}
	}
	ruler := strings.Repeat("~", longest)
	if err := s.client.Print(ruler); err != nil {
		return err
	}
	for _, sentence := range paragraph {
		if err := s.client.Print(sentence); err != nil {
			return err
		}
	}
	return s.client.Print(ruler)
}

// prepare flattens the buffer into a word stream, forcing every line to end
// on a sentence terminator so the chain has somewhere to stop.
func (s *Summarizer) prepare() []string {
	var stream []string
	for _, line := range s.buffer {
		words := strings.Fields(line.Text)
		if len(words) == 0 {
			continue
		}
		last := words[len(words)-1]
		if !strings.ContainsRune(terminators, lastRune(last)) {
			words[len(words)-1] = last + string(terminators[s.rng.Intn(len(terminators))])
		}
		stream = append(stream, words...)
	}
	return stream
}
