package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Blastus/confabulator/internal/core"
)

// Stack schedules one connection's handlers. Handle results push and pop
// frames; the stack draining, a disconnect, or a failure all end the worker,
// and teardown always runs.
type Stack struct {
	client   *core.Client
	root     Handler
	teardown func()
}

func NewStack(client *core.Client, root Handler, teardown func()) *Stack {
	return &Stack{client: client, root: root, teardown: teardown}
}

// Run drives the handler stack to completion. It is the whole lifetime of a
// connection worker goroutine.
func (s *Stack) Run() {
	defer func() {
		if r := recover(); r != nil {
			s.reportFailure(fmt.Sprintf("panic: %v", r))
		}
		if s.teardown != nil {
			s.teardown()
		}
	}()

	frames := []Handler{s.root}
	for len(frames) > 0 {
		next, err := frames[len(frames)-1].Handle()
		if err != nil {
			if !errors.Is(err, core.ErrDisconnected) {
				s.reportFailure(err.Error())
			}
			return
		}
		if next == nil {
			frames = frames[:len(frames)-1]
		} else {
			frames = append(frames, next)
		}
	}
}

// reportFailure shows the error banner to the client, best effort, and logs
// the failure server-side.
func (s *Stack) reportFailure(detail string) {
	bar := strings.Repeat("X", 70)
	_ = s.client.Print(bar)
	_ = s.client.Print("Please report this error ASAP!")
	_ = s.client.Print(bar)
	_ = s.client.Print(detail)
	_ = s.client.Print(bar)
	slog.Error("handler failure", "client", s.client.ID, "detail", detail)
}
