package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/Blastus/confabulator/internal/core"
)

// scriptHandler plays back a fixed sequence of Handle results.
type scriptHandler struct {
	steps []func() (Handler, error)
}

func (h *scriptHandler) Handle() (Handler, error) {
	step := h.steps[0]
	h.steps = h.steps[1:]
	return step()
}

func TestStackPushAndPop(t *testing.T) {
	client, _, _ := newPipeClient("tester")

	var order []string
	child := &scriptHandler{steps: []func() (Handler, error){
		func() (Handler, error) {
			order = append(order, "child")
			return nil, nil
		},
	}}
	root := &scriptHandler{}
	root.steps = []func() (Handler, error){
		func() (Handler, error) {
			order = append(order, "root")
			return child, nil
		},
		func() (Handler, error) {
			order = append(order, "root again")
			return nil, nil
		},
	}

	torn := false
	NewStack(client, root, func() { torn = true }).Run()

	want := "root,child,root again"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("order = %q, want %q", got, want)
	}
	if !torn {
		t.Fatal("teardown did not run")
	}
}

func TestStackDisconnectIsSilent(t *testing.T) {
	client, _, recv := newPipeClient("tester")
	root := &scriptHandler{steps: []func() (Handler, error){
		func() (Handler, error) { return nil, core.ErrDisconnected },
	}}

	torn := false
	NewStack(client, root, func() { torn = true }).Run()

	if !torn {
		t.Fatal("teardown did not run")
	}
	if got := recv.snapshot(); len(got) != 0 {
		t.Fatalf("disconnect produced output: %v", got)
	}
}

func TestStackFailureBanner(t *testing.T) {
	client, _, recv := newPipeClient("tester")
	root := &scriptHandler{steps: []func() (Handler, error){
		func() (Handler, error) { return nil, errors.New("boom") },
	}}

	NewStack(client, root, nil).Run()

	lines := recv.waitLines(t, 5)
	bar := strings.Repeat("X", 70)
	if lines[0] != bar || lines[2] != bar || lines[4] != bar {
		t.Fatalf("banner bars missing: %v", lines)
	}
	if lines[1] != "Please report this error ASAP!" {
		t.Fatalf("banner text = %q", lines[1])
	}
	if lines[3] != "boom" {
		t.Fatalf("detail = %q", lines[3])
	}
}

func TestStackRecoversPanic(t *testing.T) {
	client, _, recv := newPipeClient("tester")
	root := &scriptHandler{steps: []func() (Handler, error){
		func() (Handler, error) { panic("exploded") },
	}}

	torn := false
	NewStack(client, root, func() { torn = true }).Run()

	if !torn {
		t.Fatal("teardown did not run after panic")
	}
	lines := recv.waitLines(t, 5)
	if lines[3] != "panic: exploded" {
		t.Fatalf("detail = %q", lines[3])
	}
}
