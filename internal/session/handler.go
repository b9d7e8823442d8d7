// Package session implements the per-connection execution model: modal
// handlers with explicit verb tables, driven by a LIFO stack.
package session

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/Blastus/confabulator/internal/core"
)

// YesWords are the affirmative answers accepted by yes/no prompts.
var YesWords = map[string]bool{"yes": true, "true": true, "1": true}

// StopWords end a free-form input loop.
var StopWords = map[string]bool{"exit": true, "quit": true, "stop": true}

// Handler drives one modal step of a client conversation. Handle blocks on
// client I/O and returns the next handler to push, nil to pop, or an error;
// core.ErrDisconnected unwinds the stack silently, anything else is reported
// to the client first.
type Handler interface {
	Handle() (Handler, error)
}

// ErrExit is returned by a command to leave the enclosing command loop.
var ErrExit = errors.New("exit command loop")

var (
	errUnknownCommand = errors.New("command not found")
	errJSONHelp       = errors.New("json help sent")
)

// CommandFunc executes one verb. A non-nil Handler is pushed on the stack;
// ErrExit pops the current handler.
type CommandFunc func(args []string) (Handler, error)

type command struct {
	run  CommandFunc
	help string
}

// Base carries the verb table and command loop shared by the menu handlers.
// Concrete handlers embed *Base and register their verbs on construction;
// exit and help are always present.
type Base struct {
	Client   *core.Client
	commands map[string]command
}

func NewBase(client *core.Client) *Base {
	b := &Base{Client: client, commands: make(map[string]command)}
	b.Register("exit", "Exit from this area of the server.",
		func([]string) (Handler, error) { return nil, ErrExit })
	b.Register("help", "Call help with a command name for more information.", b.doHelp)
	return b
}

// Register installs a verb. An empty help string reads as "no help".
func (b *Base) Register(name, help string, run CommandFunc) {
	b.commands[name] = command{run: run, help: help}
}

// Commands lists the registered verbs in sorted order.
func (b *Base) Commands() []string {
	names := make([]string, 0, len(b.commands))
	for name := range b.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Help returns the help text registered for name.
func (b *Base) Help(name string) string {
	entry, ok := b.commands[name]
	if !ok {
		return "Command not found!"
	}
	if entry.help == "" {
		return "Command has no help!"
	}
	return entry.help
}

// Run tokenizes one input line and dispatches its verb. The sentinel errors
// it can return are interpreted by CommandLoop and Dispatch.
func (b *Base) Run(line string) (Handler, error) {
	tokens := strings.Fields(strings.TrimSpace(line))
	if len(tokens) == 0 {
		return nil, nil
	}
	cmd, args := tokens[0], tokens[1:]
	if strings.HasSuffix(cmd, "__json_help__") {
		return nil, b.jsonHelp()
	}
	if cmd == "?" {
		cmd = "help"
	}
	entry, ok := b.commands[cmd]
	if !ok {
		if cmd == "quit" || cmd == "stop" {
			return nil, ErrExit
		}
		return nil, errUnknownCommand
	}
	return entry.run(args)
}

// CommandLoop prompts, reads, and dispatches until a verb pops the handler,
// pushes another one, or the connection ends. An empty prompt means the
// default "Command:". The prompt is suppressed for the read following a
// machine-readable help request.
func (b *Base) CommandLoop(prompt string) (Handler, error) {
	if prompt == "" {
		prompt = "Command:"
	}
	mute := false
	for {
		var line string
		var err error
		if mute {
			line, err = b.Client.Input()
		} else {
			line, err = b.Client.Input(prompt)
		}
		if err != nil {
			return nil, err
		}
		mute = false
		next, err := b.Run(line)
		switch {
		case errors.Is(err, errJSONHelp):
			mute = true
		case errors.Is(err, errUnknownCommand):
			if perr := b.Client.Print("Command not found!"); perr != nil {
				return nil, perr
			}
		case errors.Is(err, ErrExit):
			return nil, nil
		case err != nil:
			return nil, err
		case next != nil:
			return next, nil
		}
	}
}

// Dispatch runs a single already-read command line, reporting unknown verbs
// to the client. done tells the caller to leave its own loop, either to pop
// (next == nil) or to hand over to next.
func (b *Base) Dispatch(line string) (next Handler, done bool, err error) {
	next, err = b.Run(line)
	switch {
	case errors.Is(err, errJSONHelp):
		return nil, false, nil
	case errors.Is(err, errUnknownCommand):
		return nil, false, b.Client.Print("Command not found!")
	case errors.Is(err, ErrExit):
		return nil, true, nil
	case err != nil:
		return nil, false, err
	case next != nil:
		return next, true, nil
	}
	return nil, false, nil
}

// jsonHelp sends the whole verb catalog as one JSON object so machine
// clients can discover the current menu.
func (b *Base) jsonHelp() error {
	catalog := make(map[string]string, len(b.commands))
	for name := range b.commands {
		catalog[name] = b.Help(name)
	}
	data, err := json.Marshal(catalog)
	if err != nil {
		return err
	}
	if err := b.Client.Print(string(data)); err != nil {
		return err
	}
	return errJSONHelp
}

func (b *Base) doHelp(args []string) (Handler, error) {
	if len(args) > 0 {
		name := args[0]
		if name == "?" {
			name = "help"
		}
		return nil, b.Client.Print(b.Help(name))
	}
	listing := append([]string{"Command list:"}, b.Commands()...)
	if err := b.Client.Print(strings.Join(listing, "\n    ")); err != nil {
		return nil, err
	}
	return nil, b.Client.Print("Call help with command name for more info.")
}
