package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/eyes/internal/eyes"
)

// Command names registered by DefaultCommands.
const (
	CommandOpen        = "eyesOpen"
	CommandCheckWindow = "eyesCheckWindow"
	CommandClose       = "eyesClose"
)

// State is what a command sees of the running test.
type State struct {
	Eyes    *eyes.Eyes
	Test    eyes.TestContext
	Session *eyes.Session
	Steps   []StepResult
}

// StepResult records the service result of a step.
type StepResult struct {
	Command string
	Result  json.RawMessage
}

// CommandFunc runs one step. args is the step's raw YAML arguments and may be
// a zero node when the step has none.
type CommandFunc func(ctx context.Context, st *State, args *yaml.Node) error

// Commands maps command names to their implementations.
type Commands map[string]CommandFunc

// DefaultCommands returns the eyes command set.
func DefaultCommands() Commands {
	return Commands{
		CommandOpen:        eyesOpen,
		CommandCheckWindow: eyesCheckWindow,
		CommandClose:       eyesClose,
	}
}

// Register adds or replaces a command.
func (c Commands) Register(name string, fn CommandFunc) {
	c[name] = fn
}

// Lookup returns the named command.
func (c Commands) Lookup(name string) (CommandFunc, error) {
	fn, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", name)
	}
	return fn, nil
}

// Names lists the registered commands, sorted.
func (c Commands) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func eyesOpen(ctx context.Context, st *State, args *yaml.Node) error {
	var opts eyes.OpenOptions
	if !isEmpty(args) {
		if err := args.Decode(&opts); err != nil {
			return fmt.Errorf("%s: bad args: %w", CommandOpen, err)
		}
	}
	s, err := st.Eyes.Open(ctx, st.Test, opts)
	if err != nil {
		return err
	}
	st.Session = s
	return nil
}

// eyesCheckWindow accepts a bare tag or a settings mapping as its args.
func eyesCheckWindow(ctx context.Context, st *State, args *yaml.Node) error {
	if st.Session == nil {
		return eyes.ErrSessionNotOpen
	}
	target, err := checkTarget(args)
	if err != nil {
		return fmt.Errorf("%s: bad args: %w", CommandCheckWindow, err)
	}
	res, err := st.Session.CheckWindow(ctx, target)
	if err != nil {
		return err
	}
	st.Steps = append(st.Steps, StepResult{Command: CommandCheckWindow, Result: res})
	return nil
}

func eyesClose(ctx context.Context, st *State, _ *yaml.Node) error {
	if st.Session == nil {
		return eyes.ErrSessionNotOpen
	}
	res, err := st.Session.Close(ctx)
	if err != nil {
		return err
	}
	st.Steps = append(st.Steps, StepResult{Command: CommandClose, Result: res})
	return nil
}

// checkTarget maps step args onto a check target: a string is a tag, a
// mapping is decoded as settings. Any other shape carries no settings.
func checkTarget(args *yaml.Node) (eyes.CheckTarget, error) {
	if isEmpty(args) {
		return nil, nil
	}
	switch {
	case args.Kind == yaml.ScalarNode && args.ShortTag() == "!!str":
		return eyes.Tag(args.Value), nil
	case args.Kind == yaml.MappingNode:
		var s eyes.CheckSettings
		if err := args.Decode(&s); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, nil
}

func isEmpty(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || n.Tag == "!!null"
}
