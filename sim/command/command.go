// Package command provides the debug command surface of simulation
// components. A command takes a name and plain-text arguments and answers
// with formatted text and a success flag.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUsage is returned when a command is invoked with the wrong arguments.
var ErrUsage = errors.New("wrong arguments")

// A Handler runs a command.
type Handler func(args []string) (string, error)

// A Command is a named debug operation of a component.
type Command struct {
	Name    string
	MinArgs int
	Usage   string
	Desc    string
	Handler Handler
}

// An Executor is a component that can run debug commands.
type Executor interface {
	Name() string
	Execute(cmd string, args []string) (string, bool)
	Commands() []Command
}

// A Registry holds the commands of one component.
type Registry struct {
	owner string
	cmds  map[string]Command
}

// NewRegistry creates a command registry for a component. Every registry
// answers "help" with the list of its commands.
func NewRegistry(owner string) *Registry {
	r := &Registry{
		owner: owner,
		cmds:  make(map[string]Command),
	}

	r.Register(Command{
		Name:    "help",
		Desc:    "lists the available commands",
		Handler: r.help,
	})

	return r
}

// Name returns the name of the owning component.
func (r *Registry) Name() string {
	return r.owner
}

// Register adds a command. Registering a name twice panics.
func (r *Registry) Register(c Command) {
	if _, found := r.cmds[c.Name]; found {
		panic(fmt.Sprintf("command %s of %s is already registered",
			c.Name, r.owner))
	}

	if c.Handler == nil {
		panic(fmt.Sprintf("command %s of %s has no handler", c.Name, r.owner))
	}

	r.cmds[c.Name] = c
}

// Lookup returns a registered command.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.cmds[name]
	return c, ok
}

// Commands returns the registered commands ordered by name.
func (r *Registry) Commands() []Command {
	list := make([]Command, 0, len(r.cmds))
	for _, c := range r.cmds {
		list = append(list, c)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})

	return list
}

// Execute runs a command. On failure the returned text explains why.
func (r *Registry) Execute(name string, args []string) (string, bool) {
	c, found := r.cmds[name]
	if !found {
		return fmt.Sprintf("unknown command %s for %s", name, r.owner), false
	}

	if len(args) < c.MinArgs {
		return usage(c), false
	}

	out, err := c.Handler(args)
	if errors.Is(err, ErrUsage) {
		return usage(c), false
	}

	if err != nil {
		if out != "" {
			return out + "\n" + err.Error(), false
		}

		return err.Error(), false
	}

	return out, true
}

func usage(c Command) string {
	return strings.TrimSpace("usage: " + c.Name + " " + c.Usage)
}

func (r *Registry) help([]string) (string, error) {
	var b strings.Builder

	for _, c := range r.Commands() {
		fmt.Fprintf(&b, "%-8s %s\n", c.Name, c.Desc)
	}

	return strings.TrimSuffix(b.String(), "\n"), nil
}

// A Directory finds executors by component name.
type Directory struct {
	lock      sync.RWMutex
	executors map[string]Executor
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{executors: make(map[string]Executor)}
}

// Add registers an executor under its name.
func (d *Directory) Add(e Executor) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if _, found := d.executors[e.Name()]; found {
		panic(fmt.Sprintf("executor %s is already registered", e.Name()))
	}

	d.executors[e.Name()] = e
}

// Find returns the executor with the given name.
func (d *Directory) Find(name string) (Executor, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	e, ok := d.executors[name]

	return e, ok
}

// Names returns the names of all the executors in order.
func (d *Directory) Names() []string {
	d.lock.RLock()
	defer d.lock.RUnlock()

	names := make([]string, 0, len(d.executors))
	for n := range d.executors {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Execute runs a command on the named executor.
func (d *Directory) Execute(
	target, name string,
	args []string,
) (string, bool) {
	e, found := d.Find(target)
	if !found {
		return fmt.Sprintf("component %s not found", target), false
	}

	return e.Execute(name, args)
}

// ParseLine splits a command line into the command name and its arguments.
func ParseLine(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	return fields[0], fields[1:]
}
