// Command knaster drives demo audio graphs from the terminal.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
)

// subcommand couples a flag set with the action it configures.
type subcommand struct {
	flags *flag.FlagSet
	brief string
	run   func() error
}

var subcommands = map[string]*subcommand{}

// register wires a named subcommand. The setup callback declares flags
// on the provided set and returns the action reading them.
func register(name, brief string, setup func(fs *flag.FlagSet) func() error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	subcommands[name] = &subcommand{flags: fs, brief: brief, run: setup(fs)}
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	cmd, ok := subcommands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		return 2
	}
	if err := cmd.flags.Parse(args[1:]); err != nil {
		return 2
	}
	if err := cmd.run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, "knaster drives demo audio graphs")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage: knaster <command> [flags]")
	fmt.Fprintln(os.Stderr)
	names := make([]string, 0, len(subcommands))
	for name := range subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, subcommands[name].brief)
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}
