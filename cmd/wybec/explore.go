package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/wybe-lang/wybec/internal/fixtures"
	"github.com/wybe-lang/wybec/internal/procspec"
)

// runExplore starts an interactive REPL over the fixture registry: type
// a fixture name to run it through mode checking, unbranching, building
// and TCMC, and see each registered procedure's inferred determinism,
// parameter flows, and built primitive body, line by line.
func runExplore() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)

	historyFile := filepath.Join(os.TempDir(), ".wybec_explore_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	line.SetCompleter(func(prefix string) (c []string) {
		for _, n := range fixtures.Names() {
			if strings.HasPrefix(n, prefix) {
				c = append(c, n)
			}
		}
		for _, cmd := range []string{":help", ":quit", ":list"} {
			if strings.HasPrefix(cmd, prefix) {
				c = append(c, cmd)
			}
		}
		return
	})

	fmt.Printf("%s - explore fixture modules interactively\n", bold("wybec"))
	fmt.Println("Type a fixture name (see :list), :help for commands, :quit to exit.")
	fmt.Println()

	for {
		input, err := line.Prompt("wybec> ")
		if err == io.EOF {
			fmt.Println(green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch {
		case input == ":quit" || input == ":q":
			fmt.Println("Goodbye!")
			return
		case input == ":help" || input == ":h":
			printExploreHelp()
		case input == ":list":
			runList()
		default:
			exploreFixture(input)
		}
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

func printExploreHelp() {
	fmt.Println("Commands:")
	fmt.Println("  :list          List available fixture modules")
	fmt.Println("  :help, :h      Show this help")
	fmt.Println("  :quit, :q      Exit the REPL")
	fmt.Println("  <name>         Compile and inspect the named fixture")
}

func exploreFixture(name string) {
	mod, ok := fixtures.Get(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: unknown fixture %q\n", red("Error"), name)
		return
	}

	d := procspec.NewDriver()
	lifted, errs := d.CompileModule(mod)
	if len(errs) > 0 {
		reportErrors(errs, mod)
		return
	}

	defs := d.Table.All()
	sort.Slice(defs, func(i, j int) bool { return defs[i].Spec.ID < defs[j].Spec.ID })
	for _, def := range defs {
		flows := make([]string, len(def.ParamFlows))
		for i, f := range def.ParamFlows {
			flows[i] = f.String()
		}
		fmt.Printf("%s %s.%s#%d  %s  flows=[%s]\n",
			cyan("proc"), def.Spec.Module, def.Spec.Name, def.Spec.ID,
			yellow(def.Determinism.String()), strings.Join(flows, ", "))
		if def.Body != nil {
			fmt.Printf("  %s\n", def.Body.String())
		}
	}
	if len(lifted) > 0 {
		fmt.Printf("%s %d lifted procedure(s)\n", yellow("note"), len(lifted))
	}
}
