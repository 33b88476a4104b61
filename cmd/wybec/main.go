package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/wybe-lang/wybec/internal/ast"
	"github.com/wybe-lang/wybec/internal/config"
	"github.com/wybe-lang/wybec/internal/diag"
	"github.com/wybe-lang/wybec/internal/errors"
	"github.com/wybe-lang/wybec/internal/fixtures"
	"github.com/wybe-lang/wybec/internal/procspec"
)

var (
	// Version info - set by ldflags during build
	Version = "dev"
	Commit  = "unknown"

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "Print version information")
		helpFlag    = flag.Bool("help", false, "Show help")
		traceFlag   = flag.Bool("trace", false, "Enable pass-tagged tracing")
		profileFlag = flag.String("profile", "", "Path to a YAML optimisation profile (default: built-in)")
	)

	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}
	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	if *traceFlag {
		diag.Default.EnableAll()
	}

	profile := config.Default()
	if *profileFlag != "" {
		p, err := config.Load(*profileFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			os.Exit(1)
		}
		profile = *p
	}

	command := flag.Arg(0)
	switch command {
	case "check":
		if flag.NArg() < 2 {
			usageError("check", "<fixture>")
		}
		runCheck(flag.Arg(1))
	case "unbranch", "build":
		if flag.NArg() < 2 {
			usageError(command, "<fixture>")
		}
		runDump(flag.Arg(1), profile)
	case "dump":
		if flag.NArg() < 2 {
			usageError("dump", "<fixture>")
		}
		runDump(flag.Arg(1), profile)
	case "explore":
		runExplore()
	case "list":
		runList()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("Error"), command)
		printHelp()
		os.Exit(1)
	}
}

func usageError(cmd, usage string) {
	fmt.Fprintf(os.Stderr, "%s: missing argument\n", red("Error"))
	fmt.Printf("Usage: wybec %s %s\n", cmd, usage)
	os.Exit(1)
}

func printVersion() {
	fmt.Printf("wybec %s\n", bold(Version))
	if Commit != "unknown" {
		fmt.Printf("Commit: %s\n", Commit)
	}
}

func printHelp() {
	fmt.Println(bold("wybec - semantic middle-end for a mode-polymorphic procedural language"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  wybec <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Printf("  %s <fixture>   Mode-check a fixture module and report errors\n", cyan("check"))
	fmt.Printf("  %s <fixture>   Run the full pipeline and dump built primitive bodies\n", cyan("dump"))
	fmt.Printf("  %s           Start the interactive exploration REPL\n", cyan("explore"))
	fmt.Printf("  %s              List the built-in fixture modules\n", cyan("list"))
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --version          Print version information")
	fmt.Println("  --help             Show this help message")
	fmt.Println("  --trace            Enable pass-tagged tracing output")
	fmt.Println("  --profile <file>   Load a YAML optimisation profile")
	fmt.Println()
	fmt.Println("A thin harness over the core passes for inspection and testing: it has no")
	fmt.Println("surface-syntax parser, so it operates on named fixture modules rather than")
	fmt.Println("source files (source scanning/parsing is out of scope for this middle-end).")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s   # mode-check the inc fixture\n", cyan("wybec check inc"))
	fmt.Printf("  %s   # dump abs's built primitive body\n", cyan("wybec dump abs"))
	fmt.Printf("  %s        # start the REPL\n", cyan("wybec explore"))
}

func runList() {
	fmt.Println(bold("Available fixtures:"))
	names := fixtures.Names()
	sort.Strings(names)
	for _, n := range names {
		fmt.Printf("  %s\n", cyan(n))
	}
}

func runCheck(name string) {
	mod, ok := fixtures.Get(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: unknown fixture %q (see 'wybec list')\n", red("Error"), name)
		os.Exit(1)
	}

	d := procspec.NewDriver()
	diag.Default.Trace(diag.AspectProcspec, "compiling module %s (%d procs)", mod.Path, len(mod.Procs))
	_, errs := d.CompileModule(mod)
	if len(errs) > 0 {
		reportErrors(errs, mod)
		os.Exit(1)
	}
	fmt.Printf("%s no mode errors in %s\n", green("✓"), name)
}

func runDump(name string, profile config.Profile) {
	mod, ok := fixtures.Get(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: unknown fixture %q (see 'wybec list')\n", red("Error"), name)
		os.Exit(1)
	}

	diag.Default.Trace(diag.AspectBuild, "using profile %q (cse=%v fork-fusion=%v)",
		profile.Name, profile.EnableCSE, profile.EnableForkFusion)

	d := procspec.NewDriverWithProfile(profile)
	lifted, errs := d.CompileModule(mod)
	if len(errs) > 0 {
		reportErrors(errs, mod)
		os.Exit(1)
	}

	for _, def := range d.Table.All() {
		fmt.Printf("%s %s.%s#%d %s\n", bold("proc"), def.Spec.Module, def.Spec.Name, def.Spec.ID, def.Determinism)
		if def.Body != nil {
			fmt.Printf("  %s\n", def.Body.String())
		}
	}
	if len(lifted) > 0 {
		fmt.Printf("\n%s %d lifted procedure(s):\n", yellow("note"), len(lifted))
		for _, l := range lifted {
			fmt.Printf("  %s: %s\n", l.Name, l.Body.String())
		}
	}
}

// reportErrors prints each error, and for a *errors.Report whose span
// falls within mod's printed source text, the offending line plus a
// column-accurate caret (internal/ast's CaretLine, via Report.Caret).
func reportErrors(errs []error, mod *ast.Module) {
	sourceLines := strings.Split(ast.Print(mod), "\n")
	for _, err := range errs {
		if rep, ok := errors.AsReport(err); ok {
			fmt.Fprintf(os.Stderr, "%s [%s] %s: %s\n", red("Error"), rep.Phase, rep.Code, rep.Message)
			if rep.Span != nil && rep.Span.Start.Line >= 1 && rep.Span.Start.Line <= len(sourceLines) {
				line := sourceLines[rep.Span.Start.Line-1]
				fmt.Fprintf(os.Stderr, "  %s\n  %s\n", line, rep.Caret(line))
			}
			continue
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error"), err)
	}
}
