package maincmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mna/mainer"

	"github.com/mna/wisteria/lang/ast"
	"github.com/mna/wisteria/lang/cache"
	"github.com/mna/wisteria/lang/compiler"
	"github.com/mna/wisteria/lang/token"
	"github.com/mna/wisteria/lang/vm"
)

const binName = "wisteria"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <path>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <path>
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and stack virtual machine for the %[1]s scripting language.

The <path> is the source file to compile and run. Compiled bytecode is
cached next to the source (<path>.wbc) and reused on later runs when the
source and its dependencies are unchanged.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --no-cache                Bypass the bytecode cache for both
                                 loading and storing.
       --test                    Enable test discovery mode (requires an
                                 external test runner build).
       --test-filter <substr>    Only run tests whose name contains the
                                 given substring. Implies --test.
       --trace                   Print one line per executed instruction
                                 to standard error.
       --jit                     Use the JIT backend when available in
                                 this build.
       --root <dirs>             Module search roots, separated by the
                                 OS path list separator.
       --max-errors <n>          Stop collecting diagnostics past n and
                                 report the suppressed count.

The NO_COLOR environment variable disables ANSI escapes in diagnostic
output.
`, binName)
)

// ParseSource is the front-end hook: the scanner and parser are external
// collaborators, so builds that link one install it here. When nil, a
// cache miss cannot fall back to compilation and the command fails with
// an explanation; a cache hit still runs.
var ParseSource func(path string, src []byte) (*ast.Program, *token.FileSet, error)

// Cmd is the wisteria command: one positional source path plus the flag
// surface above.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	NoCache    bool   `flag:"no-cache"`
	Test       bool   `flag:"test"`
	TestFilter string `flag:"test-filter"`
	Trace      bool   `flag:"trace"`
	Jit        bool   `flag:"jit"`
	Root       string `flag:"root"`
	MaxErrors  int    `flag:"max-errors"`

	args []string
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return fmt.Errorf("exactly one source path must be provided")
	}
	if c.TestFilter != "" {
		c.Test = true
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	return c.run(ctx, stdio)
}

// exit code for a failed compile; runtime failures use mainer.Failure (1)
// and usage errors mainer.InvalidArgs (2).
const exitCompileFailed = mainer.ExitCode(3)

func (c *Cmd) run(_ context.Context, stdio mainer.Stdio) mainer.ExitCode {
	path := c.args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", binName, err)
		return mainer.InvalidArgs
	}

	if c.Jit {
		fmt.Fprintf(stdio.Stderr, "%s: JIT backend not available in this build, running on the bytecode VM\n", binName)
	}

	roots := filepath.SplitList(c.Root)
	key := cache.Key(cache.HashBytes(src), cache.RootsHash(roots))
	cachePath := cache.PathFor(path)

	if !c.NoCache {
		if bc, ok := cache.LoadFile(cachePath, key); ok {
			return c.execute(bc, stdio)
		}
	}

	if ParseSource == nil {
		fmt.Fprintf(stdio.Stderr, "%s: no language front end is linked into this build and no valid bytecode cache exists for %s\n", binName, path)
		return mainer.InvalidArgs
	}
	prog, fs, err := ParseSource(path, src)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", binName, err)
		return exitCompileFailed
	}

	comp := compiler.New()
	comp.Importer = &fileImporter{roots: roots}
	if fs.Len() > 0 {
		comp.SetFile(fs.File(0))
	}
	if c.MaxErrors > 0 {
		comp.SetMaxErrors(c.MaxErrors)
	}

	bc, diags := comp.Compile(prog)
	color := useColor()
	for _, d := range diags {
		renderDiagnostic(stdio.Stderr, d, color)
	}
	if n := comp.Suppressed(); n > 0 {
		fmt.Fprintf(stdio.Stderr, "... and %d more diagnostics not shown\n", n)
	}
	if bc == nil {
		return exitCompileFailed
	}

	if !c.NoCache {
		deps := []cache.Dep{{Path: path, Hash: cache.HashBytes(src)}}
		if err := cache.WriteFile(cachePath, key, deps, bc); err != nil {
			// an uncacheable unit still runs; the cache is best-effort
			fmt.Fprintf(stdio.Stderr, "%s: cannot write bytecode cache: %s\n", binName, err)
		}
	}
	return c.execute(bc, stdio)
}

func (c *Cmd) execute(bc *compiler.Bytecode, stdio mainer.Stdio) mainer.ExitCode {
	m := vm.New(bc)
	if c.Trace {
		m.Tracer = stdio.Stderr
	}
	if err := m.Run(); err != nil {
		renderRuntimeError(stdio.Stderr, err, useColor())
		return mainer.Failure
	}
	return mainer.Success
}

func useColor() bool {
	return os.Getenv("NO_COLOR") == ""
}
