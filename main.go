package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/thiremani/mica/ast"
	"github.com/thiremani/mica/compiler"
	"github.com/thiremani/mica/interp"
	"github.com/thiremani/mica/ir"
	"github.com/thiremani/mica/lexer"
	"github.com/thiremani/mica/llvmgen"
	"github.com/thiremani/mica/parser"
	"github.com/thiremani/mica/token"
)

var MI_SUFFIX = ".mi"

// buildBackend evaluates anonymous expressions through the
// interpreter engine while also emitting every unit as an LLVM IR
// artifact, so a file compile both runs and leaves .ll output behind.
type buildBackend struct {
	engine  *interp.Engine
	emitter *llvmgen.Backend
}

func (b *buildBackend) Generate(unit *ir.Module) error {
	if err := b.engine.Generate(unit); err != nil {
		return err
	}
	return b.emitter.Generate(unit)
}

func (b *buildBackend) Lookup(name string) (compiler.Callable, error) {
	return b.engine.Lookup(name)
}

// repl reads top-level constructs from r until end-of-input. On a
// terminal, lines accumulate until they form a finished construct, so
// a definition may span several lines; piped input is handled as one
// stream.
func repl(r io.Reader, interactive bool) {
	engine := interp.NewEngine(os.Stdout)
	session := compiler.NewSession(engine, os.Stdout, os.Stderr)

	if !interactive {
		source, err := io.ReadAll(r)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
			os.Exit(1)
		}
		session.HandleSource(string(source))
		return
	}

	scanner := bufio.NewScanner(r)
	var pending strings.Builder
	fmt.Fprint(os.Stderr, "ready> ")
	for scanner.Scan() {
		pending.WriteString(scanner.Text())
		pending.WriteString("\n")

		src := pending.String()
		if strings.TrimSpace(src) == "" {
			pending.Reset()
			fmt.Fprint(os.Stderr, "ready> ")
			continue
		}
		if needsMore(src, session.Env) {
			fmt.Fprint(os.Stderr, "...    ")
			continue
		}

		session.HandleSource(src)
		pending.Reset()
		fmt.Fprint(os.Stderr, "ready> ")
	}
	fmt.Fprintln(os.Stderr)
}

// needsMore reports whether src ends mid-construct: a trial parse
// whose first failure sits at end-of-input means the construct
// continues on the next line. Any earlier failure is a real error and
// the construct is submitted so the session can report it.
func needsMore(src string, env *ast.Env) bool {
	p := parser.New(lexer.New(src), env)
	for !p.AtEOF() {
		p.ParseConstruct()
		for _, ce := range p.TakeErrors() {
			if ce.Token.Type == token.EOF {
				return true
			}
		}
	}
	return false
}

// compileFile lowers every construct in path, evaluates bare
// expressions, and writes one .ll artifact per unit into the cache.
func compileFile(path string) {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	script := strings.TrimSuffix(filepath.Base(path), MI_SUFFIX)
	emitter, err := newEmitter(defaultCache(), script, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer emitter.Close()

	backend := &buildBackend{
		engine:  interp.NewEngine(os.Stdout),
		emitter: &llvmgen.Backend{WriteUnit: emitter.WriteUnit},
	}
	session := compiler.NewSession(backend, os.Stdout, os.Stderr)

	failed := session.HandleSource(string(source))
	fmt.Fprintf(os.Stderr, "wrote %d units to %s\n", emitter.Written(), emitter.Dir())
	if failed > 0 {
		os.Exit(1)
	}
}

func main() {
	if len(os.Args) > 1 {
		switch arg := os.Args[1]; {
		case arg == "version":
			printVersion()
		case strings.HasSuffix(arg, MI_SUFFIX):
			compileFile(arg)
		default:
			fmt.Fprintf(os.Stderr, "usage: mica [version | file%s]\n", MI_SUFFIX)
			os.Exit(2)
		}
		return
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	repl(os.Stdin, interactive)
}
