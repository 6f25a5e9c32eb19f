package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"golang.org/x/term"

	"github.com/sbl8/binlayout/core"
	"github.com/sbl8/binlayout/schema"
)

const usage = `Usage: %s [options] <command> [arguments]

Commands:
  layout <type>...   print the memory layout of type expressions
  run [flags]        run a collection operator over generated input
  inspect <file>     decode and print a snapshot
  repl               interactive session

Options:
`

var (
	schemaPath = flag.String("schema", "", "YAML schema declaring named types")
	noColor    = flag.Bool("no-color", false, "Disable colored output")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("tobj: ")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Println("tobj - typed binary objects v1.0.0")
		fmt.Printf("Built with Go %s\n", runtime.Version())
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	types := &schema.Schema{}
	if *schemaPath != "" {
		var err error
		if types, err = schema.Load(*schemaPath); err != nil {
			log.Fatalf("Failed to load schema: %v", err)
		}
	}
	out := newPrinter(os.Stdout, !*noColor && term.IsTerminal(int(os.Stdout.Fd())))

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "layout":
		err = cmdLayout(out, types, rest)
	case "run":
		err = cmdRun(out, types, rest)
	case "inspect":
		err = cmdInspect(out, types, rest)
	case "repl":
		err = cmdRepl(out, types)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func cmdLayout(out *printer, types *schema.Schema, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no type given")
	}
	for i, expr := range args {
		d, err := types.Resolve(expr)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := schema.WriteLayout(out, out.heading(expr), d); err != nil {
			return err
		}
	}
	return nil
}

func cmdInspect(out *printer, types *schema.Schema, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("inspect takes one snapshot file")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	v, err := core.ReadSnapshot(f, types.Lookup)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %d bytes\n", out.heading(v.Descr().String()), v.ByteLen())
	fmt.Fprintln(out, core.Format(v))
	return nil
}
