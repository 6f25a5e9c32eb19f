package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"gopkg.in/yaml.v3"

	"github.com/sbl8/binlayout/core"
	"github.com/sbl8/binlayout/kernels"
	"github.com/sbl8/binlayout/runtime"
	"github.com/sbl8/binlayout/schema"
)

const (
	historyFile = ".tobj_history"
	prompt      = "tobj> "
	replHelp    = `Commands:
  <type>                       print the layout of a type expression
  :new NAME TYPE VALUE         allocate a value; VALUE is YAML, e.g. [1, 2] or {x: 1}
  :show NAME                   print a value
  :get NAME INDEX|FIELD        load an element or field
  :set NAME INDEX|FIELD VALUE  store an element or field
  :map NAME FN [AS]            map with a named function
  :reduce NAME FN              reduce with a named fold
  :filter NAME PRED [AS]       keep elements matching a named predicate
  :detach NAME                 detach a value's buffer
  :save NAME FILE              write a snapshot
  :load NAME FILE              read a snapshot
  :vars                        list values
  :quit                        leave
`
)

var errQuit = errors.New("quit")

// session holds the values of an interactive session.
type session struct {
	types  *schema.Schema
	engine *runtime.Engine
	vars   map[string]*core.View
}

func newSession(types *schema.Schema, engine *runtime.Engine) *session {
	return &session{types: types, engine: engine, vars: make(map[string]*core.View)}
}

func cmdRepl(out *printer, types *schema.Schema) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	s := newSession(types, runtime.NewEngine(nil))
	ln.SetCompleter(s.complete)
	fmt.Fprint(out, replHelp)
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)
		if err := s.eval(out, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(out, out.failure(err.Error()))
		}
	}
}

func (s *session) complete(line string) []string {
	var c []string
	for _, cmd := range []string{":new", ":show", ":get", ":set", ":map", ":reduce", ":filter", ":detach", ":save", ":load", ":vars", ":quit"} {
		if strings.HasPrefix(cmd, line) {
			c = append(c, cmd)
		}
	}
	return c
}

// eval runs one line of input.
func (s *session) eval(w io.Writer, line string) error {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		d, err := s.types.Resolve(line)
		if err != nil {
			return err
		}
		return schema.WriteLayout(w, line, d)
	}

	cmd, rest, _ := strings.Cut(line, " ")
	args := strings.Fields(rest)
	ctx := context.Background()
	switch cmd {
	case ":quit", ":q":
		return errQuit
	case ":help":
		_, err := fmt.Fprint(w, replHelp)
		return err
	case ":vars":
		names := make([]string, 0, len(s.vars))
		for name := range s.vars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := s.vars[name]
			state := ""
			if !v.IsAttached() {
				state = " (detached)"
			}
			fmt.Fprintf(w, "%s: %s%s\n", name, v.Descr(), state)
		}
		return nil
	case ":new":
		// The type expression may contain spaces; the value starts at the
		// first '[' or '{' after the type's own brackets balance.
		name, spec, ok := strings.Cut(strings.TrimSpace(rest), " ")
		if !ok {
			return fmt.Errorf("usage: :new NAME TYPE VALUE")
		}
		expr, value := splitTypeValue(spec)
		d, err := s.types.Resolve(expr)
		if err != nil {
			return err
		}
		val, err := parseValue(value)
		if err != nil {
			return err
		}
		v, err := core.NewFrom(d, val)
		if err != nil {
			return err
		}
		s.vars[name] = v
		_, err = fmt.Fprintln(w, core.Format(v))
		return err
	}

	if len(args) == 0 {
		return fmt.Errorf("%s needs a value name", cmd)
	}
	v, ok := s.vars[args[0]]
	if !ok && cmd != ":load" {
		return fmt.Errorf("no value %q", args[0])
	}

	var (
		result any
		err    error
	)
	switch cmd {
	case ":show":
		result = v
	case ":get":
		if len(args) != 2 {
			return fmt.Errorf("usage: :get NAME INDEX|FIELD")
		}
		result, err = access(v, args[1])
	case ":set":
		if len(args) < 3 {
			return fmt.Errorf("usage: :set NAME INDEX|FIELD VALUE")
		}
		var val any
		if val, err = parseValue(strings.Join(args[2:], " ")); err != nil {
			return err
		}
		if err = store(v, args[1], val); err != nil {
			return err
		}
		result = v
	case ":map", ":filter":
		if len(args) < 2 {
			return fmt.Errorf("usage: %s NAME FN [AS]", cmd)
		}
		var r *core.View
		if cmd == ":map" {
			var f kernels.MapFunc
			if f, err = kernels.LookupMap(args[1]); err == nil {
				r, err = s.engine.Map(ctx, v, 1, f)
			}
		} else {
			var f kernels.Predicate
			if f, err = kernels.LookupPredicate(args[1]); err == nil {
				r, err = s.engine.Filter(ctx, v, f)
			}
		}
		if err != nil {
			return err
		}
		if len(args) > 2 {
			s.vars[args[2]] = r
		}
		result = r
	case ":reduce":
		if len(args) != 2 {
			return fmt.Errorf("usage: :reduce NAME FN")
		}
		var f kernels.ReduceFunc
		if f, err = kernels.LookupReducer(args[1]); err == nil {
			result, err = s.engine.Reduce(ctx, v, f)
		}
	case ":detach":
		v.Owner().Detach()
		return nil
	case ":save":
		if len(args) != 2 {
			return fmt.Errorf("usage: :save NAME FILE")
		}
		return writeSnapshot(args[1], v)
	case ":load":
		if len(args) != 2 {
			return fmt.Errorf("usage: :load NAME FILE")
		}
		if v, err = readSnapshot(args[1], s.types); err != nil {
			return err
		}
		s.vars[args[0]] = v
		result = v
	default:
		return fmt.Errorf("unknown command %s; type :help", cmd)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, core.Format(result))
	return err
}

// splitTypeValue splits "TYPE VALUE" at the first space outside braces.
func splitTypeValue(spec string) (string, string) {
	depth := 0
	for i, c := range spec {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
		case ' ':
			if depth == 0 {
				return spec[:i], strings.TrimSpace(spec[i+1:])
			}
		}
	}
	return spec, ""
}

// parseValue decodes a YAML flow value into the Go values Set accepts.
func parseValue(src string) (any, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	var val any
	if err := yaml.Unmarshal([]byte(src), &val); err != nil {
		return nil, fmt.Errorf("bad value %q: %v", src, err)
	}
	return val, nil
}

// access loads element i of an array or a named field of a struct.
func access(v *core.View, key string) (any, error) {
	if v.Descr().IsArray() {
		var i int
		if _, err := fmt.Sscanf(key, "%d", &i); err != nil {
			return nil, fmt.Errorf("bad index %q", key)
		}
		return v.Index(i)
	}
	return v.Field(key)
}

func store(v *core.View, key string, val any) error {
	if v.Descr().IsArray() {
		var i int
		if _, err := fmt.Sscanf(key, "%d", &i); err != nil {
			return fmt.Errorf("bad index %q", key)
		}
		return v.SetIndex(i, val)
	}
	return v.SetField(key, val)
}
