// Package schema loads named type descriptors from YAML.
//
// A schema file lists types in dependency order. Each entry either gives a
// type expression or an ordered field list:
//
//	types:
//	  - name: Point
//	    fields:
//	      - {name: x, type: float32}
//	      - {name: y, type: float32}
//	  - name: Polygon
//	    type: Point[8]
//
// Entries may refer to builtin types and to entries declared before them.
package schema

import (
	"bytes"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sbl8/binlayout/core"
)

type document struct {
	Types []typeEntry `yaml:"types"`
}

type typeEntry struct {
	Name   string       `yaml:"name"`
	Type   string       `yaml:"type,omitempty"`
	Fields []fieldEntry `yaml:"fields,omitempty"`
}

type fieldEntry struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Schema is a set of named descriptors.
type Schema struct {
	types map[string]*core.Descr
	order []string
}

// Parse decodes and resolves a schema document.
func Parse(data []byte) (*Schema, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "parse schema")
	}

	s := &Schema{types: make(map[string]*core.Descr, len(doc.Types))}
	for i, entry := range doc.Types {
		if err := s.declare(entry); err != nil {
			return nil, errors.Wrapf(err, "type %d (%s)", i, entry.Name)
		}
	}
	return s, nil
}

// Load reads a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read schema %s", path)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return s, nil
}

func (s *Schema) declare(entry typeEntry) error {
	switch {
	case entry.Name == "":
		return errors.Wrap(core.ErrInvalidArgument, "missing name")
	case s.types[entry.Name] != nil:
		return errors.Wrapf(core.ErrInvalidArgument, "%s declared twice", entry.Name)
	case entry.Type != "" && len(entry.Fields) > 0:
		return errors.Wrapf(core.ErrInvalidArgument, "%s has both a type and fields", entry.Name)
	case entry.Type == "" && len(entry.Fields) == 0:
		return errors.Wrapf(core.ErrInvalidArgument, "%s has neither a type nor fields", entry.Name)
	}
	if _, ok := core.Builtin(entry.Name); ok {
		return errors.Wrapf(core.ErrInvalidArgument, "%s shadows a builtin type", entry.Name)
	}

	var d *core.Descr
	if entry.Type != "" {
		var err error
		if d, err = s.Resolve(entry.Type); err != nil {
			return err
		}
	} else {
		specs := make([]core.FieldSpec, len(entry.Fields))
		for i, f := range entry.Fields {
			t, err := s.Resolve(f.Type)
			if err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
			specs[i] = core.FieldSpec{Name: f.Name, Type: t}
		}
		var err error
		if d, err = core.NewStruct(specs...); err != nil {
			return err
		}
	}
	s.types[entry.Name] = d
	s.order = append(s.order, entry.Name)
	return nil
}

// Lookup returns the descriptor declared under name.
func (s *Schema) Lookup(name string) (*core.Descr, bool) {
	d, ok := s.types[name]
	return d, ok
}

// Resolve parses a type expression that may use the schema's names.
func (s *Schema) Resolve(expr string) (*core.Descr, error) {
	return core.ParseType(expr, s.Lookup)
}

// Names lists the declared names in declaration order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.order...)
}

// Sorted lists the declared names alphabetically.
func (s *Schema) Sorted() []string {
	names := s.Names()
	sort.Strings(names)
	return names
}

// Marshal encodes the schema back to YAML. Struct types are written as
// field lists, everything else as its canonical expression.
func (s *Schema) Marshal() ([]byte, error) {
	var doc document
	for _, name := range s.order {
		d := s.types[name]
		entry := typeEntry{Name: name}
		if d.Kind() == core.KindStruct {
			for _, f := range d.Fields() {
				entry.Fields = append(entry.Fields, fieldEntry{Name: f.Name, Type: f.Type.String()})
			}
		} else {
			entry.Type = d.String()
		}
		doc.Types = append(doc.Types, entry)
	}
	out, err := yaml.Marshal(&doc)
	return out, errors.Wrap(err, "marshal schema")
}
