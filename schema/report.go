package schema

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/sbl8/binlayout/core"
)

// Report writes the memory layout of the named type: size, alignment and,
// for structs, one row per field with its offset.
func (s *Schema) Report(w io.Writer, name string) error {
	d, ok := s.Lookup(name)
	if !ok {
		return errors.Wrapf(core.ErrInvalidArgument, "unknown type %q", name)
	}
	return WriteLayout(w, name, d)
}

// WriteLayout writes the layout report of d under a heading.
func WriteLayout(w io.Writer, heading string, d *core.Descr) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s = %s\n", heading, d)
	if d.IsSized() {
		fmt.Fprintf(tw, "size %d\talign %d\tpadding %d\t\n", d.Size(), d.Align(), core.Padding(d))
	} else {
		fmt.Fprintf(tw, "element size %d\talign %d\t\n", d.Elem().Size(), d.Align())
	}
	if d.Opaque() {
		fmt.Fprintln(tw, "opaque: holds references")
	}

	switch d.Kind() {
	case core.KindStruct:
		fmt.Fprintln(tw, "offset\tsize\talign\t field\t")
		end := 0
		for _, f := range d.Fields() {
			if gap := f.Offset - end; gap > 0 {
				fmt.Fprintf(tw, "%d\t%d\t\t (pad)\t\n", end, gap)
			}
			fmt.Fprintf(tw, "%d\t%d\t%d\t %s: %s\t\n", f.Offset, f.Type.Size(), f.Type.Align(), f.Name, f.Type)
			end = f.Offset + f.Type.Size()
		}
		if gap := d.Size() - end; gap > 0 {
			fmt.Fprintf(tw, "%d\t%d\t\t (pad)\t\n", end, gap)
		}
	case core.KindSizedArray, core.KindUnsizedArray:
		base, count := d.Base()
		fmt.Fprintf(tw, "rank %d\tbase %s\tcount %d\t\n", d.Rank(), base, count)
	}
	return errors.Wrap(tw.Flush(), "write layout")
}

// WriteReport writes the layout of every declared type in declaration
// order.
func (s *Schema) WriteReport(w io.Writer) error {
	for i, name := range s.order {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return errors.Wrap(err, "write report")
			}
		}
		if err := s.Report(w, name); err != nil {
			return err
		}
	}
	return nil
}
