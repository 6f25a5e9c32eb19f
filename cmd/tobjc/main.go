package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sbl8/binlayout/schema"
)

func main() {
	var (
		outPath = flag.String("o", "", "Write the layout report to a file instead of stdout")
		format  = flag.Bool("fmt", false, "Print the schema in canonical form instead of a report")
		typ     = flag.String("type", "", "Report only the named type")
		version = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Println("tobjc - typed binary object schema checker v1.0.0")
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <schema.yaml>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	s, err := schema.Load(args[0])
	if err != nil {
		log.Fatalf("invalid schema: %v", err)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("create %s: %v", *outPath, err)
		}
		defer f.Close()
		out = f
	}

	switch {
	case *format:
		data, err := s.Marshal()
		if err != nil {
			log.Fatalf("format failed: %v", err)
		}
		_, err = out.Write(data)
		if err != nil {
			log.Fatalf("write failed: %v", err)
		}
	case *typ != "":
		if err := s.Report(out, *typ); err != nil {
			log.Fatalf("report failed: %v", err)
		}
	default:
		if err := s.WriteReport(out); err != nil {
			log.Fatalf("report failed: %v", err)
		}
	}

	if *outPath != "" {
		fmt.Printf("Checked %d types in %s -> %s\n", len(s.Names()), args[0], *outPath)
	}
}
