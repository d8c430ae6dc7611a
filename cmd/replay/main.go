// Command replay feeds captured manager event logs through the call
// tracker and prints the derived notifications. Useful for inspecting
// captures and for regression-checking tracker behavior.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/sweeney/callwatch/internal/callstate"
	"github.com/sweeney/callwatch/internal/reporter"
	"github.com/sweeney/callwatch/internal/runner"
)

func main() {
	format := flag.String("format", "log", "Output format: log or json")
	strict := flag.Bool("strict", false, "Panic on invariant violations instead of containing them")
	traceEvents := flag.Bool("trace-events", false, "Print every raw event as well")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: replay [flags] <capture.json>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	var sink callstate.Reporter
	switch *format {
	case "json":
		sink = reporter.NewJSON(os.Stdout)
	case "log":
		level := zerolog.InfoLevel
		if *traceEvents {
			level = zerolog.TraceLevel
		}
		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level)
		sink = reporter.NewLog(log, *traceEvents)
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", *format)
		os.Exit(2)
	}

	var opts []callstate.Option
	if *strict {
		opts = append(opts, callstate.Strict())
	}

	fr := runner.NewFileRunner(sink, opts...)
	for _, path := range flag.Args() {
		if err := fr.Run(path); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}

	if err := sink.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing output: %v\n", err)
		os.Exit(1)
	}
}
