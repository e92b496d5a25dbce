package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kale-lang/kalec/pkg/codegen"
	"github.com/kale-lang/kalec/pkg/klog"
	"github.com/kale-lang/kalec/pkg/objwriter"
	"github.com/kale-lang/kalec/pkg/optimize"
)

// runBuild implements `kalec build [files...]`: parse and code-generate
// every top-level construct in each file into one accumulated module,
// run optimize.Standard() over it, then write it as an object-record
// stream via pkg/objwriter. With no files, it reads stdin and writes
// the object stream to stdout.
func runBuild(args []string) int {
	if len(args) == 0 {
		return buildOne(os.Stdin, "kalec", os.Stdout)
	}
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "kalec: cannot open %s: %v\n", path, err)
			return 1
		}
		out, err := os.Create(objectPath(path))
		if err != nil {
			f.Close()
			fmt.Fprintf(os.Stderr, "kalec: cannot create object file for %s: %v\n", path, err)
			return 1
		}
		code := buildOne(f, moduleNameFor(path), out)
		f.Close()
		out.Close()
		if code != 0 {
			return code
		}
	}
	return 0
}

func buildOne(r io.Reader, name string, out io.Writer) int {
	exitCode := 0
	runDriver(r, name, driverHooks{
		onEOF: func(gen *codegen.Generator) {
			mod := gen.StealModule()
			klog.Phase("optimize")
			if _, err := optimize.Standard().Run(mod); err != nil {
				fmt.Fprintf(os.Stderr, "kalec: optimization failed: %v\n", err)
				exitCode = 1
				return
			}
			klog.Phase("emit")
			w := objwriter.New(defaultTargetTriple(), "generic", "", objwriter.RelocDefault)
			if err := w.WriteObject(out, mod); err != nil {
				fmt.Fprintf(os.Stderr, "kalec: writing object stream: %v\n", err)
				exitCode = 1
			}
		},
	})
	return exitCode
}

func objectPath(sourcePath string) string {
	if i := strings.LastIndex(sourcePath, "."); i >= 0 {
		return sourcePath[:i] + ".o"
	}
	return sourcePath + ".o"
}

func moduleNameFor(path string) string {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	return base
}

func defaultTargetTriple() string {
	return "x86_64-unknown-linux-gnu"
}
