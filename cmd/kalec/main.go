// Package main implements the kalec compiler and REPL binary.
package main

import (
	"fmt"
	"os"

	"github.com/kale-lang/kalec/pkg/klog"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "build":
		klog.Init(klog.DefaultConfig())
		os.Exit(runBuild(os.Args[2:]))
	case "repl":
		klog.InitDev()
		os.Exit(runRepl(os.Args[2:]))
	case "version":
		fmt.Printf("kalec version %s\n", version)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`kalec - the K language compiler and REPL

Usage:
    kalec build [file...]  Compile to an object-record stream (stdin/stdout with no files)
    kalec repl [file...]   Start an interactive JIT session, preloading any files given
    kalec version          Show compiler version
    kalec help             Show this help message`)
}
