// Command emberdisasm runs and disassembles the small set of demo
// programs built in pkg/asm, standing in for the teacher's smog CLI's
// "run"/"disassemble" subcommands. It has no "compile" or source-file
// mode and cannot load an arbitrary program: this core never parses or
// compiles source, so the only programs it knows about are the named
// demos pkg/asm builds directly against the register ISA.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kristofer/ember/pkg/asm"
	"github.com/kristofer/ember/pkg/corelib"
	"github.com/kristofer/ember/pkg/gc"
	"github.com/kristofer/ember/pkg/vm"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("emberdisasm version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "list":
		listDemos()
	case "run":
		if len(os.Args) < 3 {
			fmt.Println("Error: no demo specified")
			printUsage()
			os.Exit(1)
		}
		runDemo(os.Args[2])
	case "disasm", "disassemble":
		if len(os.Args) < 3 {
			fmt.Println("Error: no demo specified")
			printUsage()
			os.Exit(1)
		}
		disasmDemo(os.Args[2])
	default:
		fmt.Printf("Error: unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("emberdisasm - run and disassemble the core's demo programs")
	fmt.Println("\nUsage:")
	fmt.Println("  emberdisasm list              List the available demo programs")
	fmt.Println("  emberdisasm run <demo>        Run a demo program and print its result")
	fmt.Println("  emberdisasm disasm <demo>     Disassemble a demo program")
	fmt.Println("  emberdisasm version           Show version")
	fmt.Println("  emberdisasm help              Show this help")
	fmt.Println("\nDemos:")
	fmt.Printf("  %s\n", strings.Join(asm.DemoNames, ", "))
}

func listDemos() {
	for _, name := range asm.DemoNames {
		fmt.Println(name)
	}
}

func runDemo(name string) {
	h := corelib.New()
	s := vm.New(h, gc.NoOp{})

	p, self, err := asm.BuildDemo(name, h)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	result, err := s.Run(p, self, asm.DemoArgs(name))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result.GoString())
}

func disasmDemo(name string) {
	h := corelib.New()
	p, _, err := asm.BuildDemo(name, h)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	asm.Disassemble(os.Stdout, p.Body)
}
