// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/emulator"
	"github.com/ezrec/lc3/io"
	"github.com/ezrec/lc3/translate"
)

func main() {
	var compile string
	var save bool
	var output string
	var verbose bool

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %v [-c prog.asm] [-s] [-o out.obj] [-v] [image.obj ...]\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.StringVar(&compile, "c", "", ".asm file to assemble")
	flag.BoolVar(&save, "s", false, "Save the assembled image, do not execute")
	flag.StringVar(&output, "o", "", "Assembled image output")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if save && (len(compile) == 0 || len(output) == 0) {
		flag.Usage()
		os.Exit(2)
	}

	if len(compile) == 0 && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if verbose {
		log.Printf("lc3: locale %v", translate.Locale())
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	// Load the object images.
	for _, name := range flag.Args() {
		inf, err := os.Open(name)
		if err != nil {
			log.Fatalf("%v: %v", name, err)
		}
		img, err := cpu.ReadImage(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", name, err)
		}
		err = emu.Load(img)
		if err != nil {
			log.Fatalf("%v: %v", name, err)
		}
	}

	// Assemble a new program.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		prog, err := asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}

		if len(output) != 0 {
			ouf, err := os.Create(output)
			if err != nil {
				log.Fatalf("%v: %v", output, err)
			}
			_, err = prog.Image().WriteTo(ouf)
			if err == nil {
				err = ouf.Close()
			}
			if err != nil {
				log.Fatalf("%v: %v", output, err)
			}
		}

		if save {
			return
		}

		err = emu.LoadProgram(prog)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	err := run(emu)
	if err != nil {
		if verbose {
			log.Printf("\n%v", emu.Cpu.String())
		}
		log.Fatal(err)
	}
}

// run the emulator on the standard input and output.
// A terminal on the input is in raw mode while the emulator runs.
func run(emu *emulator.Emulator) (err error) {
	emu.Console.Input = os.Stdin
	emu.Console.Output = os.Stdout
	defer emu.Close()

	if io.IsTerminal(os.Stdin) {
		var tty *io.Terminal
		tty, err = io.MakeRaw(os.Stdin)
		if err != nil {
			return
		}
		defer tty.Restore()
	}

	err = emu.Run()

	return
}
