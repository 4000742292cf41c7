package main

import (
	"flag"
	"log"
	"os"

	"github.com/bassosimone/rv64emu/pkg/address"
	"github.com/bassosimone/rv64emu/pkg/decoder"
	"github.com/bassosimone/rv64emu/pkg/interp"
	"github.com/bassosimone/rv64emu/pkg/machine"
	"github.com/bassosimone/rv64emu/pkg/mmu"
	"github.com/bassosimone/rv64emu/pkg/step"
	"github.com/bassosimone/rv64emu/pkg/syscall"
)

func main() {
	log.SetFlags(0)
	verbose := flag.Bool("v", false, "trace each retired instruction and syscall")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("usage: rv64emu [-v] <elf-file> [guest-args...]")
	}
	if *verbose {
		interp.Trace = func(pc uint64, inst decoder.Inst) {
			log.Printf("rv64emu: %#x: %s\n", pc, decoder.Disassemble(inst))
		}
	}

	var m mmu.MMU
	if err := m.LoadELF(flag.Arg(0)); err != nil {
		log.Fatal(err)
	}

	sp, err := m.SetupStack(flag.Args())
	if err != nil {
		log.Fatal(err)
	}

	st := &machine.State{PC: m.Entry}
	st.GPRegs[address.Sp] = sp

	dispatcher := syscall.NewLinuxDispatcher()
	for {
		if err := step.Step(&m, st); err != nil {
			log.Fatal(err)
		}
		result, exitCode, err := dispatcher.Dispatch(&m, st)
		if err != nil {
			log.Fatal(err)
		}
		if exitCode != nil {
			os.Exit(*exitCode)
		}
		if *verbose {
			log.Printf("rv64emu: ecall a7=%d -> a0=%#x\n", st.GPRegs[address.A7], result)
		}
		st.GPRegs[address.A0] = result
	}
}
