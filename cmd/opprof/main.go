// opprof runs a bytecode program under the instruction-level profiler and
// reports where its time went.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/opprof/bytecode"
	"github.com/chazu/opprof/config"
	"github.com/chazu/opprof/profiler"
	"github.com/chazu/opprof/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("opprof")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("opprof", flag.ContinueOnError)
	fs.SetOutput(stderr)

	callgrind := fs.Bool("k", false, "Write a callgrind profile instead of the line report")
	output := fs.String("o", "", "Write the report to this file instead of standard output")
	configDir := fs.String("config", "", "Directory holding opprof.toml (default: search upward from the working directory)")
	verbose := fs.Bool("v", false, "Verbose logging")
	entry := fs.String("m", "", "Method to run instead of the image entry")
	disasm := fs.Bool("disasm", false, "Print a listing of every unit and exit")
	dump := fs.String("dump", "", "Write the loaded program as a binary image to this file and exit")
	noProfile := fs.Bool("no-profile", false, "Run without profiling")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: opprof [options] program\n\n")
		fmt.Fprintf(stderr, "Runs a program (%s assembly or binary image) and profiles every instruction.\n\n", bytecode.AssemblyExt)
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  opprof fib.oasm                  # Line report on standard output\n")
		fmt.Fprintf(stderr, "  opprof -k -o callgrind.out fib.oasm  # Profile for kcachegrind\n")
		fmt.Fprintf(stderr, "  opprof -dump fib.opbc fib.oasm   # Assemble to a binary image\n")
		fmt.Fprintf(stderr, "  opprof -disasm fib.opbc          # Show the bytecode\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *callgrind {
		cfg.Report.Format = config.FormatCallgrind
	}
	if *output != "" {
		cfg.Report.Output = *output
	}
	verbosity := cfg.Log.Verbosity
	if *verbose {
		verbosity = max(verbosity, 2)
	}
	if logPath := cfg.LogPath(); logPath != "" {
		commonlog.Configure(verbosity, &logPath)
	} else {
		commonlog.Configure(verbosity, nil)
	}

	im, err := bytecode.LoadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *disasm {
		for _, u := range im.Units {
			fmt.Fprintln(stdout, u.Listing())
		}
		return 0
	}
	if *dump != "" {
		if err := dumpImage(im, *dump); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	machine := vm.New(im, vm.WithOutput(stdout), vm.WithMaxDepth(cfg.VM.MaxDepth))
	if *noProfile {
		if _, err := execute(machine, *entry); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	out, closeOut, err := openOutput(cfg, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closeOut()

	session := profiler.NewSession(
		profiler.WithClock(cfg.Clock()),
		profiler.WithCapacity(cfg.Profiler.InitialCapacity),
		profiler.WithDisassembler(vm.Disassembler),
		profiler.WithReporter(reporter(cfg, out)),
	)
	machine.AttachProfiler(session)

	status := 0
	if _, err := execute(machine, *entry); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		status = 1
	}
	if err := session.Err(); err != nil {
		log.Warningf("profile is incomplete: %s", err)
	}
	if err := session.Teardown(); err != nil && !errors.Is(err, session.Err()) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		status = 1
	}
	log.Infof("%d instructions executed", machine.Steps())
	return status
}

func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.FindAndLoad(wd)
}

func execute(machine *vm.VM, entry string) (vm.Value, error) {
	if entry != "" {
		return machine.Call(entry, nil)
	}
	return machine.Run()
}

func dumpImage(im *bytecode.Image, path string) error {
	data, err := bytecode.MarshalImage(im)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// openOutput returns the report destination and a function closing it.
func openOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func(), error) {
	path := cfg.OutputPath()
	if path == "" {
		return stdout, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() {
		if err := f.Close(); err != nil {
			log.Errorf("closing %s: %s", path, err)
		}
	}, nil
}

func reporter(cfg *config.Config, out io.Writer) profiler.Reporter {
	if cfg.Report.Format == config.FormatCallgrind {
		return profiler.CallgrindReport(out)
	}
	highlight := false
	if cfg.Report.Highlight != nil {
		highlight = *cfg.Report.Highlight
	} else if f, ok := out.(*os.File); ok {
		highlight = isatty.IsTerminal(f.Fd())
	}
	return profiler.LineReport(out, profiler.LineReportOptions{Highlight: highlight})
}
