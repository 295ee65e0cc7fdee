// avmrt loads class bundles into a fresh runtime, links them and reports
// on the result.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/avmrt/layoutdb"
	"github.com/chazu/avmrt/manifest"
	"github.com/chazu/avmrt/vm"
	"github.com/chazu/avmrt/vm/bundle"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// inertInterpreter treats every bytecode body as a method returning
// undefined, so bundles can be linked and constructed without a bytecode
// loop.
type inertInterpreter struct{}

func (inertInterpreter) Run(act *vm.Activation, m *vm.BytecodeMethod) (vm.Value, error) {
	return vm.Undefined, nil
}

// newInterpreter returns the interpreter named by runtime.interpreter.
func newInterpreter(name string) (vm.Interpreter, error) {
	switch name {
	case "", "inert":
		return inertInterpreter{}, nil
	}
	return nil, fmt.Errorf("unknown interpreter %q", name)
}

func main() {
	configDir := flag.String("config", "", "Directory containing avmrt.toml (default: search upward from .)")
	verbose := flag.Bool("v", false, "Verbose output")
	dump := flag.Bool("dump", false, "Print the property tables of linked classes")
	construct := flag.String("construct", "", "Construct an instance of the named class and print its slots")
	encode := flag.String("encode", "", "Write the first YAML bundle as CBOR to this file")
	record := flag.Bool("record", false, "Record linked layouts in the layout database")
	verify := flag.Bool("verify", false, "Check linked layouts against the layout database")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: avmrt [options] [bundles...]\n\n")
		fmt.Fprintf(os.Stderr, "Links class bundles (.yaml or .cbor) into a fresh runtime.\n")
		fmt.Fprintf(os.Stderr, "With no bundles, the paths listed in avmrt.toml are used.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  avmrt -dump shapes.yaml                 # Show slot and dispatch tables\n")
		fmt.Fprintf(os.Stderr, "  avmrt -construct shapes::Point shapes.yaml\n")
		fmt.Fprintf(os.Stderr, "  avmrt -encode shapes.cbor shapes.yaml   # Convert to canonical CBOR\n")
		fmt.Fprintf(os.Stderr, "  avmrt -record                           # Record layouts of configured bundles\n")
		fmt.Fprintf(os.Stderr, "  avmrt -verify                           # Fail if any recorded layout changed\n")
	}
	flag.Parse()

	m, err := loadManifest(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	verbosity := m.Log.Verbosity
	if *verbose {
		verbosity = 2
	}
	var logPath *string
	if p := m.LogFilePath(); p != "" {
		logPath = &p
	}
	commonlog.Configure(verbosity, logPath)

	paths := flag.Args()
	if len(paths) == 0 {
		paths = m.BundlePaths()
	}
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(m, paths, options{
		dump:      *dump,
		construct: *construct,
		encode:    *encode,
		record:    *record,
		verify:    *verify,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	dump      bool
	construct string
	encode    string
	record    bool
	verify    bool
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
	}
	return m, nil
}

func run(m *manifest.Manifest, paths []string, opts options) error {
	interp, err := newInterpreter(m.Runtime.Interpreter)
	if err != nil {
		return err
	}
	runtime, err := vm.New(
		vm.WithInterpreter(interp),
		vm.WithMaxCallDepth(m.Runtime.MaxCallDepth),
	)
	if err != nil {
		return err
	}

	var units []*bundle.Unit
	for i, path := range paths {
		b, err := bundle.Load(path)
		if err != nil {
			return err
		}
		if i == 0 && opts.encode != "" {
			if err := encodeBundle(path, b, opts.encode); err != nil {
				return err
			}
		}

		var unit *bundle.Unit
		err = runtime.Mutate(func(act *vm.Activation) error {
			var err error
			unit, err = bundle.Link(act, b, nil)
			return err
		})
		if err != nil {
			return err
		}
		units = append(units, unit)
		fmt.Printf("%s: linked %d classes (unit %s)\n", path, len(unit.Classes), unit.TranslationUnit.ID())
	}

	if opts.dump {
		for _, unit := range units {
			for _, cls := range unit.Classes {
				dumpClass(cls)
			}
		}
	}

	if opts.construct != "" {
		if err := constructAndPrint(runtime, opts.construct); err != nil {
			return err
		}
	}

	if opts.record || opts.verify {
		return checkLayouts(m.LayoutDBPath(), units, opts)
	}
	return nil
}

func encodeBundle(path string, b *bundle.Bundle, out string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("-encode expects a YAML bundle, got %s", path)
	}
	data, err := bundle.EncodeCBOR(b)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
	return nil
}

func dumpClass(cls *vm.ClassObject) {
	header := "class " + cls.Name().QualifiedName()
	if super := cls.SuperclassObject(); super != nil {
		header += " extends " + super.Name().QualifiedName()
	}
	for _, iface := range cls.Interfaces() {
		header += " implements " + iface.Name.QualifiedName()
	}
	fmt.Println(header)
	for _, e := range layoutdb.Snapshot(cls) {
		fmt.Printf("  %-8s %-24s %s\n", e.Side, e.Name, e)
	}
}

func constructAndPrint(runtime *vm.VM, name string) error {
	return runtime.Mutate(func(act *vm.Activation) error {
		cls, err := act.Domain().GetClass(vm.ParseQualifiedName(name))
		if err != nil {
			return err
		}
		obj, err := cls.Construct(act, nil)
		if err != nil {
			return fmt.Errorf("constructing %s: %w", name, err)
		}
		fmt.Printf("new %s\n", cls.Name().QualifiedName())
		cls.InstanceVTable().Each(func(q vm.QName, p vm.Property) {
			var id uint32
			switch p := p.(type) {
			case vm.SlotProperty:
				id = p.ID
			case vm.ConstSlotProperty:
				id = p.ID
			default:
				return
			}
			fmt.Printf("  [%d] %s = %s\n", id, q.QualifiedName(), obj.Base().GetSlot(id))
		})
		return nil
	})
}

func checkLayouts(path string, units []*bundle.Unit, opts options) error {
	store, err := layoutdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.verify {
		var failed int
		for _, unit := range units {
			violations, err := store.Verify(unit.Classes)
			if err != nil {
				return err
			}
			for _, v := range violations {
				fmt.Printf("layout changed: %s\n", v)
			}
			failed += len(violations)
		}
		if failed > 0 {
			return fmt.Errorf("%d layout violations against %s", failed, path)
		}
		fmt.Printf("layouts match %s\n", path)
	}

	if opts.record {
		for _, unit := range units {
			if err := store.Record(unit.TranslationUnit, unit.Classes); err != nil {
				return err
			}
		}
		fmt.Printf("recorded layouts in %s\n", path)
	}
	return nil
}
