package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/host"
	"github.com/gogpu/naga"
)

// kernelExt is the file extension of kernel sources. Each source is named after its entry point.
const kernelExt = ".wgsl"

// ErrKernelNotFound is returned when no source file exists for an entry point.
var ErrKernelNotFound = errors.New("shader: kernel source not found")

// kernelLibrary is the implementation of the KernelLibrary interface.
type kernelLibrary struct {
	mu       sync.Mutex
	fsys     fs.FS
	dir      string
	pp       PreProcessor
	validate bool
	sources  map[string]string
}

// KernelLibrary loads compute kernels from a directory of WGSL sources, one file per entry
// point named <Entry>.wgsl, and compiles each define set into its own Kernel.
type KernelLibrary interface {
	// Load reads, pre-processes and optionally validates the kernel named by desc.
	//
	// Parameters:
	//   - desc: the entry point and defines
	//
	// Returns:
	//   - Kernel: the compiled kernel
	//   - error: ErrKernelNotFound if no source exists, or the pre-processing or validation error
	Load(desc host.KernelDesc) (Kernel, error)

	// Entries lists the entry points the library has sources for, sorted by name.
	//
	// Returns:
	//   - []string: the entry point names
	//   - error: an error if the directory cannot be read
	Entries() ([]string, error)

	// Invalidate drops cached sources so the next Load re-reads them.
	Invalidate()
}

var _ KernelLibrary = &kernelLibrary{}

// NewKernelLibrary creates a KernelLibrary over a file system.
//
// Parameters:
//   - fsys: the file system holding the kernel sources
//   - options: functional options applied to the library
//
// Returns:
//   - KernelLibrary: the library
func NewKernelLibrary(fsys fs.FS, options ...KernelLibraryOption) KernelLibrary {
	l := &kernelLibrary{
		fsys:    fsys,
		dir:     ".",
		sources: make(map[string]string),
	}
	for _, opt := range options {
		opt(l)
	}
	if l.pp == nil {
		l.pp = NewPreProcessor()
	}
	return l
}

func (l *kernelLibrary) Load(desc host.KernelDesc) (Kernel, error) {
	source, err := l.source(desc.Entry)
	if err != nil {
		return nil, err
	}

	k, err := NewKernel(desc.Key(), desc.Entry, source, l.pp, desc.Defines)
	if err != nil {
		return nil, err
	}
	if l.validate {
		if err := Validate(k.Source()); err != nil {
			return nil, fmt.Errorf("shader: %s: %w", desc.Key(), err)
		}
	}
	common.Logger().Debug("[Shader] kernel loaded", "kernel", desc.Key(), "workgroup", k.WorkgroupSize(), "bindings", len(k.Bindings()))
	return k, nil
}

func (l *kernelLibrary) Entries() ([]string, error) {
	files, err := fs.ReadDir(l.fsys, l.dir)
	if err != nil {
		return nil, fmt.Errorf("shader: read kernel directory %q: %w", l.dir, err)
	}
	var entries []string
	for _, f := range files {
		if name, ok := strings.CutSuffix(f.Name(), kernelExt); ok && !f.IsDir() {
			entries = append(entries, name)
		}
	}
	sort.Strings(entries)
	return entries, nil
}

func (l *kernelLibrary) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.sources)
}

// source returns the raw source for an entry point, reading it on first use.
func (l *kernelLibrary) source(entry string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.sources[entry]; ok {
		return s, nil
	}
	data, err := fs.ReadFile(l.fsys, path.Join(l.dir, entry+kernelExt))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrKernelNotFound, entry)
		}
		return "", fmt.Errorf("shader: read kernel %s: %w", entry, err)
	}
	l.sources[entry] = string(data)
	return l.sources[entry], nil
}

// Validate compiles processed WGSL with naga and reports the first parse, lowering or
// validation error.
//
// Parameters:
//   - source: processed WGSL source
//
// Returns:
//   - error: nil if the source compiles
func Validate(source string) error {
	if _, err := naga.Compile(source); err != nil {
		return fmt.Errorf("naga: %w", err)
	}
	return nil
}
