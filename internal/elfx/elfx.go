// Package elfx reads function code out of ARM64 ELF files.
package elfx

import (
	"debug/elf"
	"io"
	"os"
	"sort"

	"tlog.app/go/errors"
)

var (
	ErrNotELF       = errors.New("not an ELF file")
	ErrNotARM64     = errors.New("not ARM64 (EM_AARCH64)")
	ErrNot64Bit     = errors.New("not 64-bit ELF")
	ErrNoSymbol     = errors.New("symbol not found")
	ErrNoSegment    = errors.New("no PT_LOAD segment covers address")
	ErrSymbolNoSize = errors.New("symbol has zero size")
)

// File wraps a debug/elf.File opened for code extraction.
type File struct {
	ELF  *elf.File
	f    *os.File
	size int64
}

// Func is a function symbol.
type Func struct {
	Name string
	Addr uint64
	Size uint64
}

// Open opens an ELF file and checks it is 64-bit ARM64.
// Executables and shared objects are accepted; code is located through
// their PT_LOAD segments.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat")
	}

	ef, err := elf.NewFile(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(ErrNotELF, "%v", err)
	}

	if ef.Class != elf.ELFCLASS64 {
		f.Close()
		return nil, ErrNot64Bit
	}
	if ef.Machine != elf.EM_AARCH64 {
		f.Close()
		return nil, ErrNotARM64
	}

	return &File{ELF: ef, f: f, size: info.Size()}, nil
}

// Close releases the file.
func (f *File) Close() error {
	return f.f.Close()
}

// Funcs lists the sized function symbols of the static and dynamic
// symbol tables, one per address, sorted by address.
func (f *File) Funcs() ([]Func, error) {
	var all []elf.Symbol

	for _, load := range []func() ([]elf.Symbol, error){f.ELF.Symbols, f.ELF.DynamicSymbols} {
		syms, err := load()
		if errors.Is(err, elf.ErrNoSymbols) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "symbols")
		}

		all = append(all, syms...)
	}

	seen := make(map[uint64]bool, len(all))

	var funcs []Func

	for _, s := range all {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Size == 0 || s.Name == "" || seen[s.Value] {
			continue
		}

		seen[s.Value] = true
		funcs = append(funcs, Func{Name: s.Name, Addr: s.Value, Size: s.Size})
	}

	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Addr < funcs[j].Addr })

	return funcs, nil
}

// Symbol looks up a function symbol by exact name.
func (f *File) Symbol(name string) (Func, error) {
	funcs, err := f.Funcs()
	if err != nil {
		return Func{}, err
	}

	for _, fn := range funcs {
		if fn.Name == name {
			return fn, nil
		}
	}

	return Func{}, errors.Wrap(ErrNoSymbol, "%s", name)
}

// Code reads the bytes of fn.
func (f *File) Code(fn Func) ([]byte, error) {
	if fn.Size == 0 {
		return nil, errors.Wrap(ErrSymbolNoSize, "%s", fn.Name)
	}

	return f.ReadBytesAtVA(fn.Addr, int(fn.Size))
}

// VAToFileOffset converts a virtual address to a file offset using PT_LOAD segments.
func (f *File) VAToFileOffset(va uint64) (uint64, error) {
	for _, p := range f.ELF.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if va >= p.Vaddr && va < p.Vaddr+p.Filesz {
			offset := va - p.Vaddr + p.Off
			if offset >= uint64(f.size) {
				return 0, errors.New("VA 0x%x maps to offset 0x%x beyond file size 0x%x", va, offset, f.size)
			}
			return offset, nil
		}
	}
	return 0, errors.Wrap(ErrNoSegment, "VA 0x%x", va)
}

// ReadBytesAtVA reads n bytes starting at the given virtual address,
// clamped to the end of the file.
func (f *File) ReadBytesAtVA(va uint64, n int) ([]byte, error) {
	off, err := f.VAToFileOffset(va)
	if err != nil {
		return nil, err
	}

	avail := f.size - int64(off)
	if int64(n) > avail {
		n = int(avail)
	}

	buf := make([]byte, n)
	_, err = f.f.ReadAt(buf, int64(off))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "read at 0x%x", off)
	}
	return buf, nil
}
