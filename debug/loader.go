package debug

import (
	"bufio"
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

var elfMagic = []byte(elf.ELFMAG)

// LoadSymbols reads the symbols of a program image. ELF files are read
// through their symbol table; any other file is read as nm output, one
// "<addr> <type> <name> [size]" or "<addr> <size> <type> <name>" symbol per
// line.
func LoadSymbols(fs afero.Fs, path string) (*Table, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(data, elfMagic) {
		return parseELF(data)
	}

	return ParseNM(bytes.NewReader(data))
}

func parseELF(data []byte) (*Table, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading elf: %w", err)
	}
	defer f.Close()

	syms, err := f.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		return NewTable(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading elf symbols: %w", err)
	}

	list := make([]Symbol, 0, len(syms))
	for _, s := range syms {
		if s.Name == "" || s.Section == elf.SHN_UNDEF {
			continue
		}

		kind := SymbolUnknown
		switch elf.ST_TYPE(s.Info) {
		case elf.STT_FUNC:
			kind = SymbolFunction
		case elf.STT_OBJECT:
			kind = SymbolObject
		case elf.STT_NOTYPE:
		default:
			continue
		}

		list = append(list, Symbol{
			Name:    s.Name,
			Address: s.Value,
			Size:    s.Size,
			Kind:    kind,
		})
	}

	return NewTable(list...), nil
}

// ParseNM reads symbols in nm output format. Undefined symbols and lines
// starting with # are skipped.
func ParseNM(r io.Reader) (*Table, error) {
	var list []Symbol

	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			if len(fields) == 2 && strings.EqualFold(fields[0], "u") {
				continue
			}

			return nil, fmt.Errorf("line %d: malformed symbol %q", lineNum, line)
		}

		sym, err := parseNMFields(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		list = append(list, sym)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return NewTable(list...), nil
}

func parseNMFields(fields []string) (Symbol, error) {
	addr, err := strconv.ParseUint(fields[0], 16, 64)
	if err != nil {
		return Symbol{}, fmt.Errorf("bad address %q", fields[0])
	}

	typ, name, sizeField := fields[1], fields[2], ""
	if len(fields) >= 4 {
		if len(fields[2]) == 1 {
			sizeField, typ, name = fields[1], fields[2], fields[3]
		} else {
			sizeField = fields[3]
		}
	}

	if len(typ) != 1 {
		return Symbol{}, fmt.Errorf("bad symbol type %q", typ)
	}

	sym := Symbol{Name: name, Address: addr, Kind: nmKind(typ[0])}

	if sizeField != "" {
		if sym.Size, err = strconv.ParseUint(sizeField, 16, 64); err != nil {
			return Symbol{}, fmt.Errorf("bad size %q", sizeField)
		}
	}

	return sym, nil
}

func nmKind(c byte) SymbolKind {
	switch c {
	case 'T', 't', 'W', 'w':
		return SymbolFunction
	case 'D', 'd', 'B', 'b', 'R', 'r', 'G', 'g', 'S', 's':
		return SymbolObject
	default:
		return SymbolUnknown
	}
}
