// Package vocab maps public label ids to human-readable symbols.
//
// A symbol table is a plain text file with one symbol per line; the
// line number (starting at zero) is the public label id. Decoded
// hypotheses carry public ids only, so the table is the last step
// before anything is shown to a person.
package vocab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table maps public label ids to symbols and back.
type Table struct {
	symbols []string
	ids     map[string]int
}

// New builds a table from an ordered symbol list. The slice index is
// the public id. Duplicate symbols keep the first id for reverse
// lookups.
func New(symbols []string) *Table {
	t := &Table{
		symbols: make([]string, len(symbols)),
		ids:     make(map[string]int, len(symbols)),
	}
	copy(t.symbols, symbols)
	for i, s := range symbols {
		if _, ok := t.ids[s]; !ok {
			t.ids[s] = i
		}
	}
	return t
}

// Load reads a symbol table, one symbol per line. Blank lines and
// lines starting with "#" are skipped. Symbols may not contain
// whitespace.
func Load(r io.Reader) (*Table, error) {
	var symbols []string
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.ContainsAny(line, " \t") {
			return nil, fmt.Errorf("line %d: symbol %q contains whitespace", lineNum, line)
		}
		symbols = append(symbols, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return New(symbols), nil
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Size returns the number of symbols in the table.
func (t *Table) Size() int {
	return len(t.symbols)
}

// Symbol returns the symbol for a public id. Ids outside the table
// render as "<unk-N>" so a mismatched table is visible in output
// instead of crashing it.
func (t *Table) Symbol(id int) string {
	if id < 0 || id >= len(t.symbols) {
		return fmt.Sprintf("<unk-%d>", id)
	}
	return t.symbols[id]
}

// ID returns the public id for a symbol.
func (t *Table) ID(symbol string) (int, bool) {
	id, ok := t.ids[symbol]
	return id, ok
}

// Render maps a public label sequence to its symbols.
func (t *Table) Render(labels []int) []string {
	out := make([]string, len(labels))
	for i, id := range labels {
		out[i] = t.Symbol(id)
	}
	return out
}
