package eval

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadRefs reads reference transcripts, one utterance per line.
// Format: uttID token1 token2 token3 ...
// Blank lines and lines starting with "#" are skipped. An utterance
// id with no tokens is a valid empty reference.
func LoadRefs(r io.Reader) (map[string][]string, error) {
	refs := make(map[string][]string)
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		id := fields[0]
		if _, ok := refs[id]; ok {
			return nil, fmt.Errorf("line %d: duplicate utterance id %q", lineNum, id)
		}
		refs[id] = fields[1:]
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return refs, nil
}

// LoadRefsFile is a convenience wrapper that opens a file path.
func LoadRefsFile(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadRefs(f)
}
