package posterior

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Set is a collection of utterance posteriors that share one class space.
// It is the unit the CLI tools move between producer and decoder.
type Set struct {
	VocabSize int
	// Blank is the blank class index. HasBlank records whether the
	// set's source actually declared it: Save always writes it and V1
	// files fix it at class 0, so only a V2 file written without the
	// field loads with HasBlank false. Blank 0 with HasBlank false is
	// a default, not a declaration.
	Blank      int
	HasBlank   bool
	Utterances []Matrix
}

type setFileV2 struct {
	Version   int        `msgpack:"version"`
	VocabSize int        `msgpack:"vocab_size"`
	Blank     *int       `msgpack:"blank"`
	Utts      []setUttV2 `msgpack:"utts"`
}

type setUttV2 struct {
	ID       string      `msgpack:"id"`
	Length   int         `msgpack:"length"`
	LogProbs [][]float64 `msgpack:"log_probs"`
}

// V1 sets were probability-domain dumps with blank fixed at class 0 and no
// padding, produced before the log-domain format existed.
type setFileV1 struct {
	Version int        `msgpack:"version"`
	Classes int        `msgpack:"classes"`
	Utts    []setUttV1 `msgpack:"utts"`
}

type setUttV1 struct {
	ID    string      `msgpack:"id"`
	Probs [][]float64 `msgpack:"probs"`
}

// Save writes the set in the current (V2) format.
func (s *Set) Save(w io.Writer) error {
	blank := s.Blank
	sf := setFileV2{
		Version:   2,
		VocabSize: s.VocabSize,
		Blank:     &blank,
		Utts:      make([]setUttV2, len(s.Utterances)),
	}
	for i, u := range s.Utterances {
		sf.Utts[i] = setUttV2{ID: u.ID, Length: u.Length, LogProbs: u.LogProbs}
	}
	data, err := msgpack.Marshal(&sf)
	if err != nil {
		return fmt.Errorf("encode posterior set: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write posterior set: %w", err)
	}
	return nil
}

// SaveFile writes the set to path.
func (s *Set) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSet reads a set in any supported format. V1 probability-domain sets
// are converted to log domain on load.
func LoadSet(r io.Reader) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var v2 setFileV2
	if err := msgpack.Unmarshal(data, &v2); err == nil && v2.Version == 2 && v2.VocabSize > 0 {
		s := &Set{
			VocabSize:  v2.VocabSize,
			HasBlank:   v2.Blank != nil,
			Utterances: make([]Matrix, len(v2.Utts)),
		}
		if v2.Blank != nil {
			s.Blank = *v2.Blank
		}
		for i, u := range v2.Utts {
			s.Utterances[i] = Matrix{ID: u.ID, LogProbs: u.LogProbs, Length: u.Length}
		}
		return s, nil
	}

	var v1 setFileV1
	if err := msgpack.Unmarshal(data, &v1); err == nil && v1.Version == 1 && v1.Classes > 0 {
		s := &Set{
			VocabSize:  v1.Classes,
			Blank:      0,
			HasBlank:   true,
			Utterances: make([]Matrix, len(v1.Utts)),
		}
		for i, u := range v1.Utts {
			s.Utterances[i] = FromProbs(u.ID, u.Probs, len(u.Probs))
		}
		return s, nil
	}

	return nil, fmt.Errorf("unsupported posterior set format")
}

// LoadSetFile reads a set from path.
func LoadSetFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := LoadSet(f)
	if err != nil {
		return nil, fmt.Errorf("load posterior set %s: %w", path, err)
	}
	return s, nil
}
