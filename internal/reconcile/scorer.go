package reconcile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cleared-dev/recon/internal/ingest"
	"github.com/cleared-dev/recon/internal/model"
)

// ErrNoScore means a scorer has nothing to say about a pair. Such pairs are
// not candidates.
var ErrNoScore = errors.New("no score for pair")

// Score is what the external scorer returns for one pair.
type Score struct {
	Probability float64
	Features    map[string]float64
}

// Scorer is the boundary to the record-matching model. Implementations must be
// safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, source, pos model.Record) (Score, error)
}

// Score table columns.
const (
	colSourceID    = "source_id"
	colPOSID       = "pos_id"
	colProbability = "match_probability"
)

type pairKey struct {
	source, pos string
}

// TableScorer serves scores computed offline and saved as CSV:
// source_id,pos_id,match_probability followed by any feature columns.
type TableScorer struct {
	scores map[pairKey]Score
}

// LoadTableScorer reads a score table.
func LoadTableScorer(r io.Reader) (*TableScorer, error) {
	cr := csv.NewReader(ingest.SkipBOM(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return &TableScorer{scores: map[pairKey]Score{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading score header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, want := range []string{colSourceID, colPOSID, colProbability} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("score table missing column %q", want)
		}
	}

	ts := &TableScorer{scores: make(map[pairKey]Score)}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading score line %d: %w", line, err)
		}
		if len(rec) < len(header) {
			return nil, fmt.Errorf("score line %d: expected %d fields, got %d", line, len(header), len(rec))
		}

		p, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[colProbability]]), 64)
		if err != nil {
			return nil, fmt.Errorf("score line %d: parsing %s: %w", line, colProbability, err)
		}
		s := Score{Probability: p, Features: make(map[string]float64)}
		for i, h := range header {
			name := strings.TrimSpace(h)
			if name == colSourceID || name == colPOSID || name == colProbability {
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("score line %d: parsing %s: %w", line, name, err)
			}
			s.Features[name] = f
		}

		key := pairKey{
			source: strings.TrimSpace(rec[cols[colSourceID]]),
			pos:    strings.TrimSpace(rec[cols[colPOSID]]),
		}
		ts.scores[key] = s
	}
	return ts, nil
}

// LoadTableScorerFile reads a score table from disk.
func LoadTableScorerFile(path string) (*TableScorer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening score table: %w", err)
	}
	defer f.Close()
	return LoadTableScorer(f)
}

// Len returns the number of scored pairs.
func (s *TableScorer) Len() int { return len(s.scores) }

// Score looks the pair up by record ID.
func (s *TableScorer) Score(_ context.Context, source, pos model.Record) (Score, error) {
	sc, ok := s.scores[pairKey{source: source.ID, pos: pos.ID}]
	if !ok {
		return Score{}, fmt.Errorf("%w: %s, %s", ErrNoScore, source.ID, pos.ID)
	}
	return sc, nil
}
