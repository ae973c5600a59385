package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cleared-dev/recon/internal/match"
	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/reconcile"
)

// Report file names inside the output directory.
const (
	MatchesFile   = "matches.csv"
	UnmatchedFile = "unmatched.csv"
	SummaryFile   = "summary.json"
)

// MatchesHeader is the CSV header for matches.csv.
const MatchesHeader = "match_id,source_id,pos_id,match_probability,recommendation,confidence_level,source_customer,pos_customer,source_amount,pos_amount,features"

// UnmatchedHeader is the CSV header for unmatched.csv.
const UnmatchedHeader = "side,record_id,customer_name,service,amount,date,reason"

// PairsHeader is the CSV header for the candidate list handed to the scorer.
const PairsHeader = "source_id,pos_id,source_customer,pos_customer,source_service,pos_service,source_amount,pos_amount,source_date,pos_date"

const dateFormat = "2006-01-02"

// MarshalMatch converts a classified match to a matches.csv row.
func MarshalMatch(m model.ClassifiedMatch) []string {
	return []string{
		m.ID,
		m.Source.ID,
		m.POS.ID,
		strconv.FormatFloat(m.Probability, 'f', -1, 64),
		string(m.Recommendation),
		m.Recommendation.ConfidenceLevel(),
		m.Source.CustomerName,
		m.POS.CustomerName,
		m.Source.Amount.StringFixed(2),
		m.POS.Amount.StringFixed(2),
		formatFeatures(m.Features),
	}
}

// MarshalUnmatched converts a leftover record to an unmatched.csv row.
func MarshalUnmatched(u model.UnmatchedRecord) []string {
	return []string{
		string(u.Side),
		u.Record.ID,
		u.Record.CustomerName,
		u.Record.Service,
		u.Record.Amount.StringFixed(2),
		formatDate(u.Record),
		u.Reason,
	}
}

// MarshalPair converts an unscored pair to a pairs.csv row.
func MarshalPair(p reconcile.Pair) []string {
	return []string{
		p.Source.ID,
		p.POS.ID,
		p.Source.CustomerName,
		p.POS.CustomerName,
		p.Source.Service,
		p.POS.Service,
		p.Source.Amount.StringFixed(2),
		p.POS.Amount.StringFixed(2),
		formatDate(p.Source),
		formatDate(p.POS),
	}
}

func formatDate(r model.Record) string {
	if r.Date.IsZero() {
		return ""
	}
	return r.Date.Format(dateFormat)
}

// formatFeatures renders sub-scores as "k=v;k=v" sorted by key.
func formatFeatures(f map[string]float64) string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.FormatFloat(f[k], 'f', -1, 64)
	}
	return strings.Join(parts, ";")
}

func writeCSV[T any](w io.Writer, header string, items []T, marshal func(T) []string) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, it := range items {
		if err := cw.Write(marshal(it)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMatches writes matches.csv (including header).
func WriteMatches(w io.Writer, matches []model.ClassifiedMatch) error {
	return writeCSV(w, MatchesHeader, matches, MarshalMatch)
}

// WriteUnmatched writes unmatched.csv (including header).
func WriteUnmatched(w io.Writer, unmatched []model.UnmatchedRecord) error {
	return writeCSV(w, UnmatchedHeader, unmatched, MarshalUnmatched)
}

// WritePairs writes the candidate pair list (including header).
func WritePairs(w io.Writer, pairs []reconcile.Pair) error {
	return writeCSV(w, PairsHeader, pairs, MarshalPair)
}

// Summary is the summary.json document.
type Summary struct {
	RunID      string           `json:"run_id"`
	Thresholds match.Thresholds `json:"thresholds"`
	reconcile.Summary
}

// WriteSummary writes summary.json.
func WriteSummary(w io.Writer, rep *reconcile.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	doc := Summary{RunID: rep.RunID, Thresholds: rep.Thresholds, Summary: rep.Summary}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return nil
}

// WriteAll writes every report file into dir, creating it if needed, and
// returns the paths written. matches.csv holds the assigned pairs only.
func WriteAll(dir string, rep *reconcile.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating reports dir: %w", err)
	}

	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{MatchesFile, func(w io.Writer) error { return WriteMatches(w, rep.Assigned()) }},
		{UnmatchedFile, func(w io.Writer) error { return WriteUnmatched(w, rep.Unmatched) }},
		{SummaryFile, func(w io.Writer) error { return WriteSummary(w, rep) }},
	}

	paths := make([]string, 0, len(writers))
	for _, wr := range writers {
		path := filepath.Join(dir, wr.name)
		if err := writeFile(path, wr.write); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
