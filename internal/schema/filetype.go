package schema

import (
	"strings"

	"github.com/cleared-dev/recon/internal/model"
)

// FileType is an advisory guess at which system produced an export.
type FileType string

const (
	FileTypeSourceARewards FileType = "source_a_rewards"
	FileTypeSourceBRewards FileType = "source_b_rewards"
	FileTypePOS            FileType = "pos_transactions"
	FileTypeUnknown        FileType = "unknown"
)

// Side returns the reconciliation side a file type belongs to.
func (t FileType) Side() (model.Side, bool) {
	switch t {
	case FileTypeSourceARewards, FileTypeSourceBRewards:
		return model.SideSource, true
	case FileTypePOS:
		return model.SidePOS, true
	default:
		return "", false
	}
}

// FileTypeRule fires when every AllOf keyword and at least one AnyOf keyword
// (if any are listed) appear in the normalized header text.
type FileTypeRule struct {
	Type  FileType
	AllOf []string
	AnyOf []string
}

// fileTypeRules are evaluated in order; the first satisfied rule wins.
var fileTypeRules = []FileTypeRule{
	{Type: FileTypeSourceARewards, AllOf: []string{"patient name"}, AnyOf: []string{"product name", "points earned"}},
	{Type: FileTypeSourceBRewards, AnyOf: []string{"certificate"}},
	{Type: FileTypeSourceBRewards, AllOf: []string{"treatment date", "payout"}},
	{Type: FileTypePOS, AllOf: []string{"amount"}, AnyOf: []string{"payment", "transaction"}},
}

func (r FileTypeRule) matches(text string) bool {
	if len(r.AllOf) == 0 && len(r.AnyOf) == 0 {
		return false
	}
	for _, kw := range r.AllOf {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	if len(r.AnyOf) == 0 {
		return true
	}
	for _, kw := range r.AnyOf {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// DetectFileType guesses the producing system from header text alone.
func DetectFileType(headers []string) FileType {
	norms := make([]string, 0, len(headers))
	for _, h := range headers {
		if n := NormalizeHeader(h); n != "" {
			norms = append(norms, n)
		}
	}
	text := strings.Join(norms, " ")

	for _, rule := range fileTypeRules {
		if rule.matches(text) {
			return rule.Type
		}
	}
	return FileTypeUnknown
}
