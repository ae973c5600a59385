package id

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// matchNamespace scopes deterministic match IDs.
var matchNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://cleared.dev/recon/match"))

// FormatRecordID returns a record ID like "pos:square_june.csv:12".
func FormatRecordID(side, file string, row int) string {
	return fmt.Sprintf("%s:%s:%d", side, file, row)
}

// ParseRecordID splits a record ID into side, file and row.
func ParseRecordID(id string) (side, file string, row int, err error) {
	first := strings.Index(id, ":")
	last := strings.LastIndex(id, ":")
	if first <= 0 || last == first {
		return "", "", 0, fmt.Errorf("invalid record ID format: %q", id)
	}

	row, err = strconv.Atoi(id[last+1:])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid row in record ID %q: %w", id, err)
	}
	if row < 1 {
		return "", "", 0, fmt.Errorf("invalid row in record ID %q: must be >= 1", id)
	}

	return id[:first], id[first+1 : last], row, nil
}

// MatchID returns a stable ID for a source/POS record pair.
// The same pair always yields the same ID.
func MatchID(sourceID, posID string) string {
	return uuid.NewSHA1(matchNamespace, []byte(sourceID+"|"+posID)).String()
}

// NewRunID returns a random ID for one pipeline run.
func NewRunID() string {
	return uuid.NewString()
}
