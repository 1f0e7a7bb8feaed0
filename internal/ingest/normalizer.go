package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
	"github.com/nutribunda/mpasi-backend/internal/types"
)

// Composition-table files go through the attachment channel, never into the
// vector index. Matched by exact name, case-insensitive.
var excludedFileNames = map[string]struct{}{
	"tkpi-2020.json":   {},
	"tkpi_compact.txt": {},
}

const (
	fullSpanAgeStart = 0
	fullSpanAgeEnd   = 24
)

// ageRangeRe matches "6-8 bulan", "6–8 bulan", "6 s/d 8 bulan" and similar.
var ageRangeRe = regexp.MustCompile(`(\d{1,2})\s*(?:[-–—]|s/d)\s*(\d{1,2})\s*bulan`)

// ageFieldCandidates are the record fields consulted for an age phrase, in
// priority order.
var ageFieldCandidates = []string{"kelompok_umur", "usia", "umur", "age_group", "rentang_usia"}

// Normalizer turns raw dataset files into pre-split documents. One source
// record maps to exactly one document; records are never merged.
type Normalizer struct {
	log *logger.Logger
}

func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{log: log.With("service", "DocumentNormalizer")}
}

// NormalizeDir reads every file in the dataset directory: JSON arrays become
// one document per entry, JSON objects and markdown/text files one document
// per file. Excluded composition files are skipped.
func (n *Normalizer) NormalizeDir(dir string) ([]types.ChunkDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset dir %s: %w", dir, err)
	}

	var docs []types.ChunkDocument
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, excluded := excludedFileNames[strings.ToLower(name)]; excluded {
			n.log.Info("Skipping composition file", "file", name)
			continue
		}

		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		fileDocs, err := n.NormalizeFile(name, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}

	n.log.Info("Dataset normalized", "dir", dir, "documents", len(docs))
	return docs, nil
}

// NormalizeFile converts one file's content into documents.
func (n *Normalizer) NormalizeFile(name string, raw []byte) ([]types.ChunkDocument, error) {
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		docs, err := n.normalizeJSON(name, raw)
		if err == nil {
			return docs, nil
		}
		n.log.Warn("Falling back to raw text for unparseable JSON", "file", name, "error", err)
	}
	return n.normalizeText(name, raw), nil
}

func (n *Normalizer) normalizeJSON(name string, raw []byte) ([]types.ChunkDocument, error) {
	var arr []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		// A single object file is one document.
		var obj map[string]json.RawMessage
		if objErr := json.Unmarshal(raw, &obj); objErr != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		arr = []map[string]json.RawMessage{obj}
	}

	docs := make([]types.ChunkDocument, 0, len(arr))
	for _, record := range arr {
		text, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to re-serialize record in %s: %w", name, err)
		}
		start, end := n.recordAgeRange(name, record)
		docs = append(docs, types.ChunkDocument{
			SourceFile: name,
			Text:       string(text),
			AgeStart:   start,
			AgeEnd:     end,
			Metadata:   map[string]string{"kind": "rule_record"},
		})
	}
	return docs, nil
}

func (n *Normalizer) normalizeText(name string, raw []byte) []types.ChunkDocument {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil
	}
	return []types.ChunkDocument{{
		SourceFile: name,
		Text:       text,
		AgeStart:   fullSpanAgeStart,
		AgeEnd:     fullSpanAgeEnd,
		Metadata:   map[string]string{"kind": "guidance", "topic": topicTag(name)},
	}}
}

// recordAgeRange scans the candidate age fields for an "N-M bulan" phrase.
// No match means the full span: a zero-width default would make the chunk
// unretrievable under any age filter.
func (n *Normalizer) recordAgeRange(file string, record map[string]json.RawMessage) (int, int) {
	for _, field := range ageFieldCandidates {
		msg, present := record[field]
		if !present {
			continue
		}
		var value string
		if err := json.Unmarshal(msg, &value); err != nil {
			continue
		}
		if start, end, ok := ParseAgeRange(value); ok {
			return start, end
		}
		n.log.Warn("Age field without parseable range, using full span",
			"file", file,
			"field", field,
			"value", value,
		)
		return fullSpanAgeStart, fullSpanAgeEnd
	}
	return fullSpanAgeStart, fullSpanAgeEnd
}

// ParseAgeRange extracts an inclusive month range from a phrase like
// "6-8 bulan". Returns ok=false when no range is present.
func ParseAgeRange(s string) (int, int, bool) {
	m := ageRangeRe.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(m[1])
	end, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || start > end {
		return 0, 0, false
	}
	return start, end, true
}

func topicTag(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ToLower(strings.ReplaceAll(base, " ", "_"))
}
