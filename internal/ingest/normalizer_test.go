package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
)

func TestParseAgeRange(t *testing.T) {
	cases := []struct {
		in         string
		start, end int
		ok         bool
	}{
		{"6-8 bulan", 6, 8, true},
		{"6–8 bulan", 6, 8, true},
		{"9 s/d 11 bulan", 9, 11, true},
		{"Bayi 12 - 24 Bulan", 12, 24, true},
		{"dewasa", 0, 0, false},
		{"8 bulan", 0, 0, false},
	}
	for _, tc := range cases {
		start, end, ok := ParseAgeRange(tc.in)
		if ok != tc.ok || start != tc.start || end != tc.end {
			t.Fatalf("%q: want=(%d,%d,%v) got=(%d,%d,%v)", tc.in, tc.start, tc.end, tc.ok, start, end, ok)
		}
	}
}

func TestNormalizeJSONArrayOneDocPerRecord(t *testing.T) {
	n := NewNormalizer(logger.NewNop())

	raw := []byte(`[
		{"kelompok_umur": "6-8 bulan", "aturan": "tekstur lumat"},
		{"kelompok_umur": "9-11 bulan", "aturan": "tekstur cincang"},
		{"aturan": "cuci tangan sebelum menyiapkan"}
	]`)

	docs, err := n.NormalizeFile("aturan_mpasi.json", raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("docs: want=3 got=%d", len(docs))
	}
	if docs[0].AgeStart != 6 || docs[0].AgeEnd != 8 {
		t.Fatalf("doc0 range: got=(%d,%d)", docs[0].AgeStart, docs[0].AgeEnd)
	}
	// No age phrase: full span, never zero-width.
	if docs[2].AgeStart != 0 || docs[2].AgeEnd != 24 {
		t.Fatalf("doc2 range: got=(%d,%d)", docs[2].AgeStart, docs[2].AgeEnd)
	}
}

func TestNormalizeMarkdownSingleDoc(t *testing.T) {
	n := NewNormalizer(logger.NewNop())

	docs, err := n.NormalizeFile("Panduan Tekstur.md", []byte("# Panduan\ntekstur bertahap"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("docs: want=1 got=%d", len(docs))
	}
	if docs[0].AgeStart != 0 || docs[0].AgeEnd != 24 {
		t.Fatalf("range: got=(%d,%d)", docs[0].AgeStart, docs[0].AgeEnd)
	}
	if docs[0].Metadata["topic"] != "panduan_tekstur" {
		t.Fatalf("topic: got=%q", docs[0].Metadata["topic"])
	}
}

func TestNormalizeDirSkipsCompositionFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"aturan.json":      `[{"kelompok_umur": "6-8 bulan", "aturan": "x"}]`,
		"TKPI-2020.json":   `[{"KODE": "AR001"}]`,
		"TKPI_COMPACT.txt": `{"code":"AR001"}`,
		"panduan.md":       "panduan pemberian makan",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	docs, err := NewNormalizer(logger.NewNop()).NormalizeDir(dir)
	if err != nil {
		t.Fatalf("normalize dir: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs: want=2 got=%d", len(docs))
	}
	for _, doc := range docs {
		if doc.SourceFile == "TKPI-2020.json" || doc.SourceFile == "TKPI_COMPACT.txt" {
			t.Fatalf("composition file indexed: %s", doc.SourceFile)
		}
	}
}
