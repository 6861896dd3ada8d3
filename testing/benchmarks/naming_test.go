package benchmarks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zoobzio/limpet"
)

func BenchmarkRandomNamer(b *testing.B) {
	namer := limpet.RandomNamer{}
	info := &limpet.FileInfo{Name: "report.pdf"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = namer.Name(info, nil)
	}
}

func BenchmarkHashNamer(b *testing.B) {
	path := filepath.Join(b.TempDir(), "report.pdf")
	if err := os.WriteFile(path, make([]byte, 4096), 0o600); err != nil {
		b.Fatalf("failed to write bench file: %v", err)
	}
	namer := limpet.HashNamer{}
	info := &limpet.FileInfo{Name: "report.pdf", TempPath: path}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = namer.Name(info, nil)
	}
}

func BenchmarkFileInfoFrom_Struct(b *testing.B) {
	info := &limpet.FileInfo{
		Name:        "report.pdf",
		TempPath:    "/tmp/report.pdf",
		ContentType: "application/pdf",
		Size:        4096,
		FromUpload:  true,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = limpet.FileInfoFrom(info)
	}
}

func BenchmarkFileInfoFrom_Map(b *testing.B) {
	m := map[string]any{
		"name": "report.pdf",
		"path": "/tmp/report.pdf",
		"type": "application/pdf",
		"size": int64(4096),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = limpet.FileInfoFrom(m)
	}
}
