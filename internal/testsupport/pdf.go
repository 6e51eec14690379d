package testsupport

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WritePDF writes a structurally valid PDF with the requested number of
// blank pages and header version (for example "1.4").
func WritePDF(t testing.TB, path string, pages int, version string) {
	t.Helper()

	if pages <= 0 {
		pages = 1
	}
	if version == "" {
		version = "1.4"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buildPDF(pages, version), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSizedPDF writes exactly size bytes to path: a PDF header followed by
// comment filler. Orchestrator tests only care about byte counts, not about
// the document parsing. A size <= 0 writes a single byte.
func WriteSizedPDF(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	header := []byte("%PDF-1.4\n%")
	content := make([]byte, size)
	n := copy(content, header)
	for i := n; i < len(content); i++ {
		content[i] = 'B'
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// buildPDF renders the bytes written by WritePDF.
func buildPDF(pages int, version string) []byte {
	// Objects: 1 catalog, 2 page tree, 3.. pages.
	objects := make([]string, 0, pages+2)
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := new(bytes.Buffer)
	for i := 0; i < pages; i++ {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(kids, "%d 0 R", i+3)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), pages))
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", version)
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
