package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

func openZip(content []byte, kind string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", kind, err)
	}
	return zr, nil
}

func readZipEntry(f *zip.File, kind string) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("extract %s: open %s: %w", kind, f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("extract %s: read %s: %w", kind, f.Name, err)
	}
	return data, nil
}

// findZipEntry returns the entry named name, or nil.
func findZipEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func fmtNotFound(kind, name string) error {
	return fmt.Errorf("extract %s: %s not found", kind, name)
}

// appendSubmatches writes the first group of every match to b, space separated.
func appendSubmatches(b *strings.Builder, matches [][]string) {
	for _, m := range matches {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(m[1]))
	}
}
