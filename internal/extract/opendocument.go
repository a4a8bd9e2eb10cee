package extract

import (
	"regexp"
	"strings"
)

const openDocumentContentPath = "content.xml"

// OpenDocument text elements; separate patterns so opening and closing tags pair up.
var (
	odfTextP    = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfTextSpan = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfTextH    = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
)

// extractOpenDocument reads content.xml and joins the matches of each pattern in order.
func extractOpenDocument(content []byte, kind string, patterns ...*regexp.Regexp) (string, error) {
	zr, err := openZip(content, kind)
	if err != nil {
		return "", err
	}
	f := findZipEntry(zr, openDocumentContentPath)
	if f == nil {
		return "", fmtNotFound(kind, openDocumentContentPath)
	}
	data, err := readZipEntry(f, kind)
	if err != nil {
		return "", err
	}
	s := string(data)
	var b strings.Builder
	for _, re := range patterns {
		appendSubmatches(&b, re.FindAllStringSubmatch(s, -1))
	}
	return strings.TrimSpace(b.String()), nil
}

// extractODP extracts paragraphs, spans and headings of an OpenDocument presentation.
func extractODP(content []byte) (string, error) {
	return extractOpenDocument(content, "ODP", odfTextP, odfTextSpan, odfTextH)
}

// extractODS extracts cell paragraphs and spans of an OpenDocument spreadsheet.
func extractODS(content []byte) (string, error) {
	return extractOpenDocument(content, "ODS", odfTextP, odfTextSpan)
}
