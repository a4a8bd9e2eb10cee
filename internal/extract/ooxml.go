package extract

import (
	"archive/zip"
	"regexp"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	pptxSlidePathPrefix = "ppt/slides/slide"
)

var (
	// <w:t>text</w:t>, with any attributes.
	wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// <a:t>text</a:t>, with any attributes.
	atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

	// The main document Override in [Content_Types].xml, in either attribute order.
	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// docxMainDocumentPath reads the main document part from [Content_Types].xml,
// falling back to word/document.xml.
func docxMainDocumentPath(zr *zip.Reader) string {
	f := findZipEntry(zr, contentTypesPath)
	if f == nil {
		return docxDocumentXMLPath
	}
	data, err := readZipEntry(f, "DOCX")
	if err != nil {
		return docxDocumentXMLPath
	}
	for _, re := range []*regexp.Regexp{partNameRe, partNameRe2} {
		if m := re.FindSubmatch(data); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDocumentXMLPath
}

// extractDOCX joins every <w:t> run of the main document. Runs are matched directly
// so paragraph attributes (w:rsidR etc.) do not hide text.
func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content, "DOCX")
	if err != nil {
		return "", err
	}
	docPath := docxMainDocumentPath(zr)
	f := findZipEntry(zr, docPath)
	if f == nil {
		return "", fmtNotFound("DOCX", docPath)
	}
	docXML, err := readZipEntry(f, "DOCX")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	appendSubmatches(&b, wtTag.FindAllStringSubmatch(string(docXML), -1))
	return strings.TrimSpace(b.String()), nil
}

// extractPPTX joins every <a:t> run of every ppt/slides/slideN.xml part.
func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePathPrefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		slide, err := readZipEntry(f, "PPTX")
		if err != nil {
			return "", err
		}
		appendSubmatches(&b, atTag.FindAllStringSubmatch(string(slide), -1))
	}
	return strings.TrimSpace(b.String()), nil
}
