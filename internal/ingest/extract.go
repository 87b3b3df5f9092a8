package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedType is returned for file extensions outside pdf/docx/txt.
var ErrUnsupportedType = errors.New("unsupported file type")

// ExtractText pulls plain text out of an uploaded file based on its
// extension. Supported: .pdf, .docx, .txt.
func ExtractText(content []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".txt":
		return string(content), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("copying pdf text: %w", err)
	}
	return buf.String(), nil
}

// docxBody mirrors the parts of word/document.xml we care about: paragraphs
// containing text runs.
type docxBody struct {
	Paragraphs []struct {
		Runs []struct {
			Text string `xml:"t"`
		} `xml:"r"`
	} `xml:"body>p"`
}

// extractDOCX reads word/document.xml out of the docx zip container and
// joins paragraph text with newlines.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("opening docx container: %w", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening document.xml: %w", err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("reading document.xml: %w", err)
		}
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("docx missing word/document.xml")
	}

	var body docxBody
	if err := xml.Unmarshal(docXML, &body); err != nil {
		return "", fmt.Errorf("parsing document.xml: %w", err)
	}

	var sb strings.Builder
	for i, p := range body.Paragraphs {
		if i > 0 {
			sb.WriteString("\n")
		}
		for _, r := range p.Runs {
			sb.WriteString(r.Text)
		}
	}
	return sb.String(), nil
}
