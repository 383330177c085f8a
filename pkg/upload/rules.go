package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/dslipak/pdf"

	"ragdesk/pkg/format"
)

const DefaultMaxSize = "16MiB"

var DefaultExtensions = []string{"pdf", "txt", "md"}

type Reason int

const (
	ReasonType Reason = iota + 1
	ReasonSize
	ReasonUnreadable
)

// RejectionError is a client-side validation failure for one file.
type RejectionError struct {
	Name    string
	Reason  Reason
	MaxSize int64
}

func (e *RejectionError) Error() string {
	switch e.Reason {
	case ReasonType:
		return "File type not supported: " + e.Name
	case ReasonSize:
		return fmt.Sprintf("File too large: %s (max %s)", e.Name, format.Bytes(e.MaxSize))
	case ReasonUnreadable:
		return "File is not a readable PDF: " + e.Name
	default:
		return "File rejected: " + e.Name
	}
}

// Rules is the client-side admission policy for uploads.
type Rules struct {
	Extensions []string
	MaxSize    int64
	// VerifyPDF additionally requires .pdf files to parse as PDF.
	VerifyPDF bool
}

func DefaultRules() Rules {
	size, _ := units.RAMInBytes(DefaultMaxSize)
	return Rules{
		Extensions: append([]string(nil), DefaultExtensions...),
		MaxSize:    size,
	}
}

// NewRules builds Rules from config values. maxSize accepts human sizes such
// as "16MiB" or "16MB", both read as binary units.
func NewRules(extensions []string, maxSize string, verifyPDF bool) (Rules, error) {
	size, err := units.RAMInBytes(maxSize)
	if err != nil {
		return Rules{}, fmt.Errorf("invalid max upload size %q: %w", maxSize, err)
	}
	if size <= 0 {
		return Rules{}, fmt.Errorf("max upload size must be positive")
	}
	if len(extensions) == 0 {
		return Rules{}, fmt.Errorf("at least one allowed extension is required")
	}

	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		normalized = append(normalized, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
	}

	return Rules{Extensions: normalized, MaxSize: size, VerifyPDF: verifyPDF}, nil
}

// Extension returns the lower-cased text after the last dot in name.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func (r Rules) allows(ext string) bool {
	for _, allowed := range r.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Validate returns a *RejectionError when f may not be uploaded. The type
// check runs first, so a file failing both checks reports its type.
func (r Rules) Validate(f File) error {
	ext := Extension(f.Name())
	if !r.allows(ext) {
		return &RejectionError{Name: f.Name(), Reason: ReasonType}
	}

	if f.Size() > r.MaxSize {
		return &RejectionError{Name: f.Name(), Reason: ReasonSize, MaxSize: r.MaxSize}
	}

	if r.VerifyPDF && ext == "pdf" {
		if err := checkPDF(f); err != nil {
			return &RejectionError{Name: f.Name(), Reason: ReasonUnreadable}
		}
	}

	return nil
}

func checkPDF(f File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	ra, ok := rc.(io.ReaderAt)
	size := f.Size()
	if !ok {
		data, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		ra = bytes.NewReader(data)
		size = int64(len(data))
	}

	reader, err := pdf.NewReader(ra, size)
	if err != nil {
		return err
	}
	if reader.NumPage() == 0 {
		return errors.New("pdf has no pages")
	}
	return nil
}
