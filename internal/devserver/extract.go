package devserver

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"

	"ragdesk/pkg/upload"
)

const (
	ChunkSize    = 800
	ChunkOverlap = 150
)

type Chunk struct {
	Text     string
	Index    int
	StartPos int
	EndPos   int
}

// Chunker splits text into fixed-size character windows where consecutive
// windows share Overlap characters.
type Chunker struct {
	Size    int
	Overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if overlap >= size {
		overlap = 0
	}
	return &Chunker{Size: size, Overlap: overlap}
}

func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	step := c.Size - c.Overlap
	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + c.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Text:     string(runes[start:end]),
			Index:    len(chunks),
			StartPos: start,
			EndPos:   end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// extractText returns the indexable text of an uploaded file.
func extractText(filename string, data []byte) (string, error) {
	if upload.Extension(filename) == "pdf" {
		return extractPDF(data)
	}
	return string(data), nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var text strings.Builder
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text.WriteString(pageText(page))
		text.WriteString("\n")
	}
	return text.String(), nil
}

func pageText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		var words []string
		for _, t := range page.Content().Text {
			words = append(words, t.S)
		}
		return strings.Join(words, " ")
	}

	var lines []string
	for _, row := range rows {
		var words []string
		for _, word := range row.Content {
			if word.S != "" {
				words = append(words, word.S)
			}
		}
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
		}
	}
	return strings.Join(lines, "\n")
}
