package documents

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
	ExportHTML ExportFormat = "html"
)

const exportSheet = "Documents"

var exportHeader = []string{"ID", "Name", "Type", "Size", "Bytes", "Chunks", "Uploaded", "Status"}

// FormatFor picks the export format from a file extension.
func FormatFor(path string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "csv":
		return ExportCSV, nil
	case "xlsx":
		return ExportXLSX, nil
	case "html", "htm":
		return ExportHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", filepath.Ext(path))
	}
}

func exportRecord(r Row) []string {
	return []string{
		string(r.ID),
		r.Filename,
		r.Type(),
		r.Size(),
		strconv.FormatInt(r.FileSize, 10),
		strconv.Itoa(r.Chunks),
		r.Uploaded(),
		r.Status(),
	}
}

// Export writes rows to w in the given format.
func Export(w io.Writer, rows []Row, f ExportFormat) error {
	switch f {
	case ExportCSV:
		return exportCSV(w, rows)
	case ExportXLSX:
		return exportXLSX(w, rows)
	case ExportHTML:
		return exportHTML(w, rows)
	default:
		return fmt.Errorf("unsupported export format: %s", f)
	}
}

// ExportFile writes rows to path, choosing the format from its extension.
func ExportFile(path string, rows []Row) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := Export(out, rows, f); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func exportCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(exportRecord(r)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func exportXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		rec := exportRecord(r)
		values := make([]any, len(rec))
		for j, v := range rec {
			values[j] = v
		}
		// Keep numeric columns numeric so the sheet can sum them.
		values[4] = r.FileSize
		values[5] = r.Chunks

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func element(a atom.Atom, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func tableRow(cell atom.Atom, values []string) *html.Node {
	tr := element(atom.Tr)
	for _, v := range values {
		tr.AppendChild(element(cell, text(v)))
	}
	return tr
}

func exportHTML(w io.Writer, rows []Row) error {
	tbody := element(atom.Tbody)
	if len(rows) == 0 {
		td := element(atom.Td, text(EmptyPlaceholder))
		td.Attr = append(td.Attr, html.Attribute{Key: "colspan", Val: strconv.Itoa(len(exportHeader))})
		tbody.AppendChild(element(atom.Tr, td))
	}
	for _, r := range rows {
		tbody.AppendChild(tableRow(atom.Td, exportRecord(r)))
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(element(atom.Html,
		element(atom.Head, element(atom.Title, text("Documents"))),
		element(atom.Body,
			element(atom.Table,
				element(atom.Thead, tableRow(atom.Th, exportHeader)),
				tbody,
			),
		),
	))

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}
