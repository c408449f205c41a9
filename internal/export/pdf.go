package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"

	"github.com/dgallion1/resumer/internal/outline"
)

// PDFExporter renders summarized sections into PDF files in one directory.
type PDFExporter struct {
	dir string
	log *slog.Logger
	now func() time.Time
}

func NewPDFExporter(dir string, log *slog.Logger) *PDFExporter {
	return &PDFExporter{dir: dir, log: log, now: time.Now}
}

// Dir returns the output directory.
func (e *PDFExporter) Dir() string { return e.dir }

// Export writes the document and returns the path of the new file.
func (e *PDFExporter) Export(sections []outline.Section, filename, title string) (string, error) {
	name := SanitizeFilename(filename)
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	subtitle := fmt.Sprintf("%d sections, %d subsections. Generated %s",
		len(sections), outline.CountSubSections(sections), e.now().Format("2006-01-02 15:04"))
	pages := Layout(title, subtitle, sections)
	if n := unencodable(pages); n > 0 {
		e.log.Warn("text outside the WinAnsi character set will not render", "file", name, "runes", n)
	}

	spec, err := json.Marshal(pageSpec(pages))
	if err != nil {
		return "", fmt.Errorf("marshal page content: %w", err)
	}

	path := filepath.Join(e.dir, name)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if err := api.Create(nil, bytes.NewReader(spec), f, model.NewDefaultConfiguration()); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("render pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("move %s into place: %w", name, err)
	}

	e.log.Info("pdf exported", "path", path, "pages", len(pages), "sections", len(sections))
	return path, nil
}

// unencodable counts runes the core PDF fonts cannot draw. They only cover
// the Windows-1252 character set.
func unencodable(pages []Page) int {
	n := 0
	for _, p := range pages {
		for _, l := range p.Lines {
			for _, r := range l.Text {
				if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
					n++
				}
			}
		}
	}
	return n
}

// JSON page-content document understood by pdfcpu's create command.
type pdfDocument struct {
	Paper  string             `json:"paper"`
	Origin string             `json:"origin"`
	Pages  map[string]pdfPage `json:"pages"`
}

type pdfPage struct {
	Content pdfContent `json:"content"`
}

type pdfContent struct {
	Text []pdfText `json:"text,omitempty"`
}

type pdfText struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  pdfFont    `json:"font"`
}

type pdfFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func pageSpec(pages []Page) pdfDocument {
	doc := pdfDocument{
		Paper:  "A4P",
		Origin: "LowerLeft",
		Pages:  make(map[string]pdfPage, len(pages)),
	}
	for i, p := range pages {
		var content pdfContent
		for _, l := range p.Lines {
			if l.Text == "" {
				continue
			}
			spec := styles[l.Style]
			content.Text = append(content.Text, pdfText{
				Value: l.Text,
				Pos:   [2]float64{l.X, pageHeight - l.Y},
				Font:  pdfFont{Name: spec.font, Size: spec.size},
			})
		}
		content.Text = append(content.Text, pdfText{
			Value: fmt.Sprintf("%d / %d", i+1, len(pages)),
			Pos:   [2]float64{pageWidth/2 - 12, marginBottom / 2},
			Font:  pdfFont{Name: "Helvetica", Size: 9},
		})
		doc.Pages[strconv.Itoa(i+1)] = pdfPage{Content: content}
	}
	return doc
}
