package inspect

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// Outline is the page structure of a generated bills document.
type Outline struct {
	Title      string  `json:"title"`
	PageWidth  int     `json:"page_width"`
	PageHeight int     `json:"page_height"`
	Margins    Margins `json:"margins"`
	Pages      []Page  `json:"pages"`
}

// Margins in twips.
type Margins struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
	Right  int `json:"right"`
}

// Page is one header plus its image grid.
type Page struct {
	Number      int    `json:"number"`
	Header      string `json:"header"`
	HeaderBold  bool   `json:"header_bold"`
	BreakBefore bool   `json:"break_before"`
	Cells       []Cell `json:"cells"`
}

// Cell is one grid position. Empty cells have no label and no image.
type Cell struct {
	Label     string `json:"label,omitempty"`
	LabelBold bool   `json:"label_bold,omitempty"`
	HasImage  bool   `json:"has_image"`
	ImageCX   int64  `json:"image_cx,omitempty"`
	ImageCY   int64  `json:"image_cy,omitempty"`
}

// Empty reports whether nothing was placed in the cell.
func (c Cell) Empty() bool {
	return c.Label == "" && !c.HasImage
}

// Landscape reports whether the section is wider than it is tall.
func (o *Outline) Landscape() bool {
	return o.PageWidth > o.PageHeight
}

// Labels returns every non-empty cell label in document order.
func (o *Outline) Labels() []string {
	var out []string
	for _, p := range o.Pages {
		for _, c := range p.Cells {
			if c.Label != "" {
				out = append(out, c.Label)
			}
		}
	}
	return out
}

// Images counts embedded images across all pages.
func (o *Outline) Images() int {
	n := 0
	for _, p := range o.Pages {
		for _, c := range p.Cells {
			if c.HasImage {
				n++
			}
		}
	}
	return n
}

// ReadFile parses the .docx at path.
func ReadFile(path string) (*Outline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return Read(f, st.Size())
}

// Read parses a .docx from r.
func Read(r io.ReaderAt, size int64) (*Outline, error) {
	doc, err := docx.Parse(r, size)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	out := &Outline{}
	var (
		header     string
		headerBold bool
		pageBreak  bool
	)
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if hasPageBreak(it) {
				pageBreak = true
			}
			text := paragraphText(it)
			if text == "" {
				continue
			}
			if headingLevel(it) == 1 && out.Title == "" && len(out.Pages) == 0 {
				out.Title = text
				continue
			}
			header = text
			headerBold = paragraphBold(it)
		case *docx.Table:
			out.Pages = append(out.Pages, Page{
				Number:      len(out.Pages) + 1,
				Header:      header,
				HeaderBold:  headerBold,
				BreakBefore: pageBreak,
				Cells:       tableCells(it),
			})
			header, headerBold, pageBreak = "", false, false
		case *docx.SectPr:
			if it.PgSz != nil {
				out.PageWidth, out.PageHeight = it.PgSz.W, it.PgSz.H
			}
			if it.PgMar != nil {
				out.Margins = Margins{Top: it.PgMar.Top, Left: it.PgMar.Left, Bottom: it.PgMar.Bottom, Right: it.PgMar.Right}
			}
		}
	}
	return out, nil
}

func tableCells(t *docx.Table) []Cell {
	var cells []Cell
	for _, row := range t.TableRows {
		for _, tc := range row.TableCells {
			var c Cell
			var label []string
			for _, p := range tc.Paragraphs {
				if s := paragraphText(p); s != "" {
					label = append(label, s)
					c.LabelBold = c.LabelBold || paragraphBold(p)
				}
				for _, d := range drawings(p) {
					c.HasImage = true
					if d.Inline != nil && d.Inline.Extent != nil {
						c.ImageCX, c.ImageCY = d.Inline.Extent.CX, d.Inline.Extent.CY
					}
				}
			}
			c.Label = strings.Join(label, " ")
			cells = append(cells, c)
		}
	}
	return cells
}

func headingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	var level int
	if _, err := fmt.Sscanf(style, "heading%d", &level); err != nil {
		return 0
	}
	return level
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// paragraphBold is true when every text run in the paragraph is bold.
func paragraphBold(para *docx.Paragraph) bool {
	seen := false
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok || !runHasText(run) {
			continue
		}
		seen = true
		if run.RunProperties == nil || run.RunProperties.Bold == nil {
			return false
		}
	}
	return seen
}

func runHasText(run *docx.Run) bool {
	for _, rc := range run.Children {
		if t, ok := rc.(*docx.Text); ok && strings.TrimSpace(t.Text) != "" {
			return true
		}
	}
	return false
}

func hasPageBreak(para *docx.Paragraph) bool {
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if br, ok := rc.(*docx.BarterRabbet); ok && br.Type == "page" {
				return true
			}
		}
	}
	return false
}

func drawings(para *docx.Paragraph) []*docx.Drawing {
	var out []*docx.Drawing
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if d, ok := rc.(*docx.Drawing); ok {
				out = append(out, d)
			}
		}
	}
	return out
}
