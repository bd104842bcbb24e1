package assembler

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/billdoc/internal/layout"
	"github.com/dgallion1/billdoc/internal/slots"
)

var (
	// ErrNoImagesSelected aborts generation before anything is written.
	ErrNoImagesSelected = errors.New("no images selected")
	// ErrNoDestination means the user dismissed the save prompt. Callers
	// treat it as a silent cancel.
	ErrNoDestination = errors.New("no destination selected")
)

// ImageEmbedError is a non-fatal failure to place one image. The cell is left
// empty and generation continues.
type ImageEmbedError struct {
	Slot int
	Path string
	Err  error
}

func (e *ImageEmbedError) Error() string {
	return fmt.Sprintf("room %d: embed %s: %s", e.Slot+1, filepath.Base(e.Path), e.Err)
}

func (e *ImageEmbedError) Unwrap() error {
	return e.Err
}

// WriteError is a fatal failure to persist the finished document.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %s", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ProgressFunc receives a percentage in [0, 100]. It is called from the
// generating goroutine.
type ProgressFunc func(percent int)

// Result summarizes a completed generation.
type Result struct {
	Path       string
	Pages      int
	Placed     int
	Warnings   []*ImageEmbedError
	Placements []layout.Placement
}

// Assembler lays out snapshots into paginated documents.
type Assembler struct {
	cfg layout.Config
	log *slog.Logger
}

func New(cfg layout.Config, log *slog.Logger) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{cfg: cfg, log: log}
}

// Config returns the layout the assembler was built with.
func (a *Assembler) Config() layout.Config {
	return a.cfg
}

// Generate builds the document for snap and writes it to dest.
func (a *Assembler) Generate(snap slots.Snapshot, dest string, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(int) {}
	}
	if snap.Len() == 0 {
		return nil, ErrNoImagesSelected
	}
	if dest == "" {
		return nil, ErrNoDestination
	}
	progress(10)

	log := a.log.With("dest", dest, "images", snap.Len())
	if !a.cfg.GridFits() {
		w, _ := a.cfg.PrintableArea()
		log.Warn("grid wider than printable area", "grid_twips", a.cfg.GridWidth(), "printable_twips", w)
	}

	doc, res := a.assemble(snap, progress)
	res.Path = dest

	if err := writeAtomic(doc, dest); err != nil {
		log.Error("write failed", "error", err)
		return nil, err
	}
	progress(100)

	log.Info("document generated", "pages", res.Pages, "placed", res.Placed, "warnings", len(res.Warnings))
	return res, nil
}

func (a *Assembler) assemble(snap slots.Snapshot, progress ProgressFunc) (*docx.Docx, *Result) {
	cfg := a.cfg
	doc := docx.New().WithDefaultTheme()

	// The default theme has no Heading1 style, so the run carries its own size.
	if cfg.Title != "" {
		doc.AddParagraph().Style("Heading1").
			AddText(cfg.Title).Bold().Size(layout.PointsToHalfPoints(cfg.HeaderFontSize + 4))
	}
	progress(30)

	placements := layout.Plan(snap.SlotIndexes(), cfg.ImagesPerPage)
	res := &Result{
		Pages:      layout.PageCount(len(placements), cfg.ImagesPerPage),
		Placements: placements,
	}

	var table *docx.Table
	for i, pl := range placements {
		if pl.Column == 0 {
			if pl.Sequence > 0 {
				doc.AddParagraph().AddPageBreaks()
			}
			table = a.startPage(doc, pl.Page)
		}

		entry := snap.Entries[i]
		cell := table.TableRows[0].TableCells[pl.Column]
		if err := a.placeImage(cell.Paragraphs[0], entry); err != nil {
			a.log.Warn("image not embedded", "slot", entry.Slot, "path", entry.Path, "error", err.Err)
			res.Warnings = append(res.Warnings, err)
		} else {
			res.Placed++
		}
		progress(30 + 70*(i+1)/len(placements))
	}

	w, h := cfg.PageDimensions()
	m := cfg.MarginTwips()
	doc.Document.Body.Items = append(doc.Document.Body.Items, &docx.SectPr{
		PgSz:  &docx.PgSz{W: w, H: h},
		PgMar: &docx.PgMar{Top: m, Left: m, Bottom: m, Right: m, Header: 720, Footer: 720},
	})
	return doc, res
}

// startPage emits the page header, a spacer and an empty 1 x N grid.
func (a *Assembler) startPage(doc *docx.Docx, page int) *docx.Table {
	cfg := a.cfg
	doc.AddParagraph().Justification("center").
		AddText(layout.PageHeader(page)).Bold().Size(layout.PointsToHalfPoints(cfg.HeaderFontSize))
	doc.AddParagraph()

	col := int64(cfg.ColumnWidth())
	widths := make([]int64, cfg.ImagesPerPage)
	for i := range widths {
		widths[i] = col
	}
	table := doc.AddTableTwips([]int64{0}, widths, col*int64(len(widths)), nil).Justification("center")
	// Every cell needs a paragraph to be valid, occupied or not.
	for _, cell := range table.TableRows[0].TableCells {
		cell.AddParagraph().Justification("center")
	}
	return table
}

// placeImage writes the label and image into p. On failure p is restored so
// the cell stays empty.
func (a *Assembler) placeImage(p *docx.Paragraph, e slots.Entry) *ImageEmbedError {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return &ImageEmbedError{Slot: e.Slot, Path: e.Path, Err: err}
	}

	n := len(p.Children)
	p.AddText(layout.RoomLabel(e.Slot) + "\n").Bold().Size(layout.PointsToHalfPoints(a.cfg.LabelFontSize))

	run, err := p.AddInlineDrawing(data)
	if err != nil {
		p.Children = p.Children[:n]
		return &ImageEmbedError{Slot: e.Slot, Path: e.Path, Err: err}
	}
	cx, cy := a.cfg.ImageExtent()
	for _, child := range run.Children {
		if d, ok := child.(*docx.Drawing); ok && d.Inline != nil {
			d.Inline.Size(cx, cy)
		}
	}
	return nil
}

// writeAtomic writes doc to a temp file beside dest and renames it into place.
func writeAtomic(doc *docx.Docx, dest string) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".billdoc-*.docx")
	if err != nil {
		return &WriteError{Path: dest, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := doc.WriteTo(tmp); err != nil {
		tmp.Close()
		cleanup()
		return &WriteError{Path: dest, Err: err}
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		cleanup()
		return &WriteError{Path: dest, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &WriteError{Path: dest, Err: err}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		cleanup()
		return &WriteError{Path: dest, Err: err}
	}
	return nil
}
