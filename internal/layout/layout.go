package layout

import (
	"fmt"
	"math"
	"strings"
)

// Orientation of the single document section.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Unit conversions used by the docx writer.
const (
	TwipsPerInch = 1440
	EMUPerInch   = 914400

	// LabelReserve is cut from each image dimension so the room label fits
	// inside the nominal cell.
	LabelReserve = 0.5
)

// PageSize is a portrait paper size in twips.
type PageSize struct {
	Name   string
	Width  int
	Height int
}

var pageSizes = map[string]PageSize{
	"letter": {Name: "letter", Width: 12240, Height: 15840},
	"a4":     {Name: "a4", Width: 11906, Height: 16838},
}

// Config is the immutable set of layout parameters for one run.
type Config struct {
	Orientation Orientation
	PageSize    string

	// Inches.
	ScreenshotWidth   float64
	ScreenshotHeight  float64
	HorizontalSpacing float64
	PageMargins       float64

	ImagesPerPage int

	// Points.
	LabelFontSize  int
	HeaderFontSize int

	Title     string
	SlotCount int
}

// DefaultConfig matches the layout the bill generator has always used:
// landscape letter, two 4x6in screenshots per page.
func DefaultConfig() Config {
	return Config{
		Orientation:       Landscape,
		PageSize:          "letter",
		ScreenshotWidth:   4.0,
		ScreenshotHeight:  6.0,
		HorizontalSpacing: 1.0,
		PageMargins:       0.5,
		ImagesPerPage:     2,
		LabelFontSize:     12,
		HeaderFontSize:    14,
		Title:             "Monthly Bills Summary",
		SlotCount:         8,
	}
}

// Validate rejects configurations the assembler cannot lay out.
func (c Config) Validate() error {
	switch c.Orientation {
	case Portrait, Landscape:
	default:
		return fmt.Errorf("unknown orientation: %q", c.Orientation)
	}
	if _, ok := pageSizes[strings.ToLower(c.PageSize)]; !ok {
		return fmt.Errorf("unknown page size: %q", c.PageSize)
	}
	if c.ScreenshotWidth <= LabelReserve || c.ScreenshotHeight <= LabelReserve {
		return fmt.Errorf("screenshot size %.2fx%.2fin leaves no room for the image after the %.1fin label reserve",
			c.ScreenshotWidth, c.ScreenshotHeight, LabelReserve)
	}
	if c.PageMargins < 0 || c.HorizontalSpacing < 0 {
		return fmt.Errorf("margins and spacing must not be negative")
	}
	if c.ImagesPerPage < 1 {
		return fmt.Errorf("images per page must be at least 1, got %d", c.ImagesPerPage)
	}
	if c.SlotCount < 1 {
		return fmt.Errorf("slot count must be at least 1, got %d", c.SlotCount)
	}
	if c.LabelFontSize <= 0 || c.HeaderFontSize <= 0 {
		return fmt.Errorf("font sizes must be positive")
	}
	w, h := c.PrintableArea()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("margins of %.2fin leave no printable area", c.PageMargins)
	}
	return nil
}

// PageDimensions returns the section page width and height in twips.
// Landscape swaps the portrait dimensions so the printable area is unchanged.
func (c Config) PageDimensions() (width, height int) {
	ps, ok := pageSizes[strings.ToLower(c.PageSize)]
	if !ok {
		ps = pageSizes["letter"]
	}
	if c.Orientation == Landscape {
		return ps.Height, ps.Width
	}
	return ps.Width, ps.Height
}

// MarginTwips is the margin applied to all four page edges.
func (c Config) MarginTwips() int {
	return InchesToTwips(c.PageMargins)
}

// PrintableArea is the page size minus margins, in twips.
func (c Config) PrintableArea() (width, height int) {
	w, h := c.PageDimensions()
	m := c.MarginTwips()
	return w - 2*m, h - 2*m
}

// ColumnWidth is the fixed width of every grid column, in twips.
func (c Config) ColumnWidth() int {
	return InchesToTwips(c.ScreenshotWidth)
}

// GridWidth is the width of one page's grid including the spacing between
// columns, in twips.
func (c Config) GridWidth() int {
	gaps := c.ImagesPerPage - 1
	if gaps < 0 {
		gaps = 0
	}
	return c.ImagesPerPage*c.ColumnWidth() + gaps*InchesToTwips(c.HorizontalSpacing)
}

// GridFits reports whether a full row of images fits the printable width.
func (c Config) GridFits() bool {
	w, _ := c.PrintableArea()
	return c.GridWidth() <= w
}

// ImageExtent is the embedded image size in EMU.
func (c Config) ImageExtent() (cx, cy int64) {
	return InchesToEMU(c.ScreenshotWidth - LabelReserve), InchesToEMU(c.ScreenshotHeight - LabelReserve)
}

func InchesToTwips(in float64) int {
	return int(math.Round(in * TwipsPerInch))
}

func InchesToEMU(in float64) int64 {
	return int64(math.Round(in * EMUPerInch))
}

// PointsToHalfPoints converts a font size to the w:sz unit.
func PointsToHalfPoints(pt int) string {
	return fmt.Sprintf("%d", pt*2)
}
