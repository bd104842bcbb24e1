package layout

import "fmt"

// Placement is where one filled slot lands in the output document.
type Placement struct {
	Slot     int // 0-based slot index
	Sequence int // 0-based position among filled slots
	Page     int // 1-based page number
	Column   int // 0-based grid column
}

// Plan packs filled slots onto pages in the order given. Empty slots are
// simply absent from slotIndexes and never reserve a position.
func Plan(slotIndexes []int, perPage int) []Placement {
	if perPage < 1 {
		perPage = 1
	}
	out := make([]Placement, 0, len(slotIndexes))
	for seq, slot := range slotIndexes {
		out = append(out, Placement{
			Slot:     slot,
			Sequence: seq,
			Page:     seq/perPage + 1,
			Column:   seq % perPage,
		})
	}
	return out
}

// PageCount is ceil(filled / perPage).
func PageCount(filled, perPage int) int {
	if filled <= 0 || perPage < 1 {
		return 0
	}
	return (filled + perPage - 1) / perPage
}

// PageHeader is the centered line at the top of every page.
func PageHeader(page int) string {
	return fmt.Sprintf("Bills (Page %d)", page)
}

// RoomLabel is the cell label for a 0-based slot index.
func RoomLabel(slot int) string {
	return fmt.Sprintf("Room %d", slot+1)
}
