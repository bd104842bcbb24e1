// Package tui is the terminal rendition of the bill form: one row per room,
// a path prompt, a generate action with a progress bar, and a status line.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/billdoc/internal/assembler"
	"github.com/dgallion1/billdoc/internal/layout"
	"github.com/dgallion1/billdoc/internal/preview"
	"github.com/dgallion1/billdoc/internal/slots"
)

const formTitle = "Bill Document Generator"

const (
	statusReady      = "Ready"
	statusGenerating = "Generating document..."
	msgNoImages      = "Please select at least one bill screenshot."
)

// mode is which input currently owns the keyboard.
type mode int

const (
	modeBrowse      mode = iota // moving between slot rows
	modeSlotPath                // typing an image path for the highlighted slot
	modeDestination             // typing the output path
	modeGenerating              // assembler running, keys ignored
)

type progressMsg int

// progressBuffer bounds queued progress ticks during a generation.
const progressBuffer = 4

type generatedMsg struct {
	res *assembler.Result
	err error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF")).
			MarginBottom(1)
	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
	labelStyle = lipgloss.NewStyle().Bold(true).Width(16)
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).MarginTop(1)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF6B6B")).
			Padding(0, 1).
			MarginTop(1)
)

// Form is the bubbletea model. It owns a slot collector and hands a snapshot
// of it to the assembler when the user generates.
type Form struct {
	collector *slots.Collector
	asm       *assembler.Assembler
	log       *slog.Logger

	cursor  int
	mode    mode
	input   textinput.Model
	bar     progress.Model
	percent float64
	status  string
	message string
	events  <-chan tea.Msg
}

// New builds a form over collector. Pre-filled slots are shown as selected.
func New(collector *slots.Collector, asm *assembler.Assembler, log *slog.Logger) *Form {
	if log == nil {
		log = slog.Default()
	}
	ti := textinput.New()
	ti.CharLimit = 1024
	ti.Width = 60

	return &Form{
		collector: collector,
		asm:       asm,
		log:       log,
		input:     ti,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		status:    statusReady,
	}
}

// Run starts the form full screen and blocks until the user quits.
func Run(f *Form) error {
	_, err := tea.NewProgram(f, tea.WithAltScreen()).Run()
	return err
}

func (f *Form) Init() tea.Cmd {
	return nil
}

func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.bar.Width = max(20, min(80, msg.Width-4))
		return f, nil
	case progressMsg:
		f.percent = float64(msg) / 100
		return f, waitFor(f.events)
	case generatedMsg:
		f.finishGenerate(msg)
		return f, nil
	case tea.KeyMsg:
		return f.handleKey(msg)
	}
	return f, nil
}

func (f *Form) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return f, tea.Quit
	}

	// Any key dismisses the message box.
	if f.message != "" && f.mode == modeBrowse {
		f.message = ""
		return f, nil
	}

	switch f.mode {
	case modeGenerating:
		return f, nil
	case modeSlotPath, modeDestination:
		return f.handleInputKey(msg)
	}

	switch key {
	case "q":
		return f, tea.Quit
	case "up", "k":
		if f.cursor > 0 {
			f.cursor--
		}
	case "down", "j":
		if f.cursor < f.collector.Len()-1 {
			f.cursor++
		}
	case "enter":
		current := ""
		if sl, ok := f.collector.Slot(f.cursor); ok {
			current = sl.Path
		}
		return f, f.prompt(modeSlotPath, current, "path/to/bill.png")
	case "g":
		if !f.collector.HasAnyFilled() {
			f.message = msgNoImages
			return f, nil
		}
		return f, f.prompt(modeDestination, "", "bills.docx")
	}
	return f, nil
}

func (f *Form) prompt(m mode, value, placeholder string) tea.Cmd {
	f.mode = m
	f.input.SetValue(value)
	f.input.Placeholder = placeholder
	f.input.CursorEnd()
	return f.input.Focus()
}

func (f *Form) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		f.closePrompt()
		return f, nil
	case "enter":
		value := strings.TrimSpace(f.input.Value())
		m := f.mode
		f.closePrompt()
		if m == modeSlotPath {
			f.selectImage(value)
			return f, nil
		}
		return f, f.startGenerate(value)
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

func (f *Form) closePrompt() {
	f.mode = modeBrowse
	f.input.Blur()
	f.input.SetValue("")
}

// selectImage loads path into the highlighted slot. A rejected file leaves
// the slot as it was.
func (f *Form) selectImage(path string) {
	if path == "" {
		return
	}
	if !preview.IsSupportedExtension(path) {
		f.message = fmt.Sprintf("Unsupported file type: %s", filepath.Ext(path))
		return
	}
	if err := f.collector.Set(f.cursor, path); err != nil {
		f.log.Warn("image rejected", "slot", f.cursor, "path", path, "error", err)
		f.message = "Failed to load image: " + err.Error()
		return
	}
	f.status = fmt.Sprintf("%s: %s selected", layout.RoomLabel(f.cursor), filepath.Base(path))
}

func (f *Form) startGenerate(dest string) tea.Cmd {
	if dest != "" && filepath.Ext(dest) == "" {
		dest += ".docx"
	}
	snap := f.collector.Snapshot()
	// One slot beyond the progress buffer is kept for the result.
	ch := make(chan tea.Msg, progressBuffer+1)
	f.events = ch
	f.mode = modeGenerating
	f.percent = 0
	f.status = statusGenerating

	go func() {
		defer close(ch)
		res, err := f.asm.Generate(snap, dest, func(pct int) {
			// Sole sender, so len only shrinks under us. A slow reader
			// loses intermediate ticks, never the result.
			if len(ch) < progressBuffer {
				ch <- progressMsg(pct)
			}
		})
		ch <- generatedMsg{res: res, err: err}
	}()
	return waitFor(ch)
}

func waitFor(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (f *Form) finishGenerate(msg generatedMsg) {
	f.mode = modeBrowse
	f.events = nil

	switch {
	case errors.Is(msg.err, assembler.ErrNoDestination):
		f.percent = 0
		f.status = statusReady
	case errors.Is(msg.err, assembler.ErrNoImagesSelected):
		f.percent = 0
		f.status = statusReady
		f.message = msgNoImages
	case msg.err != nil:
		f.percent = 0
		f.status = statusReady
		f.message = "Failed to generate document: " + msg.err.Error()
	default:
		f.percent = 1
		f.status = "Document saved to " + msg.res.Path
		if len(msg.res.Warnings) > 0 {
			lines := make([]string, 0, len(msg.res.Warnings)+1)
			lines = append(lines, "Some images could not be added:")
			for _, w := range msg.res.Warnings {
				lines = append(lines, "  "+w.Error())
			}
			f.message = strings.Join(lines, "\n")
		}
	}
}

func (f *Form) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(formTitle))
	b.WriteString("\n")

	filled := 0
	for _, sl := range f.collector.Slots() {
		marker := "  "
		if sl.Index == f.cursor {
			marker = cursorStyle.Render("> ")
		}
		label := labelStyle.Render(layout.RoomLabel(sl.Index) + " Bill:")
		var state string
		if sl.Filled() {
			filled++
			state = filepath.Base(sl.Path)
			if sl.Preview != nil {
				state += dimStyle.Render(fmt.Sprintf("  %dx%d", sl.Preview.Width, sl.Preview.Height))
			}
		} else {
			state = emptyStyle.Render("No image selected")
		}
		fmt.Fprintf(&b, "%s%s %s\n", marker, label, state)
	}

	if filled > 0 {
		pages := layout.PageCount(filled, f.asm.Config().ImagesPerPage)
		b.WriteString(dimStyle.Render(fmt.Sprintf("\n%d image(s) on %d page(s)", filled, pages)))
		b.WriteString("\n")
	}

	switch f.mode {
	case modeSlotPath:
		fmt.Fprintf(&b, "\n%s image: %s\n", layout.RoomLabel(f.cursor), f.input.View())
	case modeDestination:
		fmt.Fprintf(&b, "\nSave document as: %s\n", f.input.View())
	}

	b.WriteString("\n")
	b.WriteString(f.bar.ViewAs(f.percent))
	b.WriteString("\n")
	b.WriteString(f.status)

	if f.message != "" {
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(f.message))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(f.help()))
	return b.String()
}

func (f *Form) help() string {
	switch f.mode {
	case modeSlotPath, modeDestination:
		return "enter confirm • esc cancel"
	case modeGenerating:
		return "ctrl+c quit"
	}
	if f.message != "" {
		return "any key dismiss"
	}
	return "↑/↓ move • enter select image • g generate • q quit"
}
