/*
hmi.go Terminal viewer for a solved study. Each result table is a page; Tab cycles pages
and q quits.
*/

package hmi

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell"
	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"github.com/ohowland/cgc_powerflow/internal/pkg/report"
	"github.com/rivo/tview"
)

const logo = `
 __________________________________________
 ___/\/\/\/\/\____/\/\/\/\/\____/\/\/\/\/\_
 _/\/\__________/\/\__________/\/\_________
 _/\/\__________/\/\__/\/\/\__/\/\_________
 _/\/\__________/\/\____/\/\__/\/\_________
 ___/\/\/\/\/\____/\/\/\/\/\____/\/\/\/\/\_
 __________________________________________
`

// HMI builds one page.
type HMI func(*tview.Pages) (title string, content tview.Primitive)

// Viewer holds the pages of one study.
type Viewer struct {
	app    *tview.Application
	pages  *tview.Pages
	titles []string
	index  int
}

// New builds the splash, summary and one page per result table.
func New(net network.Network, res powerflow.Results) *Viewer {
	hmis := []HMI{Splash, Summary(net, res)}
	for _, t := range report.Tables(net, res) {
		hmis = append(hmis, TablePage(t))
	}

	v := &Viewer{app: tview.NewApplication(), pages: tview.NewPages()}
	for _, hmi := range hmis {
		title, primitive := hmi(v.pages)
		v.pages.AddPage(title, primitive, true, title == "Splash")
		v.titles = append(v.titles, title)
	}
	return v
}

// Titles returns the page titles in cycle order.
func (v *Viewer) Titles() []string {
	return v.titles
}

// Pages returns the page container.
func (v *Viewer) Pages() *tview.Pages {
	return v.pages
}

// Next shows the following page and returns its title.
func (v *Viewer) Next() string {
	v.index = (v.index + 1) % len(v.titles)
	v.pages.SwitchToPage(v.titles[v.index])
	return v.titles[v.index]
}

func (v *Viewer) capture(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyTab:
		v.Next()
		return nil
	case event.Rune() == 'q':
		v.app.Stop()
		return nil
	}
	return event
}

// Run blocks until the user quits.
func (v *Viewer) Run() error {
	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.pages, 0, 1, true).
		AddItem(tview.NewTextView().SetText(" Tab: next page   q: quit"), 1, 0, false)
	v.app.SetInputCapture(v.capture)
	return v.app.SetRoot(layout, true).Run()
}

// Splash is the landing page.
func Splash(pages *tview.Pages) (title string, content tview.Primitive) {
	lines := strings.Split(logo, "\n")
	logoWidth := 0
	for _, line := range lines {
		if len(line) > logoWidth {
			logoWidth = len(line)
		}
	}
	logoBox := tview.NewTextView().SetTextColor(tcell.ColorBlue)
	fmt.Fprint(logoBox, logo)

	frame := tview.NewFrame(tview.NewBox()).
		SetBorders(0, 0, 0, 0, 0, 0).
		AddText("Composite Grid Controller Power Flow", true, tview.AlignCenter, tcell.ColorWhite).
		AddText("", true, tview.AlignCenter, tcell.ColorWhite).
		AddText("press tab", true, tview.AlignCenter, tcell.ColorDarkMagenta)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(tview.NewBox(), 0, 5, false).
		AddItem(tview.NewFlex().
			AddItem(tview.NewBox(), 0, 1, false).
			AddItem(logoBox, logoWidth, 1, true).
			AddItem(tview.NewBox(), 0, 1, false), len(lines), 1, true).
		AddItem(frame, 0, 10, false)

	return "Splash", flex
}

// Summary is the page with the network description and the power flow summary.
func Summary(net network.Network, res powerflow.Results) HMI {
	return func(pages *tview.Pages) (string, tview.Primitive) {
		var sb strings.Builder
		report.WriteNetwork(&sb, net)
		report.WriteSummary(&sb, net, res)

		text := tview.NewTextView().SetText(sb.String())
		text.SetBorder(true).SetTitle(" " + net.Name() + " ")
		return "Summary", text
	}
}

// TablePage shows one result table.
func TablePage(t report.Table) HMI {
	return func(pages *tview.Pages) (string, tview.Primitive) {
		table := NewTable(t)
		table.SetBorder(true).SetTitle(" " + t.Title + " ")
		return t.Title, table
	}
}

// NewTable renders a report table with a fixed header row and index column.
func NewTable(t report.Table) *tview.Table {
	table := tview.NewTable().SetFixed(1, 1)
	for column, cell := range t.Header {
		table.SetCell(0, column, tview.NewTableCell(cell).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for row, cells := range t.Rows {
		for column, cell := range cells {
			color := tcell.ColorWhite
			align := tview.AlignRight
			if column < 2 {
				color = tcell.ColorDarkCyan
				align = tview.AlignLeft
			}
			table.SetCell(row+1, column, tview.NewTableCell(cell).
				SetTextColor(color).
				SetAlign(align).
				SetSelectable(true))
		}
	}
	table.SetBorders(false).
		SetSelectable(true, false).
		SetSeparator(' ')
	return table
}
