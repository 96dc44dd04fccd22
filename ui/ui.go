package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"bleproximity/history"
	"bleproximity/proximity"
	"bleproximity/scanner"
)

const (
	refreshInterval = time.Second
	chartLabelWidth = 8
)

// Source is the live state the UI renders and the actions it can trigger.
// *monitor.Monitor satisfies it.
type Source interface {
	Toggle(ctx context.Context) error
	Clear()
	Scanning() bool
	Snapshot() []history.Snapshot
	Latest() (proximity.Tally, time.Time)
	Devices() []scanner.DeviceState
	Status() scanner.Status
	Pending() int
	Retention() time.Duration
	Subscribe(fn func()) (unsubscribe func())
}

// App is the terminal UI application.
type App struct {
	src    Source
	demo   bool
	logger *slog.Logger

	app      *tview.Application
	header   *tview.TextView
	counters map[proximity.Category]*tview.TextView
	chart    *tview.TextView
	table    *tview.Table
	footer   *tview.TextView
	devices  []scanner.DeviceState

	detail      *tview.TextView
	pages       *tview.Pages
	detailShown bool
}

// New creates an App rendering src.
func New(src Source, demo bool, logger *slog.Logger) *App {
	return &App{
		src:      src,
		demo:     demo,
		logger:   logger,
		counters: make(map[proximity.Category]*tview.TextView, 3),
	}
}

// Run starts the TUI event loop and blocks until the user quits or ctx
// is cancelled. Scanning starts as soon as the UI is up.
func (a *App) Run(ctx context.Context) error {
	a.app = tview.NewApplication()

	a.buildHeader()
	a.buildCounters()
	a.buildChart()
	a.buildTable()
	a.buildFooter()
	a.buildDetail()

	counterRow := tview.NewFlex()
	for _, cat := range proximity.Categories() {
		counterRow.AddItem(a.counters[cat], 0, 1, false)
	}

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.header, 4, 0, false).
		AddItem(counterRow, 5, 0, false).
		AddItem(a.chart, 6, 0, false).
		AddItem(a.table, 0, 1, true).
		AddItem(a.footer, 1, 0, false)

	a.pages = tview.NewPages().
		AddPage("main", layout, true, true).
		AddPage("detail", a.buildDetailModal(), true, false)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc:
			if a.detailShown {
				a.hideDetail()
				return nil
			}
			a.app.Stop()
			return nil
		case tcell.KeyEnter:
			if a.detailShown {
				a.hideDetail()
				return nil
			}
			a.showDetail()
			return nil
		case tcell.KeyRune:
			if a.detailShown {
				return nil
			}
			switch event.Rune() {
			case 'q', 'Q':
				a.app.Stop()
				return nil
			case 's', 'S':
				go a.toggle(ctx)
				return nil
			case 'c', 'C':
				go a.src.Clear()
				return nil
			}
		}
		return event
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe := watch(runCtx, a.src, func() {
		a.app.QueueUpdateDraw(a.refresh)
	})
	defer unsubscribe()

	go a.autoRefresh(runCtx)
	go func() {
		<-runCtx.Done()
		a.app.Stop()
	}()

	go a.toggle(ctx)

	a.refresh()
	a.app.SetRoot(a.pages, true)
	return a.app.Run()
}

// watch calls draw after changes in src until ctx ends. Notifications
// arriving while a draw is queued collapse into one, and the notifying
// goroutine never waits on draw: once the event loop has stopped, queued
// draws block forever.
func watch(ctx context.Context, src Source, draw func()) (unsubscribe func()) {
	pending := make(chan struct{}, 1)
	unsubscribe = src.Subscribe(func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
				draw()
			}
		}
	}()
	return unsubscribe
}

func (a *App) toggle(ctx context.Context) {
	if err := a.src.Toggle(ctx); err != nil {
		a.logger.Warn("toggle scanning", "error", err)
		a.app.QueueUpdateDraw(func() {
			a.footer.SetText(fmt.Sprintf(" [%s]✗ %s[-]", colorRed, a.src.Status().Message))
		})
	}
}

// refresh redraws every panel from the source. Must run on the UI goroutine.
func (a *App) refresh() {
	now := time.Now()
	a.devices = a.src.Devices()
	a.updateHeader(now)
	a.updateCounters()
	a.updateChart(now)
	a.updateTable(now)
}

// autoRefresh keeps the relative times and pending count moving between cycles.
func (a *App) autoRefresh(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				now := time.Now()
				a.updateHeader(now)
				a.updateChart(now)
			})
		}
	}
}

// ── Header ──────────────────────────────────────────────────────────────────

func (a *App) buildHeader() {
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetWordWrap(false)

	a.header.
		SetBorder(true).
		SetBorderColor(tcell.GetColor(colorMagenta)).
		SetTitle(fmt.Sprintf(" [%s]◈[-] [%s]BLE[-][%s]//[-][%s]PROXIMITY[-] [%s]◈[-] ",
			colorHotPink, colorCyan, colorMagenta, colorCyan, colorHotPink)).
		SetTitleAlign(tview.AlignCenter).
		SetBorderPadding(0, 0, 1, 1)
}

func (a *App) updateHeader(now time.Time) {
	mode := fmt.Sprintf("[%s]◉ LIVE[-]", colorGreen)
	if a.demo {
		mode = fmt.Sprintf("[%s]◉ DEMO[-]", colorOrange)
	}

	st := a.src.Status()
	stateColor := colorGreen
	switch {
	case st.Err != nil:
		stateColor = colorRed
	case st.State == scanner.StateScanning:
		stateColor = colorCyan
	}

	message := st.Message
	if a.src.Scanning() {
		if n := a.src.Pending(); n > 0 && message == "scanning..." {
			message = fmt.Sprintf("scanning... %d so far", n)
		}
	}

	_, last := a.src.Latest()
	line := fmt.Sprintf(
		"%s  [%s]│[-]  [%s]State:[-] [%s]%s[-]  [%s]│[-]  [%s]%s[-]  [%s]│[-]  [%s]Updated:[-] [%s]%s[-] [%s](%s)[-]",
		mode, colorDim,
		colorDim, stateColor, strings.ToUpper(st.State.String()), colorDim,
		stateColor, message, colorDim,
		colorDim, colorCyan, clock(last), colorMuted, since(now, last),
	)
	a.header.SetText(line)
}

// ── Counters ────────────────────────────────────────────────────────────────

func (a *App) buildCounters() {
	for _, cat := range proximity.Categories() {
		tv := tview.NewTextView().
			SetDynamicColors(true).
			SetTextAlign(tview.AlignCenter)
		tv.SetBorder(true).
			SetBorderColor(tcell.GetColor(categoryColor(cat))).
			SetTitle(fmt.Sprintf(" [%s]%s[-] ", categoryColor(cat), strings.ToUpper(cat.Label()))).
			SetTitleAlign(tview.AlignCenter)
		a.counters[cat] = tv
	}
}

func (a *App) updateCounters() {
	tally, _ := a.src.Latest()
	for _, cat := range proximity.Categories() {
		a.counters[cat].SetText(fmt.Sprintf("\n[%s::b]%d[-::-]", categoryColor(cat), tally.Count(cat)))
	}
}

// ── Chart ───────────────────────────────────────────────────────────────────

func (a *App) buildChart() {
	a.chart = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)

	a.chart.
		SetBorder(true).
		SetBorderColor(tcell.GetColor(colorMagenta)).
		SetTitleAlign(tview.AlignLeft).
		SetBorderPadding(0, 0, 1, 1)
}

func (a *App) updateChart(now time.Time) {
	retention := a.src.Retention()
	a.chart.SetTitle(fmt.Sprintf(" [%s]LAST %s[-] ", colorHotPink, strings.TrimPrefix(ago(retention), "-")))

	_, _, width, _ := a.chart.GetInnerRect()
	width -= chartLabelWidth
	if width < 10 {
		width = 60
	}

	c := renderChart(a.src.Snapshot(), now, retention, width)
	var b strings.Builder
	for _, cat := range proximity.Categories() {
		fmt.Fprintf(&b, "[%s]%-*s%s[-]\n", categoryColor(cat), chartLabelWidth, cat.Label(), c.series[cat])
	}
	fmt.Fprintf(&b, "[%s]%*s%s[-]", colorDim, chartLabelWidth, fmt.Sprintf("max %d ", c.peak), c.axis)
	a.chart.SetText(b.String())
}

// ── Table ───────────────────────────────────────────────────────────────────

func (a *App) buildTable() {
	a.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0).
		SetSeparator(tview.Borders.Vertical)

	a.table.
		SetBorder(true).
		SetBorderColor(tcell.GetColor(colorMagenta)).
		SetTitle(fmt.Sprintf(" [%s]DEVICES[-] ", colorHotPink)).
		SetTitleAlign(tview.AlignLeft).
		SetBorderPadding(0, 0, 1, 1)

	headers := []struct {
		text  string
		exp   int
		align int
	}{
		{"▌SIGNAL▐", 0, tview.AlignLeft},
		{"dBm", 0, tview.AlignRight},
		{"RANGE", 0, tview.AlignLeft},
		{"SPARK", 0, tview.AlignLeft},
		{"NAME", 1, tview.AlignLeft},
		{"ADDRESS", 0, tview.AlignLeft},
		{"VENDOR", 0, tview.AlignLeft},
		{"SEEN", 0, tview.AlignRight},
	}
	for i, h := range headers {
		a.table.SetCell(0, i, tview.NewTableCell(" "+h.text+" ").
			SetTextColor(tcell.GetColor(colorMagenta)).
			SetBackgroundColor(tcell.GetColor(colorHeaderBg)).
			SetSelectable(false).
			SetExpansion(h.exp).
			SetAlign(h.align).
			SetAttributes(tcell.AttrBold))
	}
}

func (a *App) updateTable(now time.Time) {
	for r := a.table.GetRowCount() - 1; r >= 1; r-- {
		a.table.RemoveRow(r)
	}

	_, last := a.src.Latest()
	a.table.SetTitle(fmt.Sprintf(" [%s]DEVICES[-] [%s](%d)[-] ", colorHotPink, colorMuted, len(a.devices)))

	for i, d := range a.devices {
		row := i + 1
		rowBg := tcell.ColorDefault
		if d.IsNew(now) {
			rowBg = tcell.GetColor(colorDarkMagenta)
		}
		stale := !last.IsZero() && d.LastSeen.Before(last)

		bars, barColor := signalBars(d.RSSI)
		catColor := categoryColor(d.Category)
		if stale {
			barColor, catColor = colorDim, colorDim
		}
		cell := func(col int, text, color string) *tview.TableCell {
			c := tview.NewTableCell(text).
				SetTextColor(tcell.GetColor(color)).
				SetBackgroundColor(rowBg)
			a.table.SetCell(row, col, c)
			return c
		}

		cell(0, barString(bars), barColor)
		cell(1, fmt.Sprintf("%d", d.RSSI), barColor).SetAlign(tview.AlignRight)
		cell(2, d.Category.Label(), catColor)
		cell(3, d.Sparkline(), colorCyan)

		name := tview.Escape(displayName(d.Name))
		nameColor := colorCyan
		if d.Name == "" {
			nameColor = colorDim
		}
		if d.IsNew(now) {
			name = fmt.Sprintf("[%s]NEW[-] %s", colorHotPink, name)
		}
		cell(4, name, nameColor).SetExpansion(1)

		cell(5, d.ID, colorMuted)

		vendorColor := colorGreen
		if d.Vendor == scanner.VendorUnknown || d.Vendor == scanner.VendorRandom {
			vendorColor = colorMuted
		}
		cell(6, d.Vendor, vendorColor)
		cell(7, since(now, d.LastSeen), colorMuted).SetAlign(tview.AlignRight)
	}
}

// ── Detail Panel ────────────────────────────────────────────────────────────

func (a *App) buildDetail() {
	a.detail = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)

	a.detail.
		SetBorder(true).
		SetBorderColor(tcell.GetColor(colorCyan)).
		SetTitle(fmt.Sprintf(" [%s]◈[-] [%s]DEVICE DETAIL[-] [%s]◈[-] ",
			colorHotPink, colorCyan, colorHotPink)).
		SetTitleAlign(tview.AlignCenter).
		SetBorderPadding(1, 1, 2, 2)
}

func (a *App) buildDetailModal() *tview.Flex {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(a.detail, 16, 0, true).
			AddItem(nil, 0, 1, false), 70, 0, true).
		AddItem(nil, 0, 1, false)
}

func (a *App) showDetail() {
	row, _ := a.table.GetSelection()
	if row < 1 || row > len(a.devices) {
		return
	}
	d := a.devices[row-1]

	a.detail.SetText(detailText(d))
	a.detailShown = true
	a.pages.ShowPage("detail")
	a.app.SetFocus(a.detail)
}

func detailText(d scanner.DeviceState) string {
	var b strings.Builder
	writeLine := func(label, value, color string) {
		fmt.Fprintf(&b, "  [%s]%-14s[-]  [%s]%s[-]\n", colorDim, label, color, value)
	}

	_, barColor := signalBars(d.RSSI)
	b.WriteString("\n")
	writeLine("NAME", tview.Escape(displayName(d.Name)), colorCyan)
	writeLine("ADDRESS", d.ID, colorMuted)
	writeLine("VENDOR", d.Vendor, colorGreen)
	writeLine("SIGNAL", fmt.Sprintf("%d dBm  (min %d / max %d)", d.RSSI, d.MinRSSI, d.MaxRSSI), barColor)
	writeLine("RANGE", d.Category.Label(), categoryColor(d.Category))
	if spark := d.Sparkline(); spark != "" {
		writeLine("HISTORY", spark, colorCyan)
	}
	writeLine("FIRST SEEN", clock(d.FirstSeen), colorMuted)
	writeLine("LAST SEEN", clock(d.LastSeen), colorMuted)
	fmt.Fprintf(&b, "\n  [%s]Press Esc or Enter to close[-]", colorDim)
	return b.String()
}

func (a *App) hideDetail() {
	a.detailShown = false
	a.pages.HidePage("detail")
	a.app.SetFocus(a.table)
}

// ── Footer ──────────────────────────────────────────────────────────────────

func (a *App) buildFooter() {
	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	a.footer.SetText(fmt.Sprintf(
		" [%s][S][-][%s]tart/stop  [%s][C][-][%s]lear  [%s][Enter][-][%s] Detail  [%s][↑↓][-][%s] Navigate  [%s][Q][-][%s]uit[-]",
		colorCyan, colorMuted,
		colorCyan, colorMuted,
		colorCyan, colorMuted,
		colorCyan, colorMuted,
		colorCyan, colorMuted,
	))
}
