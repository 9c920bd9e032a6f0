// Package ui renders the live session dashboard in the terminal.
package ui

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lowaak/pulsefit/internal/engine"
	"github.com/lowaak/pulsefit/internal/goutil"
	"github.com/lowaak/pulsefit/internal/zone"
)

const refreshInterval = 500 * time.Millisecond

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Dashboard is the single-page session view: live metrics on the left,
// today's quests and an event feed on the right.
type Dashboard struct {
	app     *tview.Application
	manager *engine.Manager
	logger  *log.Logger

	metricsPanel *tview.TextView
	graphPanel   *tview.TextView
	questsPanel  *tview.TextView
	eventView    *tview.TextView

	stopChan chan struct{}
}

func NewDashboard(app *tview.Application, manager *engine.Manager, logger *log.Logger) *Dashboard {
	if app == nil {
		panic("Dashboard: app cannot be nil")
	}
	if manager == nil {
		panic("Dashboard: manager cannot be nil")
	}
	if logger == nil {
		panic("Dashboard: logger cannot be nil")
	}
	return &Dashboard{
		app:      app,
		manager:  manager,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Run builds the widgets, starts the refresh loop and blocks in the tview
// event loop until the user quits.
func (d *Dashboard) Run() error {
	d.metricsPanel = tview.NewTextView().SetDynamicColors(true)
	d.metricsPanel.SetBorder(true).SetTitle(" Session ")

	d.graphPanel = tview.NewTextView().SetDynamicColors(true)
	d.graphPanel.SetBorder(true).SetTitle(" Heart Rate (last 60 s) ")

	d.questsPanel = tview.NewTextView().SetDynamicColors(true)
	d.questsPanel.SetBorder(true).SetTitle(" Daily Quests ")

	d.eventView = tview.NewTextView().SetDynamicColors(true).SetScrollable(false)
	d.eventView.SetBorder(true).SetTitle(" Events ")

	help := tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter)
	help.SetText("[yellow]S[white] Start  |  [yellow]F[white] Just-5-Min  |  [yellow]E[white] End  |  [yellow]Q[white] Quit")

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.metricsPanel, 0, 2, false).
		AddItem(d.graphPanel, 8, 0, false)
	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.questsPanel, 0, 1, false).
		AddItem(d.eventView, 0, 2, false)
	body := tview.NewFlex().
		AddItem(left, 0, 3, false).
		AddItem(right, 0, 2, false)
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, false).
		AddItem(help, 1, 0, false)

	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 's', 'S':
			d.startSession(false)
			return nil
		case 'f', 'F':
			d.startSession(true)
			return nil
		case 'e', 'E':
			d.endSession()
			return nil
		case 'q', 'Q':
			d.app.Stop()
			return nil
		}
		return event
	})

	d.renderQuests()
	d.renderIdle()
	d.event("Ready. Press S to start a session.")

	goutil.SafeGo(d.logger, func() { d.refreshLoop() })
	defer close(d.stopChan)

	return d.app.SetRoot(root, true).Run()
}

func (d *Dashboard) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.app.QueueUpdateDraw(func() {
				if stream := d.manager.State(); stream != nil {
					d.renderSession(stream.Latest())
				} else {
					d.renderIdle()
				}
			})
		}
	}
}

func (d *Dashboard) startSession(justFiveMin bool) {
	if err := d.manager.StartSession(justFiveMin); err != nil {
		d.event(fmt.Sprintf("[red]Could not start: %v", err))
		return
	}
	if justFiveMin {
		d.event("[green]Just-5-minute session started")
	} else {
		d.event("[green]Session started")
	}
	d.renderQuests()
}

func (d *Dashboard) endSession() {
	result, err := d.manager.EndSession()
	if err != nil {
		d.event(fmt.Sprintf("[red]Could not end: %v", err))
		return
	}

	w := result.Workout
	d.event(fmt.Sprintf("[green]Workout complete: %s, %d burn points, +%d XP",
		formatDuration(w.DurationSeconds), w.BurnPoints, result.XPEarned))
	if result.LeveledUp {
		d.event(fmt.Sprintf("[yellow]Level up! Now level %d", result.NewLevel))
	}
	if result.ShieldUsed {
		d.event("[yellow]A streak shield preserved your streak")
	}
	if w.EstimatedCalories != nil {
		d.event(fmt.Sprintf("~%d kcal (+%d EPOC)", *w.EstimatedCalories, result.EPOCKcal))
	}
	for _, def := range result.Unlocked {
		d.event(fmt.Sprintf("[yellow]Achievement unlocked: %s", def.Title))
	}
	for _, q := range result.Completed {
		d.event(fmt.Sprintf("[yellow]Quest complete: %s (+%d XP)", q.Title, q.XPReward))
	}
	d.renderQuests()
}

func (d *Dashboard) renderIdle() {
	conn := d.manager.Source().Connection().Latest()
	d.metricsPanel.SetText(fmt.Sprintf(
		"\n  Sensor:  [yellow]%s[white]\n\n  No session running.\n", conn))
	d.graphPanel.SetText("")
}

func (d *Dashboard) renderSession(state engine.SessionState) {
	conn := d.manager.Source().Connection().Latest()

	var text strings.Builder
	fmt.Fprintf(&text, "\n  Sensor:   [yellow]%s[white]\n", conn)
	fmt.Fprintf(&text, "  Elapsed:  [yellow]%s[white]\n\n", formatDuration(state.ElapsedSeconds))
	if state.CurrentHeartRate > 0 {
		fmt.Fprintf(&text, "  [red]♥[white] %d bpm   [%s]%s[white]\n\n",
			state.CurrentHeartRate, zoneColor(state.CurrentZone), state.CurrentZone)
	} else {
		fmt.Fprintf(&text, "  [red]♥[white] -- bpm\n\n")
	}
	fmt.Fprintf(&text, "  Burn Points:  [yellow]%d[white]  (%.2f)\n", state.BurnPoints, state.PointAccumulator)
	if state.PreviewCalories > 0 {
		fmt.Fprintf(&text, "  Calories:     ~%d kcal\n", state.PreviewCalories)
	}
	fmt.Fprintf(&text, "\n  Zone time:\n")
	for _, z := range zone.All {
		fmt.Fprintf(&text, "    [%s]%-7s[white] %s\n", zoneColor(z), z.String(), formatDuration(state.ZoneSeconds.Seconds(z)))
	}
	d.metricsPanel.SetText(text.String())

	d.graphPanel.SetText("\n  " + sparkline(state.RecentReadings))
}

func (d *Dashboard) renderQuests() {
	quests, err := d.manager.Quests()
	if err != nil {
		d.questsPanel.SetText(fmt.Sprintf("[red]%v", err))
		return
	}

	var text strings.Builder
	text.WriteString("\n")
	for _, q := range quests {
		mark := "[ ]"
		color := "white"
		if q.Completed {
			mark = "[x]"
			color = "green"
		}
		fmt.Fprintf(&text, "  [%s]%s %s[white]  (%d/%d, +%d XP)\n",
			color, mark, q.Title, q.CurrentValue, q.TargetValue, q.XPReward)
	}
	d.questsPanel.SetText(text.String())
}

func (d *Dashboard) event(msg string) {
	fmt.Fprintf(d.eventView, " %s %s\n", time.Now().Format("15:04:05"), msg)
	d.logger.Printf("UI: %s", tview.Escape(msg))
}

// sparkline renders readings as one row of block characters scaled between
// the window's min and max.
func sparkline(readings []int) string {
	if len(readings) == 0 {
		return ""
	}
	min, max := readings[0], readings[0]
	for _, r := range readings {
		if r < min {
			min = r
		}
		if r > max {
			max = r
		}
	}

	var b strings.Builder
	span := max - min
	for _, r := range readings {
		idx := 0
		if span > 0 {
			idx = (r - min) * (len(sparkRunes) - 1) / span
		}
		b.WriteRune(sparkRunes[idx])
	}
	return fmt.Sprintf("%s\n\n  min %d  max %d", b.String(), min, max)
}

func zoneColor(z zone.Zone) string {
	switch z {
	case zone.WarmUp:
		return "blue"
	case zone.Active:
		return "green"
	case zone.Push:
		return "orange"
	case zone.Peak:
		return "red"
	default:
		return "gray"
	}
}

func formatDuration(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
