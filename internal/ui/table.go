package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// SessionSummary is printed after the drawing surface closes.
type SessionSummary struct {
	Participant string
	Channel     string
	Codec       string
	Sessions    int
	Sent        int
	Received    int
	Dropped     int
	Failed      int
	LastOutcome string
	Duration    time.Duration
}

func SessionSummaryView(s SessionSummary) string {
	rows := [][]string{
		{"Participant", s.Participant},
		{"Channel", s.Channel},
		{"Codec", s.Codec},
		{"Sessions", fmt.Sprintf("%d", s.Sessions)},
		{"Strokes sent", fmt.Sprintf("%d", s.Sent)},
		{"Strokes received", fmt.Sprintf("%d", s.Received)},
	}
	if s.Dropped > 0 {
		rows = append(rows, []string{"Dropped (malformed)", fmt.Sprintf("%d", s.Dropped)})
	}
	if s.Failed > 0 {
		rows = append(rows, []string{"Send failures", fmt.Sprintf("%d", s.Failed)})
	}
	if s.LastOutcome != "" {
		rows = append(rows, []string{"Last session", s.LastOutcome})
	}
	rows = append(rows, []string{"Duration", s.Duration.Round(time.Second).String()})

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Metric", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return TitleStyle.Render(IconPen+" Session summary") + "\n" + tbl.Render()
}

func RenderSessionSummary(s SessionSummary) {
	fmt.Println(SessionSummaryView(s))
}

// BusInfo is the banner shown when the signaling bus starts.
type BusInfo struct {
	Addr    string
	Version string
}

func (b BusInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s Signaling bus listening\n\n%s Address:  %s\n%s Health:   %s\n%s Version:  %s",
		IconSuccess,
		IconWeb, BoldStyle.Foreground(Primary).Render("ws://"+displayAddr(b.Addr)+"/ws?channel=drawing"),
		IconInfo, MutedStyle.Render("http://"+displayAddr(b.Addr)+"/health"),
		IconLink, MutedStyle.Render(b.Version),
	)
	return boxStyle.Render(content)
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
