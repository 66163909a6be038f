package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/LTKSK/go-coding-agent/memory"
)

const lastMessageWidth = 50

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// renderSessions prints a session table. showProject adds the project column
// for listings that span projects.
func renderSessions(out io.Writer, sessions []*memory.SessionSummary, showProject bool) {
	if len(sessions) == 0 {
		fmt.Fprintln(out, headerStyle.Render("No sessions found."))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Recent sessions (%d)", len(sessions))))

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	columns := []string{"ID", "Started At", "Status", "Messages"}
	if showProject {
		columns = append(columns, "Project")
	}
	columns = append(columns, "Last Message")

	titles := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = titleStyle.Render(c)
	}
	fmt.Fprintln(w, strings.Join(titles, "\t"))

	for _, s := range sessions {
		status := activeStyle.Render("active")
		if s.EndedAt != nil {
			status = "ended"
		}

		row := []string{
			idStyle.Render(s.ID),
			dateStyle.Render(s.StartedAt.Local().Format("2006-01-02 15:04:05")),
			status,
			strconv.Itoa(s.MessageCount),
		}
		if showProject {
			row = append(row, s.ProjectPath)
		}
		row = append(row, truncate(oneLine(s.LastMessage), lastMessageWidth))
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
