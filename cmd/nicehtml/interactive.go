package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/nicehtml"
	"github.com/wippyai/nicehtml/orchestrator"
	"github.com/wippyai/nicehtml/page"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD580"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	outputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))
)

type rowState int

const (
	rowWaiting rowState = iota
	rowResolved
	rowUnavailable
	rowConverting
	rowConverted
	rowRejected
)

type fragmentRow struct {
	err      error
	fragment nicehtml.Fragment
	size     int
	elapsed  time.Duration
	state    rowState
}

type stateMsg struct {
	to orchestrator.State
}

type resolvedMsg struct {
	res   nicehtml.Result
	index int
}

type convertingMsg struct {
	index int
}

type convertedMsg struct {
	outcome orchestrator.Outcome
}

type finishedMsg struct {
	err    error
	report *orchestrator.Report
	output string
}

// programObserver forwards run events to the bubbletea program.
type programObserver struct {
	p *tea.Program
}

func (o *programObserver) StateChanged(_, to orchestrator.State) {
	o.p.Send(stateMsg{to: to})
}

func (o *programObserver) Resolved(f nicehtml.Fragment, res nicehtml.Result) {
	o.p.Send(resolvedMsg{index: f.Index, res: res})
}

func (o *programObserver) ConversionStarted(f nicehtml.Fragment) {
	o.p.Send(convertingMsg{index: f.Index})
}

func (o *programObserver) ConversionFinished(_ nicehtml.Fragment, outcome orchestrator.Outcome) {
	o.p.Send(convertedMsg{outcome: outcome})
}

type runModel struct {
	err       error
	report    *orchestrator.Report
	spinner   spinner.Model
	output    viewport.Model
	location  string
	sessionID string
	rows      []fragmentRow
	width     int
	state     orchestrator.State
	finished  bool
}

func newRunModel(doc *page.Document, sessionID string) *runModel {
	rows := make([]fragmentRow, len(doc.Fragments))
	for i, f := range doc.Fragments {
		rows[i] = fragmentRow{fragment: f}
	}
	return &runModel{
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(pendingStyle)),
		output:    viewport.New(80, 10),
		location:  doc.URL.String(),
		sessionID: sessionID,
		rows:      rows,
		width:     80,
	}
}

func (m *runModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
		if m.finished {
			var cmd tea.Cmd
			m.output, cmd = m.output.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.output.Width = msg.Width - 2
		m.output.Height = max(3, msg.Height-len(m.rows)-8)

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateMsg:
		m.state = msg.to

	case resolvedMsg:
		if row := m.row(msg.index); row != nil {
			if msg.res.OK() {
				row.state, row.size = rowResolved, len(msg.res.Content)
			} else {
				row.state, row.err = rowUnavailable, msg.res.Err
			}
		}

	case convertingMsg:
		if row := m.row(msg.index); row != nil {
			row.state = rowConverting
		}

	case convertedMsg:
		if row := m.row(msg.outcome.Fragment.Index); row != nil {
			row.elapsed = msg.outcome.Duration
			if msg.outcome.Status == orchestrator.StatusConverted {
				row.state = rowConverted
			} else {
				row.state, row.err = rowRejected, msg.outcome.Err
			}
		}

	case finishedMsg:
		m.finished = true
		m.report, m.err = msg.report, msg.err
		if m.report != nil {
			m.state = m.report.State
		}
		m.output.SetContent(msg.output)
	}

	return m, nil
}

func (m *runModel) row(index int) *fragmentRow {
	if index < 0 || index >= len(m.rows) {
		return nil
	}
	return &m.rows[index]
}

func (m *runModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("NiceHTML"))
	b.WriteString(" ")
	b.WriteString(m.location)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("session " + m.sessionID))
	b.WriteString("\n\n")

	if m.finished {
		b.WriteString(m.formatState())
	} else {
		b.WriteString(m.spinner.View() + " " + m.formatState())
	}
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(helpStyle.Render("no fragments on this page"))
		b.WriteString("\n")
	}
	for _, row := range m.rows {
		b.WriteString(m.formatRow(row))
		b.WriteString("\n")
	}

	if m.finished {
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		} else {
			b.WriteString("\n")
			b.WriteString(outputStyle.Render(m.output.View()))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("↑/↓ scroll • q quit"))
	} else {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("q quit"))
	}
	return b.String()
}

func (m *runModel) formatState() string {
	switch {
	case m.state == orchestrator.StateDone && m.report != nil:
		r := m.report
		return okStyle.Render(fmt.Sprintf("done: %d converted, %d skipped, %d failed in %s",
			r.Count(orchestrator.StatusConverted),
			r.Count(orchestrator.StatusSkipped),
			r.Count(orchestrator.StatusFailed),
			r.Elapsed.Round(time.Millisecond)))
	case m.state == orchestrator.StateFailed:
		return errorStyle.Render("failed")
	default:
		return pendingStyle.Render(m.state.String())
	}
}

func (m *runModel) formatRow(row fragmentRow) string {
	f := row.fragment
	label := fmt.Sprintf("#%-3d %-6s ", f.Index, f.Origin)
	if f.Origin == nicehtml.OriginRemote {
		label += sourceStyle.Render(f.Source)
	} else {
		label += sourceStyle.Render(fmt.Sprintf("%d bytes inline", len(f.Content)))
	}

	var status string
	switch row.state {
	case rowWaiting:
		status = pendingStyle.Render("waiting")
	case rowResolved:
		status = pendingStyle.Render(fmt.Sprintf("loaded %d bytes", row.size))
	case rowConverting:
		status = pendingStyle.Render("converting")
	case rowConverted:
		status = okStyle.Render(fmt.Sprintf("converted %d bytes in %s", row.size, row.elapsed.Round(time.Microsecond)))
	case rowUnavailable:
		status = errorStyle.Render(fmt.Sprintf("skipped: %v", row.err))
	case rowRejected:
		status = errorStyle.Render(fmt.Sprintf("failed: %v", row.err))
	}
	return label + "  " + status
}

func runInteractive(ctx context.Context, doc *page.Document, sess *orchestrator.Session, resolver orchestrator.Resolver, output *bytes.Buffer) (*orchestrator.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newRunModel(doc, sess.ID()), tea.WithAltScreen(), tea.WithContext(ctx))

	type result struct {
		err    error
		report *orchestrator.Report
	}
	done := make(chan result, 1)
	go func() {
		orch := orchestrator.New(resolver, orchestrator.WithObserver(&programObserver{p: p}))
		report, err := orch.Run(runCtx, sess, doc.Fragments)
		done <- result{report: report, err: err}
		p.Send(finishedMsg{report: report, err: err, output: output.String()})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-done
		return nil, fmt.Errorf("interactive view: %w", err)
	}

	// leaving the view early abandons the run
	cancel()
	res := <-done
	return res.report, res.err
}
