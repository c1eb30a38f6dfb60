package main

import (
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/nicehtml"
	"github.com/wippyai/nicehtml/errors"
	"github.com/wippyai/nicehtml/orchestrator"
	"github.com/wippyai/nicehtml/page"
	"github.com/wippyai/nicehtml/state"
)

func TestDescribeFragment(t *testing.T) {
	tests := []struct {
		name  string
		f     nicehtml.Fragment
		width int
		want  string
	}{
		{"remote", nicehtml.Fragment{Index: 0, Origin: nicehtml.OriginRemote, Source: "https://example.com/a.nh"}, 5, `#0 remote https://example.com/a.nh`},
		{"inline folds whitespace", nicehtml.Fragment{Index: 1, Origin: nicehtml.OriginInline, Content: "div {\n  p\n}"}, 20, `#1 inline "div { p }"`},
		{"exact width", nicehtml.Fragment{Index: 1, Origin: nicehtml.OriginInline, Content: "div {\n  p\n}"}, 9, `#1 inline "div { p }"`},
		{"folded then truncated", nicehtml.Fragment{Index: 1, Origin: nicehtml.OriginInline, Content: "div {\n  p\n}"}, 5, `#1 inline "div …"`},
		{"truncated", nicehtml.Fragment{Index: 2, Origin: nicehtml.OriginInline, Content: "abcdefghij"}, 5, `#2 inline "abcd…"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeFragment(tt.f, tt.width); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRunModel(t *testing.T) {
	u, _ := url.Parse("https://example.com/index.html")
	doc := &page.Document{URL: u, Fragments: []nicehtml.Fragment{
		{Index: 0, Origin: nicehtml.OriginRemote, Source: "https://example.com/a.nh"},
		{Index: 1, Origin: nicehtml.OriginInline, Content: "x"},
	}}
	m := newRunModel(doc, "sid")

	m.Update(stateMsg{to: orchestrator.StateLoading})
	m.Update(resolvedMsg{index: 0, res: nicehtml.Failed(errors.InvalidInput(errors.PhaseResolve, "gone"))})
	m.Update(resolvedMsg{index: 1, res: nicehtml.Resolved("x")})
	m.Update(convertingMsg{index: 1})
	if m.rows[1].state != rowConverting {
		t.Fatalf("row state = %d", m.rows[1].state)
	}
	m.Update(convertedMsg{outcome: orchestrator.Outcome{Fragment: doc.Fragments[1], Status: orchestrator.StatusConverted}})
	// out of range indexes are ignored
	m.Update(convertingMsg{index: 7})

	// the final state arrives before the report
	m.Update(stateMsg{to: orchestrator.StateDone})
	if view := m.View(); !strings.Contains(view, "done") {
		t.Errorf("view before report lacks state:\n%s", view)
	}

	report := &orchestrator.Report{
		State: orchestrator.StateDone,
		Outcomes: []orchestrator.Outcome{
			{Fragment: doc.Fragments[0], Status: orchestrator.StatusSkipped},
			{Fragment: doc.Fragments[1], Status: orchestrator.StatusConverted},
		},
	}
	m.Update(finishedMsg{report: report, output: "<p>x</p>"})

	if m.rows[0].state != rowUnavailable || m.rows[1].state != rowConverted {
		t.Errorf("row states = %d, %d", m.rows[0].state, m.rows[1].state)
	}
	view := m.View()
	for _, want := range []string{"session sid", "1 converted", "1 skipped", "<p>x</p>"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestRunLogger(t *testing.T) {
	console, consoleLogs := observer.New(zapcore.DebugLevel)
	file, fileLogs := observer.New(zapcore.DebugLevel)
	env := &state.LocalEnv{
		Log:     zap.New(zapcore.NewTee(console, file)),
		FileLog: zap.New(file),
	}

	runLogger(env, false).Info("plain")
	runLogger(env, true).Error("Unable to load fragment")

	if n := consoleLogs.FilterMessage("Unable to load fragment").Len(); n != 0 {
		t.Errorf("interactive run logged %d entries to console", n)
	}
	if n := fileLogs.FilterMessage("Unable to load fragment").Len(); n != 1 {
		t.Errorf("interactive run logged %d entries to file", n)
	}
	if n := consoleLogs.FilterMessage("plain").Len(); n != 1 {
		t.Errorf("plain run logged %d entries to console", n)
	}

	if runLogger(&state.LocalEnv{}, true) == nil {
		t.Error("nil logger without a file log")
	}
}
