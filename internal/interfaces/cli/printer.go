package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/pipelinerun"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
)

// printer writes operator-facing output. Colors follow fatih/color, which honours NO_COLOR
// and drops escapes when stdout is not a terminal.
type printer struct {
	out    io.Writer
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	cyan   *color.Color
	bold   *color.Color
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:    out,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed, color.Bold),
		cyan:   color.New(color.FgCyan),
		bold:   color.New(color.Bold),
	}
}

func (p *printer) success(format string, a ...any) {
	p.green.Fprintf(p.out, "✓ "+format+"\n", a...)
}

func (p *printer) warning(format string, a ...any) {
	p.yellow.Fprintf(p.out, "! "+format+"\n", a...)
}

func (p *printer) failure(format string, a ...any) {
	p.red.Fprintf(p.out, "✗ "+format+"\n", a...)
}

func (p *printer) step(format string, a ...any) {
	p.cyan.Fprintf(p.out, "→ "+format+"\n", a...)
}

func (p *printer) json(v any) error {
	raw, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.out, string(raw))
	return err
}

func (p *printer) fixtures(items []fixture.Fixture) {
	if len(items) == 0 {
		p.warning("no fixtures in the window")
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tKICKOFF (UTC)\tLEAGUE\tFIXTURE\tID")
	for i, fx := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, fx.KickoffAt.UTC().Format("2006-01-02 15:04"), fx.League, fx.Name(), fx.ID)
	}
	_ = tw.Flush()
}

func (p *printer) runSummary(summary usecase.RunSummary) {
	p.bold.Fprintf(p.out, "run %s (%s, %s", summary.RunID, summary.Mode, summary.Kind)
	if summary.Step > 0 {
		p.bold.Fprintf(p.out, ", step %d", summary.Step)
	}
	p.bold.Fprintln(p.out, ")")

	if len(summary.Outcomes) == 0 {
		p.fixtures(summary.Fixtures)
		return
	}

	reports := make(map[string]usecase.FixtureReport, len(summary.Reports))
	for _, r := range summary.Reports {
		reports[r.FixtureID] = r
	}
	// Dry and step runs print their stage results in full.
	verbose := summary.Mode == pipelinerun.ModeDryRun || summary.Kind == pipelinerun.KindStep

	for _, o := range summary.Outcomes {
		switch o.State {
		case pipelinerun.StateCompleted:
			p.success("%s  players=%d alerts=%d excluded=%d", o.Fixture.Name(), o.Players, o.Alerts, o.Excluded)
		case pipelinerun.StateFailed:
			p.failure("%s  failed at %s [%s] %s", o.Fixture.Name(), o.FailedStage, o.ReasonCode, o.Reason)
		default:
			p.warning("%s  %s", o.Fixture.Name(), o.State)
		}

		report := reports[o.Fixture.ID]
		if verbose {
			p.stageResults(report.Results)
		}
		p.candidates(report.Alerts)
		for _, ex := range report.Excluded {
			fmt.Fprintf(p.out, "    excluded %s: %s\n", ex.Name, ex.Reason)
		}
	}

	elapsed := summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond)
	line := fmt.Sprintf("%d completed, %d failed, %d alerts in %s", summary.Completed, summary.Failed, summary.Alerts, elapsed)
	if summary.Failed > 0 {
		p.yellow.Fprintln(p.out, line)
		return
	}
	p.green.Fprintln(p.out, line)
}

func (p *printer) candidates(items []stage.AlertCandidate) {
	for _, c := range items {
		tag := p.tagColor(c.RiskTag).Sprint(strings.ToUpper(string(c.RiskTag)))
		fmt.Fprintf(p.out, "    %-6s %s [%s] likelihood=%.0f%%\n", tag, c.Player.Name, c.Player.TeamName, c.Likelihood*100)
		fmt.Fprintf(p.out, "           %s\n", c.Explanation)
	}
}

func (p *printer) stageResults(results []stage.Result) {
	for _, r := range results {
		var envelope struct {
			Player stage.PlayerRef `json:"player"`
		}
		subject := r.PlayerID
		if r.Stage == stage.Shark {
			subject = "fixture"
		} else if sonic.Unmarshal(r.Payload, &envelope) == nil && envelope.Player.Name != "" {
			subject = envelope.Player.Name
		}

		line := fmt.Sprintf("    %-8s %-28s %s attempts=%d", r.Stage, subject, r.Status, r.Attempts)
		if !r.Completed() {
			p.red.Fprintln(p.out, line+" "+r.Error)
			continue
		}
		fmt.Fprintln(p.out, line)
		if r.Stage != stage.Shark && len(r.Payload) > 0 {
			fmt.Fprintf(p.out, "             %s\n", r.Payload)
		}
	}
}

func (p *printer) preparation(result usecase.PreparationResult) {
	for _, t := range result.Teams {
		label := fmt.Sprintf("%s (%s)", t.Team, t.League)
		switch t.Status {
		case "added", "synced", "registered":
			p.success("%s  %s", label, t.Status)
		case "skipped":
			p.warning("%s  skipped: %s", label, t.Detail)
		default:
			p.failure("%s  %s: %s", label, t.Status, t.Detail)
		}
	}
	fmt.Fprintf(p.out, "fixtures=%d teams=%d registered=%d added=%d skipped=%d not_found=%d rosters_updated=%d rosters_failed=%d\n",
		result.FixturesFound, result.TeamsFound, result.AlreadyRegistered, result.Added,
		result.Skipped, result.NotFound, result.RostersUpdated, result.RostersFailed)
}

func (p *printer) usage(report usecase.RunUsage) {
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tCALLS\tFAILED\tTOKENS IN\tTOKENS OUT\tREASONING\tLATENCY")
	for _, s := range report.Stages {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n", s.Stage, s.Calls, s.Failed, s.TokensIn, s.TokensOut, s.ReasoningTokens, s.Latency.Round(time.Millisecond))
	}
	fmt.Fprintf(tw, "total\t%d\t%d\t%d\t%d\t%d\t%s\n", report.Calls, report.Failed, report.TokensIn, report.TokensOut, report.ReasoningTokens, report.Latency.Round(time.Millisecond))
	_ = tw.Flush()
}

func (p *printer) alerts(items []alert.Alert) {
	if len(items) == 0 {
		p.success("no alerts")
		return
	}
	for _, a := range items {
		tag := p.tagColor(a.RiskTag).Sprint(strings.ToUpper(string(a.RiskTag)))
		state := ""
		if !a.Active {
			state = " (inactive)"
		}
		if a.Acknowledged {
			state += " (acknowledged)"
		}
		fmt.Fprintf(p.out, "%-6s %s [%s] likelihood=%.0f%%%s\n", tag, a.PlayerName, a.TeamName, a.Likelihood*100, state)
		fmt.Fprintf(p.out, "       %s\n", a.Explanation)
		fmt.Fprintf(p.out, "       id=%s fixture=%s run=%s\n", a.ID, a.FixtureID, a.RunID)
	}
}

func (p *printer) tagColor(tag alert.RiskTag) *color.Color {
	switch tag {
	case alert.RiskHigh:
		return p.red
	case alert.RiskMedium:
		return p.yellow
	default:
		return p.cyan
	}
}
