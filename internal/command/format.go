package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/XiaoConstantine/robinrelay/internal/analysis"
	"github.com/XiaoConstantine/robinrelay/internal/github"
)

const commentFooter = "\n\n---\n*RobinRelay Bot 🤖*"

// markup renders the small set of formatting the replies use. Code host
// comments take Markdown; the chat platform takes its own mrkdwn dialect.
type markup struct {
	surface Surface
}

func (m markup) bold(s string) string {
	if m.surface == SurfaceChat {
		return "*" + s + "*"
	}
	return "**" + s + "**"
}

func (m markup) bullet() string {
	if m.surface == SurfaceChat {
		return "• "
	}
	return "- "
}

func (m markup) fact(label, value string) string {
	return m.bullet() + m.bold(label+":") + " " + value
}

func (m markup) list(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString(m.bullet())
		b.WriteString(item)
		b.WriteString("\n")
	}
}

func (m markup) finish(s string) string {
	s = strings.TrimRight(s, "\n")
	if m.surface == SurfaceComment {
		return s + commentFooter
	}
	return s
}

// ValidationError reports a malformed command. It is raised before any
// backend call is made.
type ValidationError struct {
	Message string
	Usage   string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(kind Kind, format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
		Usage:   descriptors[kind].usage,
	}
}

// FormatError renders err as a reply on surface.
func FormatError(surface Surface, err error) string {
	m := markup{surface: surface}

	var verr *ValidationError
	if errors.As(err, &verr) {
		msg := "❌ " + verr.Message
		if verr.Usage != "" {
			msg += "\nUsage: `" + verr.Usage + "`"
		}
		return msg
	}

	hint := errorHint(err)
	if surface == SurfaceChat {
		msg := "❌ " + m.bold("Error:") + " " + err.Error()
		if hint != "" {
			msg += "\n" + hint
		}
		return msg
	}

	var b strings.Builder
	b.WriteString("❌ " + m.bold("Error Occurred") + "\n\n")
	b.WriteString("Sorry, I encountered an error while processing your request:\n\n")
	b.WriteString("```\n" + err.Error() + "\n```\n\n")
	if hint != "" {
		b.WriteString(hint + "\n\n")
	}
	b.WriteString("Please try again or contact the bot administrator.")
	return m.finish(b.String())
}

func errorHint(err error) string {
	switch {
	case github.IsKind(err, github.NotFound):
		return "The repository, pull request or file could not be found."
	case github.IsKind(err, github.PermissionDenied):
		return "The bot does not have permission for this operation."
	case github.IsKind(err, github.RateLimited):
		return "The code host rate limit was reached. Please try again later."
	default:
		return ""
	}
}

func renderHelp(m markup, mention string) string {
	var b strings.Builder
	b.WriteString("🤖 " + m.bold("RobinRelay Bot Commands") + "\n\n")

	headings := []struct {
		section section
		title   string
	}{
		{sectionBasic, "Basic Commands"},
		{sectionGitHub, "GitHub Operations"},
		{sectionQuality, "Code Quality"},
	}
	for _, h := range headings {
		var lines []string
		for _, k := range Kinds() {
			d := descriptors[k]
			if d.section != h.section || !k.AvailableOn(m.surface) {
				continue
			}
			usage := d.usage
			if m.surface == SurfaceComment {
				usage = mention + " " + d.name
			}
			lines = append(lines, fmt.Sprintf("`%s` - %s", usage, d.description))
		}
		if len(lines) == 0 {
			continue
		}
		b.WriteString(m.bold(h.title+":") + "\n")
		m.list(&b, lines)
		b.WriteString("\n")
	}

	if m.surface == SurfaceComment {
		b.WriteString("Mention me with a command on any pull request to get started!")
	} else {
		b.WriteString("Example: `analyze owner/repo 42`")
	}
	return m.finish(b.String())
}

func renderReport(m markup, kind Kind, report *analysis.Report) string {
	d := descriptors[kind]
	var b strings.Builder

	status := "✅"
	if !report.Passed {
		status = "⚠️"
	}
	b.WriteString(fmt.Sprintf("%s %s\n\n", status, m.bold(d.title+" Complete")))
	b.WriteString(fmt.Sprintf("%s %s %s\n\n", d.emoji, m.bold("Target:"), report.Target))

	if len(report.Facts) > 0 {
		for _, f := range report.Facts {
			b.WriteString(m.fact(f.Label, f.Value) + "\n")
		}
		b.WriteString("\n")
	}
	if report.Summary != "" {
		b.WriteString(report.Summary + "\n\n")
	}
	if len(report.Findings) > 0 {
		b.WriteString(m.bold("Findings:") + "\n")
		m.list(&b, report.Findings)
		b.WriteString("\n")
	}
	if len(report.Positives) > 0 {
		b.WriteString(m.bold("Positive Aspects:") + "\n")
		m.list(&b, report.Positives)
		b.WriteString("\n")
	}
	if len(report.Recommendations) > 0 {
		b.WriteString(m.bold("Recommendations:") + "\n")
		m.list(&b, report.Recommendations)
		b.WriteString("\n")
	}
	if report.Score > 0 {
		b.WriteString(fmt.Sprintf("%s %d/10 ⭐\n", m.bold("Overall Score:"), report.Score))
	}
	return m.finish(b.String())
}

func renderPullRequestStatus(m markup, repo github.Repo, pr *github.PullRequest, checks []github.CheckRun) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 %s\n\n", m.bold(fmt.Sprintf("Status of %s#%d", repo, pr.Number))))

	mergeable := "No"
	if pr.Mergeable {
		mergeable = "Yes"
	}
	for _, f := range [][2]string{
		{"Title", pr.Title},
		{"Author", pr.Author},
		{"State", pr.State},
		{"Branch", fmt.Sprintf("`%s` → `%s`", pr.HeadRef, pr.BaseRef)},
		{"Mergeable", mergeable},
		{"Commits", fmt.Sprint(pr.Commits)},
		{"Changed Files", fmt.Sprint(pr.ChangedFiles)},
		{"Lines", fmt.Sprintf("+%d/-%d", pr.Additions, pr.Deletions)},
		{"Checks", summarizeChecks(checks)},
	} {
		b.WriteString(m.fact(f[0], f[1]) + "\n")
	}
	return m.finish(b.String())
}

func summarizeChecks(checks []github.CheckRun) string {
	if len(checks) == 0 {
		return "none"
	}
	var passed, failed, pending int
	for _, c := range checks {
		switch {
		case c.Status != github.CheckStatusCompleted:
			pending++
		case c.Conclusion == github.ConclusionSuccess:
			passed++
		default:
			failed++
		}
	}
	return fmt.Sprintf("%d passed, %d failed, %d pending", passed, failed, pending)
}

const maxListedPullRequests = 5

func renderRepositoryStatus(m markup, repo *github.Repository, pulls []github.PullRequest) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 %s\n\n", m.bold("Status of "+repo.FullName)))

	description := repo.Description
	if description == "" {
		description = "_no description_"
	}
	language := repo.Language
	if language == "" {
		language = "unknown"
	}
	for _, f := range [][2]string{
		{"Description", description},
		{"Language", language},
		{"Default Branch", "`" + repo.DefaultBranch + "`"},
		{"Stars", fmt.Sprint(repo.Stars)},
		{"Forks", fmt.Sprint(repo.Forks)},
		{"Open Issues", fmt.Sprint(repo.OpenIssues)},
		{"Open Pull Requests", fmt.Sprint(len(pulls))},
		{"Last Updated", repo.UpdatedAt.Format("2006-01-02")},
	} {
		b.WriteString(m.fact(f[0], f[1]) + "\n")
	}

	if len(pulls) > 0 {
		b.WriteString("\n" + m.bold("Recent Pull Requests:") + "\n")
		var lines []string
		for i, pr := range pulls {
			if i == maxListedPullRequests {
				lines = append(lines, fmt.Sprintf("…and %d more", len(pulls)-maxListedPullRequests))
				break
			}
			lines = append(lines, fmt.Sprintf("#%d %s (%s)", pr.Number, pr.Title, pr.Author))
		}
		m.list(&b, lines)
	}
	return m.finish(b.String())
}

func renderBranches(m markup, repo github.Repo, branches []github.Branch) string {
	if len(branches) == 0 {
		return fmt.Sprintf("No branches found in %s.", repo)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🌿 %s\n", m.bold(fmt.Sprintf("Branches in %s (%d):", repo, len(branches)))))
	lines := make([]string, 0, len(branches))
	for _, br := range branches {
		lines = append(lines, fmt.Sprintf("`%s` (%s)", br.Name, github.ShortSHA(br.SHA)))
	}
	m.list(&b, lines)
	return m.finish(b.String())
}
