package command

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	"github.com/sourcegraph/conc/panics"

	"github.com/XiaoConstantine/robinrelay/internal/analysis"
	"github.com/XiaoConstantine/robinrelay/internal/github"
)

// Result is the rendered reply to a command.
type Result struct {
	Text    string
	IsError bool
}

// handler executes one kind of command and renders its reply.
type handler func(ctx context.Context, cmd Command) (string, error)

// Config holds the defaults commands fall back to.
type Config struct {
	// Mention is how users address the bot on the comment surface, used in
	// help text.
	Mention string
	// DefaultOwner completes bare repository names.
	DefaultOwner string
	// DefaultRepo is used by repository commands given no repository.
	DefaultRepo github.Repo
}

// Registry executes commands. Every kind has exactly one handler, shared by
// all surfaces.
type Registry struct {
	ops    github.Operations
	runner analysis.Runner
	cfg    Config

	handlers map[Kind]handler
}

// NewRegistry wires a handler for every command kind.
func NewRegistry(ops github.Operations, runner analysis.Runner, cfg Config) *Registry {
	r := &Registry{ops: ops, runner: runner, cfg: cfg}
	r.handlers = map[Kind]handler{
		KindHelp:         r.help,
		KindHello:        r.hello,
		KindAnalyze:      r.runCheck,
		KindReview:       r.runCheck,
		KindStatus:       r.status,
		KindTest:         r.runCheck,
		KindLint:         r.runCheck,
		KindSecurity:     r.runCheck,
		KindDependencies: r.runCheck,
		KindListBranches: r.listBranches,
		KindCreatePR:     r.createPullRequest,
		KindEditFile:     r.editFile,
	}
	for _, k := range Kinds() {
		if _, ok := r.handlers[k]; !ok {
			panic(fmt.Sprintf("command: no handler for %s", k))
		}
	}
	return r
}

// Execute runs cmd and renders the reply for its surface. Handler errors and
// panics become error replies.
func (r *Registry) Execute(ctx context.Context, cmd Command) Result {
	logger := logging.GetLogger()

	h, ok := r.handlers[cmd.Kind]
	if !ok {
		return Result{
			Text:    fmt.Sprintf("❓ Unknown command: `%s`. Type `help` to see what I can do.", cmd.Name),
			IsError: true,
		}
	}

	logger.Debug(ctx, "Executing %s for %s on %s", cmd.Kind, cmd.UserID, cmd.Surface)

	var (
		catcher panics.Catcher
		text    string
		err     error
	)
	catcher.Try(func() {
		text, err = h(ctx, cmd)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		err = recovered.AsError()
		logger.Error(ctx, "Command %s panicked: %v", cmd.Kind, err)
	}

	if err != nil {
		logger.Warn(ctx, "Command %s failed: %v", cmd.Kind, err)
		return Result{Text: FormatError(cmd.Surface, err), IsError: true}
	}
	return Result{Text: text}
}
