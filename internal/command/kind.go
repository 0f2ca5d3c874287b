// Package command implements the command vocabulary shared by every surface
// the bot listens on, its parser and the registry that executes commands
// against the backend operations.
package command

import (
	"github.com/XiaoConstantine/robinrelay/internal/analysis"
)

// Kind is a command in the shared vocabulary. The zero value is an
// unrecognised command.
type Kind int

const (
	KindUnknown Kind = iota
	KindHelp
	KindHello
	KindAnalyze
	KindReview
	KindStatus
	KindTest
	KindLint
	KindSecurity
	KindDependencies
	KindListBranches
	KindCreatePR
	KindEditFile

	kindCount
)

// Kinds returns every known command kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount-1)
	for k := KindHelp; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k Kind) String() string {
	if k <= KindUnknown || k >= kindCount {
		return "unknown"
	}
	return descriptors[k].name
}

// Surface is a channel commands arrive on.
type Surface uint8

const (
	// SurfaceComment is a code host pull request comment.
	SurfaceComment Surface = 1 << iota
	// SurfaceChat is the chat platform, and the local exec command.
	SurfaceChat

	allSurfaces = SurfaceComment | SurfaceChat
)

func (s Surface) String() string {
	switch s {
	case SurfaceComment:
		return "comment"
	case SurfaceChat:
		return "chat"
	default:
		return "unknown"
	}
}

type section int

const (
	sectionBasic section = iota
	sectionGitHub
	sectionQuality
)

type descriptor struct {
	name    string
	aliases []string
	// suffix is an optional second word, as in "list branches".
	suffix      string
	usage       string
	description string
	section     section
	surfaces    Surface

	// longRunning commands show a progress placeholder on the comment
	// surface that is later replaced by the result.
	longRunning bool
	progress    string
	title       string
	emoji       string
	check       analysis.Kind
}

var descriptors = [kindCount]descriptor{
	KindHelp: {
		name:        "help",
		usage:       "help",
		description: "Show this help message",
		section:     sectionBasic,
		surfaces:    allSurfaces,
	},
	KindHello: {
		name:        "hello",
		aliases:     []string{"hi"},
		usage:       "hello",
		description: "Greet the bot",
		section:     sectionBasic,
		surfaces:    SurfaceChat,
	},
	KindStatus: {
		name:        "status",
		usage:       "status [repo]",
		description: "Show current PR or repository status",
		section:     sectionBasic,
		surfaces:    allSurfaces,
	},
	KindAnalyze: {
		name:        "analyze",
		usage:       "analyze <repo> <pr#>",
		description: "Perform comprehensive code analysis",
		section:     sectionGitHub,
		surfaces:    allSurfaces,
		longRunning: true,
		progress:    "🔍 Starting Code Analysis...",
		title:       "Code Analysis",
		emoji:       "📊",
		check:       analysis.KindAnalyze,
	},
	KindReview: {
		name:        "review",
		usage:       "review <repo> <pr#>",
		description: "Perform detailed code review",
		section:     sectionGitHub,
		surfaces:    allSurfaces,
		longRunning: true,
		progress:    "📝 Starting Code Review...",
		title:       "Code Review",
		emoji:       "📋",
		check:       analysis.KindReview,
	},
	KindListBranches: {
		name:        "list-branches",
		aliases:     []string{"list", "branches"},
		suffix:      "branches",
		usage:       "list branches [repo]",
		description: "List all branches",
		section:     sectionGitHub,
		surfaces:    SurfaceChat,
	},
	KindCreatePR: {
		name:        "create-pr",
		aliases:     []string{"create", "pr"},
		suffix:      "pr",
		usage:       "create pr <from> <to> <title>",
		description: "Create a pull request",
		section:     sectionGitHub,
		surfaces:    SurfaceChat,
	},
	KindEditFile: {
		name:        "edit-file",
		aliases:     []string{"edit"},
		usage:       "edit <file> <content>",
		description: "Edit a file",
		section:     sectionGitHub,
		surfaces:    SurfaceChat,
	},
	KindTest: {
		name:        "test",
		usage:       "test [repo]",
		description: "Run automated tests",
		section:     sectionQuality,
		surfaces:    allSurfaces,
		longRunning: true,
		progress:    "🧪 Running Tests...",
		title:       "Test Results",
		emoji:       "🧪",
		check:       analysis.KindTest,
	},
	KindLint: {
		name:        "lint",
		usage:       "lint [repo]",
		description: "Run linting checks",
		section:     sectionQuality,
		surfaces:    allSurfaces,
		longRunning: true,
		progress:    "🔍 Running Linting Checks...",
		title:       "Lint Results",
		emoji:       "🔍",
		check:       analysis.KindLint,
	},
	KindSecurity: {
		name:        "security",
		usage:       "security [repo]",
		description: "Perform security scan",
		section:     sectionQuality,
		surfaces:    allSurfaces,
		longRunning: true,
		progress:    "🔒 Running Security Scan...",
		title:       "Security Analysis",
		emoji:       "🔒",
		check:       analysis.KindSecurity,
	},
	KindDependencies: {
		name:        "dependencies",
		aliases:     []string{"deps"},
		usage:       "dependencies [repo]",
		description: "Check dependency vulnerabilities",
		section:     sectionQuality,
		surfaces:    allSurfaces,
		longRunning: true,
		progress:    "📦 Checking Dependencies...",
		title:       "Dependency Check",
		emoji:       "📦",
		check:       analysis.KindDependencies,
	},
}

// lookup maps every name and alias to its kind.
var lookup = func() map[string]Kind {
	m := make(map[string]Kind)
	for _, k := range Kinds() {
		d := descriptors[k]
		m[d.name] = k
		for _, alias := range d.aliases {
			m[alias] = k
		}
	}
	return m
}()

// AvailableOn reports whether the command can be issued on surface.
func (k Kind) AvailableOn(surface Surface) bool {
	if k <= KindUnknown || k >= kindCount {
		return false
	}
	return descriptors[k].surfaces&surface != 0
}

// LongRunning reports whether the command posts a progress placeholder before
// its result on the comment surface.
func (k Kind) LongRunning() bool {
	if k <= KindUnknown || k >= kindCount {
		return false
	}
	return descriptors[k].longRunning
}

// Progress returns the placeholder text for a long running command.
func (k Kind) Progress() string {
	if !k.LongRunning() {
		return ""
	}
	return "**" + descriptors[k].progress + "**\n\n_This comment will be updated with the result._"
}
