package command

import (
	"strings"
	"unicode"

	"github.com/XiaoConstantine/robinrelay/internal/github"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PullRequestRef identifies the pull request a comment command was issued on.
type PullRequestRef struct {
	Repo   github.Repo
	Number int
}

// Command is a parsed request from any surface.
type Command struct {
	Kind Kind
	// Name is the command word as the user typed it.
	Name string
	// Args is the text after the command word with its original case and
	// spacing.
	Args string

	UserID      string
	UserMention string
	Surface     Surface

	// PullRequest is set for commands issued in a pull request conversation.
	PullRequest *PullRequestRef
}

// Fields splits the arguments on whitespace.
func (c Command) Fields() []string {
	return strings.Fields(c.Args)
}

// fold lower-cases s for case-insensitive matching. A Caser keeps state, so a
// fresh one is used per call.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// ParseComment finds the first line of body that mentions the bot and parses
// the command that follows the mention. ok is false when no line mentions the
// bot. Unknown commands, a bare mention and commands not offered on the
// comment surface all resolve to help.
func ParseComment(body, mention string) (cmd Command, ok bool) {
	if strings.TrimSpace(mention) == "" {
		return Command{}, false
	}
	needle := fold(mention)

	for _, line := range strings.Split(body, "\n") {
		folded := fold(line)
		idx := strings.Index(folded, needle)
		if idx < 0 {
			continue
		}

		rest := folded[idx+len(needle):]
		if len(folded) == len(line) {
			rest = line[idx+len(needle):]
		}

		cmd = parseLine(rest)
		cmd.Surface = SurfaceComment
		if !cmd.Kind.AvailableOn(SurfaceComment) {
			cmd.Kind = KindHelp
		}
		return cmd, true
	}
	return Command{}, false
}

// ParseChat parses a chat message with any bot mention already removed.
// Empty input is a request for help; anything unrecognised is KindUnknown.
func ParseChat(text string) Command {
	cmd := parseLine(text)
	cmd.Surface = SurfaceChat
	if cmd.Name == "" {
		cmd.Kind = KindHelp
		return cmd
	}
	if !cmd.Kind.AvailableOn(SurfaceChat) {
		cmd.Kind = KindUnknown
	}
	return cmd
}

func parseLine(text string) Command {
	name, rest := splitHead(text)
	if name == "" {
		return Command{}
	}

	kind := lookup[fold(name)]
	if kind != KindUnknown {
		if suffix := descriptors[kind].suffix; suffix != "" {
			if next, after := splitHead(rest); fold(next) == suffix {
				rest = after
			}
		}
	}

	return Command{
		Kind: kind,
		Name: name,
		Args: strings.TrimSpace(rest),
	}
}

// splitHead returns the first whitespace separated word of s and whatever
// follows it.
func splitHead(s string) (head, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}

// unquote strips one pair of matching surrounding quotes. Chat clients often
// turn straight quotes into curly ones.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	pairs := [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"‘", "’"}, {"`", "`"}}
	for _, p := range pairs {
		if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return s[len(p[0]) : len(s)-len(p[1])]
		}
	}
	return s
}
