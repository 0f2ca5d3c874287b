// Package comment turns pull request comments that mention the bot into
// commands and posts their results back to the thread.
package comment

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Identity describes the bot as seen on the code host.
type Identity struct {
	// Mention is the token users address the bot with, e.g. "@robin-relay-bot".
	Mention string

	logins map[string]bool
	// substring flags any login containing "bot". It catches unregistered
	// helper bots at the cost of ignoring humans with "bot" in their name.
	substring bool
}

// NewIdentity creates an identity. logins are the accounts the bot posts as,
// compared case-insensitively; the mention token's login is always included.
func NewIdentity(mention string, logins []string, substringHeuristic bool) *Identity {
	id := &Identity{
		Mention:   mention,
		logins:    make(map[string]bool),
		substring: substringHeuristic,
	}
	id.AddLogin(strings.TrimPrefix(mention, "@"))
	for _, login := range logins {
		id.AddLogin(login)
	}
	return id
}

// AddLogin registers another account the bot posts as.
func (i *Identity) AddLogin(login string) {
	login = strings.TrimSpace(login)
	if login != "" {
		i.logins[fold(login)] = true
	}
}

// IsSelf reports whether login is one of the bot's own accounts.
func (i *Identity) IsSelf(login string) bool {
	return i.logins[fold(login)]
}

// IsBot reports whether a comment author must be ignored. accountType is the
// code host's account type, "Bot" for app accounts.
func (i *Identity) IsBot(login, accountType string) bool {
	if strings.EqualFold(accountType, "Bot") {
		return true
	}
	folded := fold(login)
	if i.logins[folded] || strings.HasSuffix(folded, "[bot]") {
		return true
	}
	return i.substring && strings.Contains(folded, "bot")
}

func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}
