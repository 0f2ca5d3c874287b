package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const mention = "@robin-relay-bot"

func TestParseComment(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantKind Kind
		wantName string
		wantArgs string
	}{
		{
			name:     "mixed case with extra words",
			body:     "@robin-relay-bot   ANALYZE extra",
			wantOK:   true,
			wantKind: KindAnalyze,
			wantName: "ANALYZE",
			wantArgs: "extra",
		},
		{
			name:     "mention on a later line",
			body:     "Looks good overall.\nHey @Robin-Relay-Bot review please",
			wantOK:   true,
			wantKind: KindReview,
			wantName: "review",
			wantArgs: "please",
		},
		{
			name:     "bare mention",
			body:     "thanks @robin-relay-bot",
			wantOK:   true,
			wantKind: KindHelp,
		},
		{
			name:     "unknown command",
			body:     "@robin-relay-bot frobnicate",
			wantOK:   true,
			wantKind: KindHelp,
			wantName: "frobnicate",
		},
		{
			name:     "chat only command",
			body:     "@robin-relay-bot create pr dev main title",
			wantOK:   true,
			wantKind: KindHelp,
			wantName: "create",
			wantArgs: "dev main title",
		},
		{
			name:     "alias",
			body:     "@robin-relay-bot deps",
			wantOK:   true,
			wantKind: KindDependencies,
			wantName: "deps",
		},
		{
			name:   "no mention",
			body:   "please analyze this",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := ParseComment(tt.body, mention)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantKind, cmd.Kind)
			assert.Equal(t, tt.wantName, cmd.Name)
			assert.Equal(t, tt.wantArgs, cmd.Args)
			assert.Equal(t, SurfaceComment, cmd.Surface)
		})
	}
}

func TestParseComment_EmptyMention(t *testing.T) {
	_, ok := ParseComment("@robin-relay-bot help", "  ")
	assert.False(t, ok)
}

func TestParseChat(t *testing.T) {
	tests := []struct {
		text     string
		wantKind Kind
		wantArgs string
	}{
		{"", KindHelp, ""},
		{"   ", KindHelp, ""},
		{"help", KindHelp, ""},
		{"HI", KindHello, ""},
		{"create pr dev main New feature", KindCreatePR, "dev main New feature"},
		{"CREATE PR dev main \"New feature\"", KindCreatePR, "dev main \"New feature\""},
		{"pr dev main fix", KindCreatePR, "dev main fix"},
		{"list branches octo/widgets", KindListBranches, "octo/widgets"},
		{"list octo/widgets", KindListBranches, "octo/widgets"},
		{"branches", KindListBranches, ""},
		{"edit README.md Hello  World", KindEditFile, "README.md Hello  World"},
		{"analyze octo/widgets 12", KindAnalyze, "octo/widgets 12"},
		{"deploy now", KindUnknown, "now"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd := ParseChat(tt.text)
			assert.Equal(t, tt.wantKind, cmd.Kind)
			assert.Equal(t, tt.wantArgs, cmd.Args)
			assert.Equal(t, SurfaceChat, cmd.Surface)
		})
	}
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "New feature", unquote(`"New feature"`))
	assert.Equal(t, "New feature", unquote("“New feature”"))
	assert.Equal(t, "it's", unquote("it's"))
	assert.Equal(t, `"`, unquote(`"`))
	assert.Equal(t, "plain", unquote("  plain "))
}

func TestDescriptorsAreComplete(t *testing.T) {
	for _, k := range Kinds() {
		d := descriptors[k]
		assert.NotEmpty(t, d.name, "kind %d", k)
		assert.NotEmpty(t, d.usage, k.String())
		assert.NotEmpty(t, d.description, k.String())
		assert.NotZero(t, d.surfaces, k.String())
		assert.Equal(t, k, lookup[d.name], k.String())
		if d.longRunning {
			assert.NotEmpty(t, d.progress, k.String())
			assert.NotEmpty(t, d.title, k.String())
			assert.NotEmpty(t, d.check, k.String())
		}
	}
}

// Command words match regardless of case, and whatever the comment says the
// parser resolves to a command the comment surface offers.
func TestParseComment_CaseInsensitive(t *testing.T) {
	var words []string
	for word := range lookup {
		words = append(words, word)
	}

	rapid.Check(t, func(t *rapid.T) {
		word := rapid.SampledFrom(words).Draw(t, "word")
		upper := rapid.SliceOfN(rapid.Bool(), len(word), len(word)).Draw(t, "upper")
		tail := rapid.StringMatching(`[a-z0-9 ]{0,20}`).Draw(t, "tail")

		var b strings.Builder
		for i, r := range word {
			if upper[i] {
				b.WriteString(strings.ToUpper(string(r)))
			} else {
				b.WriteRune(r)
			}
		}

		cmd, ok := ParseComment("@ROBIN-relay-bot "+b.String()+" "+tail, mention)
		if !ok {
			t.Fatalf("mention not found")
		}
		want := lookup[word]
		if !want.AvailableOn(SurfaceComment) {
			want = KindHelp
		}
		if cmd.Kind != want {
			t.Fatalf("got %s, want %s", cmd.Kind, want)
		}
	})
}

func TestParseChat_NeverYieldsUnavailableKind(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		cmd := ParseChat(text)
		if cmd.Kind != KindUnknown && !cmd.Kind.AvailableOn(SurfaceChat) {
			t.Fatalf("%q parsed to %s", text, cmd.Kind)
		}
	})
}
