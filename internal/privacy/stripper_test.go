package privacy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripPrivate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no tags", "fix the login flow", "fix the login flow"},
		{"single span", "use key <private>sk-123</private> here", "use key  here"},
		{"multiple spans", "<private>a</private> and <private>b</private>", " and "},
		{"multiline span", "before <private>line1\nline2</private> after", "before  after"},
		{"unclosed tag kept", "oops <private>no closer", "oops <private>no closer"},
		{"closing tag alone kept", "stray </private> here", "stray </private> here"},
		{"case sensitive", "<PRIVATE>shout</PRIVATE>", "<PRIVATE>shout</PRIVATE>"},
		{"other tags untouched", "see <div>markup</div>", "see <div>markup</div>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripPrivate(tt.input))
		})
	}
}

func TestStripInjected(t *testing.T) {
	input := "<memkeep-context>\n# Memory index: proj\n</memkeep-context>\nplease continue"
	assert.Equal(t, "\nplease continue", StripInjected(input))
	assert.Equal(t, "untouched", StripInjected("untouched"))
}

func TestClean(t *testing.T) {
	input := "  <memkeep-context>index</memkeep-context> do it <private>token=abc</private>  "
	assert.Equal(t, "do it", Clean(input))
	assert.Equal(t, "", Clean("  <private>all secret</private>  "))
}

func TestCleanLargeSpan(t *testing.T) {
	secret := strings.Repeat("x", 10000)
	assert.Equal(t, "keep this", Clean("keep this <private>"+secret+"</private>"))
}

func TestIsEntirelyPrivate(t *testing.T) {
	assert.False(t, IsEntirelyPrivate("plain prompt"))
	assert.False(t, IsEntirelyPrivate("visible <private>hidden</private>"))
	assert.True(t, IsEntirelyPrivate("<private>everything</private>"))
	assert.True(t, IsEntirelyPrivate(" <private>a</private><private>b</private> "))
	assert.True(t, IsEntirelyPrivate("   "))
}

func TestNestedSpansMatchFirstCloser(t *testing.T) {
	assert.Equal(t, " tail</private>",
		StripPrivate("<private>a <private>b</private> tail</private>"))
}
