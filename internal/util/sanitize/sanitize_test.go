package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "clean name unchanged",
			input: "Team Rocket",
			want:  "Team Rocket",
		},
		{
			name:  "path separators replaced",
			input: `a/b\c`,
			want:  "a_b_c",
		},
		{
			name:  "all reserved characters replaced",
			input: `\/:*?"<>|`,
			want:  "_________",
		},
		{
			name:  "mixed reserved and text",
			input: `Project: "Final" <v2>?`,
			want:  `Project_ _Final_ _v2__`,
		},
		{
			name:  "zero width characters stripped",
			input: "Te​am\uFEFF",
			want:  "Team",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  spaced out  ",
			want:  "spaced out",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "unicode preserved",
			input: "参赛队伍",
			want:  "参赛队伍",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.input))
		})
	}
}

// Round-tripping a name containing reserved characters must never
// reproduce them in the output.
func TestFilenameNeverEmitsReserved(t *testing.T) {
	inputs := []string{
		`..\..\etc\passwd`,
		`CON:|aux?`,
		`a"b"c`,
		`x<y>z`,
		`weird*name`,
	}
	for _, in := range inputs {
		out := Filename(in)
		assert.False(t, strings.ContainsAny(out, reserved),
			"Filename(%q) = %q still contains reserved characters", in, out)
	}
}
