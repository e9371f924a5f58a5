package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		fallback []string
		want     []string
	}{
		{"no fallback", "sfx/kick.wav", nil, []string{"sfx/kick.wav"}},
		{"replaces extension", "music/theme.m4a", []string{"ogg", ".mp3"},
			[]string{"music/theme.m4a", "music/theme.ogg", "music/theme.mp3"}},
		{"keeps query", "https://cdn.example/theme.m4a?v=2", []string{"ogg"},
			[]string{"https://cdn.example/theme.m4a?v=2", "https://cdn.example/theme.ogg?v=2"}},
		{"keeps fragment", "theme.m4a#t=1", []string{"ogg"},
			[]string{"theme.m4a#t=1", "theme.ogg#t=1"}},
		{"no extension", "streams/theme", []string{"ogg"},
			[]string{"streams/theme", "streams/theme.ogg"}},
		{"skips blanks", "theme.m4a", []string{" ", ""}, []string{"theme.m4a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Candidates(tt.src, tt.fallback))
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	oggOnly := func(ext string) bool { return ext == "ogg" }
	assert.Equal(t, "theme.ogg", Resolve("theme.m4a", []string{"mp3", "ogg"}, oggOnly))
	assert.Equal(t, "theme.ogg", Resolve("theme.ogg", []string{"mp3"}, oggOnly), "primary wins when decodable")
	assert.Equal(t, "theme.m4a", Resolve("theme.m4a", []string{"mp3"}, oggOnly), "primary kept when nothing decodes")
	assert.Equal(t, "theme.m4a", Resolve("theme.m4a", []string{"ogg"}, nil))
	assert.Equal(t, "theme.wav", Resolve("theme.wav", nil, func(string) bool { return true }))
}

func TestExt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "wav", Ext("sfx/Kick.WAV"))
	assert.Equal(t, "ogg", Ext("https://cdn.example/a.b/theme.ogg?x=y.mp3"))
	assert.Equal(t, "", Ext("https://cdn.example/a.b/theme"))
	assert.Equal(t, "", Ext("aurb://drums/kick"))
}

func TestBankURL(t *testing.T) {
	t.Parallel()

	src := BankURL("drums", "ui/click 2")
	assert.Equal(t, "aurb://drums/ui%2Fclick%202", src)

	bankID, id, ok := ParseBankURL(src)
	assert.True(t, ok)
	assert.Equal(t, "drums", bankID)
	assert.Equal(t, "ui/click 2", id)

	for _, bad := range []string{"https://drums/kick", "aurb://drums", "aurb:///kick", "aurb://drums/", "aurb://drums/%zz"} {
		_, _, ok := ParseBankURL(bad)
		assert.False(t, ok, bad)
	}
}

func TestBankIDFromURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "drums", bankIDFromURL("https://cdn.example/banks/drums.aurb?sig=abc"))
	assert.Equal(t, "drums", bankIDFromURL("drums.aurb"))
}
