package params

import (
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantTriggers []string
		wantParams   Params
	}{
		{
			name:         "single trigger",
			text:         "draw a red cat",
			wantTriggers: []string{"draw"},
			wantParams:   Params{PromptKey: String("a red cat")},
		},
		{
			name:         "multiple aliases",
			text:         "[a,b,c] rest of it",
			wantTriggers: []string{"a", "b", "c"},
			wantParams:   Params{PromptKey: String("rest of it")},
		},
		{
			name:         "integer option",
			text:         "draw --count 5 x",
			wantTriggers: []string{"draw"},
			wantParams:   Params{PromptKey: String("--count 5 x")},
		},
		{
			name:         "typed options",
			text:         "draw cat --min_images 5 --google_search true --aspect_ratio 16:9",
			wantTriggers: []string{"draw"},
			wantParams: Params{
				PromptKey:    String("cat"),
				MinImages:    Int(5),
				GoogleSearch: Bool(true),
				AspectRatio:  String("16:9"),
			},
		},
		{
			name:         "false literal",
			text:         "draw --only_image_response false dog",
			wantTriggers: []string{"draw"},
			wantParams: Params{
				PromptKey:         String("dog"),
				OnlyImageResponse: Bool(false),
			},
		},
		{
			name:         "flag followed by flag",
			text:         "draw --google_search --max_images 2 sky",
			wantTriggers: []string{"draw"},
			wantParams: Params{
				PromptKey:    String("sky"),
				GoogleSearch: Bool(true),
				MaxImages:    Int(2),
			},
		},
		{
			name:         "trailing flag",
			text:         "draw sky --google_search",
			wantTriggers: []string{"draw"},
			wantParams: Params{
				PromptKey:    String("sky"),
				GoogleSearch: Bool(true),
			},
		},
		{
			name:         "unknown flag followed by allowed flag stays text",
			text:         "draw --image_size --style anime",
			wantTriggers: []string{"draw"},
			wantParams: Params{
				PromptKey: String("--style anime"),
				ImageSize: Bool(true),
			},
		},
		{
			name:         "whitespace collapsed",
			text:         "  draw   a    cat  ",
			wantTriggers: []string{"draw"},
			wantParams:   Params{PromptKey: String("a cat")},
		},
		{
			name:         "empty aliases dropped",
			text:         "[a,,b]",
			wantTriggers: []string{"a", "b"},
			wantParams:   Params{PromptKey: String("")},
		},
		{
			name:       "empty input",
			text:       "   ",
			wantParams: Params{PromptKey: String("")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Parse(tt.text)
			assert.Equal(t, tt.wantTriggers, cmd.Triggers)
			assert.Equal(t, tt.wantParams, cmd.Params)
		})
	}
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, Int(5), Coerce("5"))
	assert.Equal(t, Bool(true), Coerce("true"))
	assert.Equal(t, Bool(false), Coerce("false"))
	assert.Equal(t, String("foo"), Coerce("foo"))
	assert.Equal(t, String("-5"), Coerce("-5"))
	assert.Equal(t, String("True"), Coerce("True"))
	assert.Equal(t, String("99999999999999999999999"), Coerce("99999999999999999999999"))
}

func TestCommandStringRoundTrip(t *testing.T) {
	for _, text := range []string{
		"draw a cat --min_images 0",
		"[a,b] anything --google_search true --image_size 2K",
		"solo",
	} {
		cmd := Parse(text)
		again := Parse(cmd.String())
		assert.Equal(t, cmd, again, text)
	}

	assert.Equal(t, "[a,b] cat --max_images 2 --min_images 1",
		Parse("[a,b] --min_images 1 cat --max_images 2").String())
}

func TestParamsAccessorsAndMerge(t *testing.T) {
	base := Params{MinImages: Int(1), ReferImages: Int(7), PromptKey: String("x")}
	user := Params{MinImages: Int(3), GoogleSearch: Bool(true)}

	merged := base.Merge(user)
	v, ok := merged.Int(MinImages)
	require.True(t, ok)
	assert.Equal(t, 3, v)

	s, ok := merged.String(ReferImages)
	require.True(t, ok)
	assert.Equal(t, "7", s)

	_, ok = merged.Bool(MinImages)
	assert.False(t, ok)

	assert.Equal(t, "x", merged.Prompt())
	assert.NotContains(t, merged.Options(), PromptKey)

	v, _ = base.Int(MinImages)
	assert.Equal(t, 1, v, "merge must not mutate the receiver")
}

func TestParsePreservesTextOrder(t *testing.T) {
	const (
		plainWord = iota
		valuePair
		bareFlag
		unknownFlag
	)
	word := rapid.StringMatching(`[a-zA-Z0-9:,.!?][a-zA-Z0-9:,.!?\-]{0,9}`)
	value := rapid.StringMatching(`[a-z0-9:,.]{1,8}`)
	unknown := rapid.StringMatching(`[a-z]{3,8}`).Filter(func(s string) bool { return !lo.Contains(Allowed, s) })

	rapid.Check(t, func(t *rapid.T) {
		kinds := rapid.SliceOf(rapid.IntRange(plainWord, unknownFlag)).Draw(t, "kinds")

		var tokens, plain, flags []string
		for i, kind := range kinds {
			// A bare flag followed by a word would take it as its value.
			if kind == bareFlag && i+1 < len(kinds) && kinds[i+1] == plainWord {
				kind = valuePair
			}

			switch kind {
			case plainWord:
				w := word.Draw(t, "word")
				tokens, plain = append(tokens, w), append(plain, w)
			case unknownFlag:
				w := "--" + unknown.Draw(t, "unknown")
				tokens, plain = append(tokens, w), append(plain, w)
			case valuePair:
				name := rapid.SampledFrom(Allowed).Draw(t, "flag")
				tokens, flags = append(tokens, "--"+name, value.Draw(t, "value")), append(flags, name)
			case bareFlag:
				name := rapid.SampledFrom(Allowed).Draw(t, "flag")
				tokens, flags = append(tokens, "--"+name), append(flags, name)
			}
		}

		cmd := Parse("go " + strings.Join(tokens, " "))
		if got, want := cmd.Params.Prompt(), strings.Join(plain, " "); got != want {
			t.Fatalf("prompt %q, want %q (input %q)", got, want, tokens)
		}
		for _, name := range flags {
			if _, ok := cmd.Params[name]; !ok {
				t.Fatalf("flag %q missing from %v", name, cmd.Params)
			}
		}
	})
}
