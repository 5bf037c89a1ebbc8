package params

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	MinImages         = "min_images"
	MaxImages         = "max_images"
	ReferImages       = "refer_images"
	ImageSize         = "image_size"
	AspectRatio       = "aspect_ratio"
	GoogleSearch      = "google_search"
	OnlyImageResponse = "only_image_response"

	// PromptKey holds the free text left after flags are removed.
	PromptKey = "prompt"
)

// Allowed lists the option names recognised after a "--" prefix. Any other
// flag is kept as prompt text.
var Allowed = []string{
	MinImages,
	MaxImages,
	ReferImages,
	ImageSize,
	AspectRatio,
	GoogleSearch,
	OnlyImageResponse,
}

type Params map[string]Value

func (p Params) Bool(key string) (bool, bool) {
	v, ok := p[key]
	if !ok || v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

func (p Params) Int(key string) (int, bool) {
	v, ok := p[key]
	if !ok || v.Kind != KindInt {
		return 0, false
	}
	return v.Int, true
}

// String returns the textual form of any value kind, so "--refer_images 1"
// still names the file "1".
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	return v.String(), true
}

func (p Params) Prompt() string {
	s, _ := p.String(PromptKey)
	return s
}

// Merge returns a copy of p with every value of override applied on top.
func (p Params) Merge(override Params) Params {
	merged := make(Params, len(p)+len(override))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// Options returns a copy without the prompt text.
func (p Params) Options() Params {
	return lo.OmitByKeys(p, []string{PromptKey})
}

// Format renders the options back into "--key value" flags, sorted by name.
func (p Params) Format() string {
	keys := lo.Without(lo.Keys(p), PromptKey)
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, "--"+k+" "+p[k].String())
	}
	return strings.Join(parts, " ")
}
