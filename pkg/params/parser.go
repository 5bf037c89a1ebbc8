package params

import (
	"strings"

	"github.com/samber/lo"
)

// Command is a parsed command line: the trigger aliases from the leading
// token and the options, including the reconstructed prompt text.
type Command struct {
	Triggers []string
	Params   Params
}

// Parse splits text on whitespace. The first token is the trigger, or a
// bracketed alias list like "[a,b,c]". Allowed "--name value" pairs become
// typed options; a flag with no value, or followed by another flag, is true.
// All remaining tokens are joined back with single spaces as the prompt.
func Parse(text string) Command {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Command{Params: Params{PromptKey: String("")}}
	}

	cmd := Command{
		Triggers: parseTriggers(tokens[0]),
		Params:   Params{},
	}

	var filtered []string
	rest := tokens[1:]
	for i := 0; i < len(rest); i++ {
		token := rest[i]
		key, isFlag := strings.CutPrefix(token, "--")
		if !isFlag || !lo.Contains(Allowed, key) {
			filtered = append(filtered, token)
			continue
		}

		if i+1 >= len(rest) || strings.HasPrefix(rest[i+1], "--") {
			cmd.Params[key] = Bool(true)
			continue
		}

		i++
		cmd.Params[key] = Coerce(rest[i])
	}

	cmd.Params[PromptKey] = String(strings.Join(filtered, " "))
	return cmd
}

func parseTriggers(token string) []string {
	if len(token) >= 2 && strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]") {
		return lo.Compact(strings.Split(token[1:len(token)-1], ","))
	}
	return []string{token}
}

// String writes the command back in the form Parse reads.
func (c Command) String() string {
	head := strings.Join(c.Triggers, ",")
	if len(c.Triggers) > 1 {
		head = "[" + head + "]"
	}

	parts := []string{head}
	if prompt := c.Params.Prompt(); prompt != "" {
		parts = append(parts, prompt)
	}
	if flags := c.Params.Format(); flags != "" {
		parts = append(parts, flags)
	}
	return strings.Join(parts, " ")
}
