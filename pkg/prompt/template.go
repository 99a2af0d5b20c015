package prompt

import (
	"fmt"
	"strings"
)

// builtins are the named templates shipped with the runner. Suites can
// overlay these via prompting.templates.
var builtins = map[string]string{
	"sat_decide_v1": "Consider the following propositional clauses. Each line is one clause; " +
		"the full problem is the conjunction of all lines.\n\n${clauses}\n\n" +
		"Decide whether the conjunction is satisfiable or a contradiction. " +
		"End your reply with a single word: SATISFIABLE or CONTRADICTION.",

	"horn_entail_v1": "You are given facts and rules about propositions p1, p2, ... " +
		"The symbol p0 stands for falsum.\n\n${clauses}\n\n" +
		"Can p0 be derived from these facts and rules? Answer YES or NO.",

	"cnf_nl_decide_v1": "The statements below must all hold at the same time.\n\n${clauses}\n\n" +
		"Is there an assignment of truth values that makes every statement hold? " +
		"Finish with SATISFIABLE if one exists, otherwise CONTRADICTION.",
}

// Lookup resolves a template name against the suite overlay first, then the
// built-ins.
func Lookup(name string, suiteTemplates map[string]string) (string, error) {
	if body, ok := suiteTemplates[name]; ok {
		return body, nil
	}
	if body, ok := builtins[name]; ok {
		return body, nil
	}
	return "", fmt.Errorf("unknown prompt template %q", name)
}

// Expand substitutes ${var} tokens in tmpl. An undefined variable is a fatal
// rendering error; a literal "${" without a closing brace is one too.
func Expand(tmpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	for {
		i := strings.Index(tmpl, "${")
		if i < 0 {
			b.WriteString(tmpl)
			return b.String(), nil
		}
		b.WriteString(tmpl[:i])
		rest := tmpl[i+2:]
		j := strings.IndexByte(rest, '}')
		if j < 0 {
			return "", fmt.Errorf("unterminated ${ in template")
		}
		name := rest[:j]
		val, ok := vars[name]
		if !ok {
			return "", fmt.Errorf("undefined template variable %q", name)
		}
		b.WriteString(val)
		tmpl = rest[j+1:]
	}
}
