package prompt

import (
	"fmt"
	"strings"

	"github.com/satbench-ai/satbench/pkg/config"
	"github.com/satbench-ai/satbench/pkg/models"
)

// Representations of a CNF formula in the prompt body.
const (
	ReprHornRules  = "horn_rules"
	ReprCNFNL      = "cnf_nl"
	ReprCNFCompact = "cnf_compact"
)

// ValidRepresentation reports whether repr names a known representation.
func ValidRepresentation(repr string) bool {
	switch repr {
	case ReprHornRules, ReprCNFNL, ReprCNFCompact:
		return true
	}
	return false
}

// Render produces the full prompt for a row under the given branch: the
// formula is rendered in the branch's representation and substituted into
// the branch's template as ${clauses}, together with any fixed variables.
func Render(row models.ProblemRow, branch *config.PromptBranch, suiteTemplates map[string]string) (string, error) {
	clauses, err := RenderFormula(row.CNF, branch.Representation)
	if err != nil {
		return "", err
	}

	tmpl, err := Lookup(branch.Template, suiteTemplates)
	if err != nil {
		return "", err
	}

	vars := map[string]string{"clauses": clauses}
	for k, v := range branch.Variables {
		vars[k] = v
	}
	return Expand(tmpl, vars)
}

// RenderFormula renders every clause in the representation and joins the
// clause lines with newlines. Rendering is pure: the same row and
// representation always produce identical bytes.
func RenderFormula(cnf [][]int, repr string) (string, error) {
	lines := make([]string, 0, len(cnf))
	for _, clause := range cnf {
		line, err := RenderClause(clause, repr)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// RenderClause renders a single clause.
func RenderClause(clause []int, repr string) (string, error) {
	switch repr {
	case ReprHornRules:
		return hornRulesClause(clause), nil
	case ReprCNFNL:
		return nlClause(clause), nil
	case ReprCNFCompact:
		return compactClause(clause), nil
	default:
		return "", fmt.Errorf("unknown representation %q", repr)
	}
}

// hornRulesClause renders Horn clauses as facts and implications; p0 stands
// for falsum in all-negative clauses. Non-Horn clauses degrade to the
// compact disjunctive form.
func hornRulesClause(clause []int) string {
	var pos []int
	var neg []int
	for _, lit := range clause {
		if lit > 0 {
			pos = append(pos, lit)
		} else {
			neg = append(neg, -lit)
		}
	}

	switch {
	case len(pos) == 1 && len(neg) == 0:
		return fmt.Sprintf("p%d.", pos[0])
	case len(pos) == 0:
		return fmt.Sprintf("if %s then p0.", andChain(neg))
	case len(pos) == 1:
		return fmt.Sprintf("if %s then p%d.", andChain(neg), pos[0])
	default:
		return compactClause(clause)
	}
}

func andChain(vars []int) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = fmt.Sprintf("p%d", v)
	}
	return strings.Join(parts, " and ")
}

// nlClause renders a clause as "pX is true or pY is false."
func nlClause(clause []int) string {
	parts := make([]string, len(clause))
	for i, lit := range clause {
		if lit > 0 {
			parts[i] = fmt.Sprintf("p%d is true", lit)
		} else {
			parts[i] = fmt.Sprintf("p%d is false", -lit)
		}
	}
	return strings.Join(parts, " or ") + "."
}

// compactClause renders a clause as "pX or not(pY)."
func compactClause(clause []int) string {
	parts := make([]string, len(clause))
	for i, lit := range clause {
		if lit > 0 {
			parts[i] = fmt.Sprintf("p%d", lit)
		} else {
			parts[i] = fmt.Sprintf("not(p%d)", -lit)
		}
	}
	return strings.Join(parts, " or ") + "."
}
