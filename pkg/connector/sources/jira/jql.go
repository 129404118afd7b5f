package jira

import (
	"fmt"
	"strings"
)

// buildJQL composes the issue search filter from an optional lower bound, an
// optional exclusive upper bound, and an optional raw user clause. Bounds
// apply to both the created and updated timestamps so that issues created
// before the window but touched inside it are still picked up. All present
// fragments are AND-ed; absent fragments leave no trace in the output.
func buildJQL(lower, upper, raw string) string {
	var clauses []string

	if lower != "" {
		clauses = append(clauses, fmt.Sprintf("(created>='%s' or updated>='%s')", lower, lower))
	}
	if upper != "" {
		clauses = append(clauses, fmt.Sprintf("(created<'%s' or updated<'%s')", upper, upper))
	}
	if raw != "" {
		clauses = append(clauses, fmt.Sprintf("(%s)", raw))
	}

	return strings.Join(clauses, " and ")
}
