package jira

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildJQL(t *testing.T) {
	tests := []struct {
		name  string
		lower string
		upper string
		raw   string
		want  string
	}{
		{
			name: "all empty",
			want: "",
		},
		{
			name:  "lower bound only",
			lower: "2024-01-01",
			want:  "(created>='2024-01-01' or updated>='2024-01-01')",
		},
		{
			name:  "upper bound only",
			upper: "2024-06-01",
			want:  "(created<'2024-06-01' or updated<'2024-06-01')",
		},
		{
			name: "raw clause only",
			raw:  "project = ENG",
			want: "(project = ENG)",
		},
		{
			name:  "lower and upper",
			lower: "2024-01-01",
			upper: "2024-06-01",
			want:  "(created>='2024-01-01' or updated>='2024-01-01') and (created<'2024-06-01' or updated<'2024-06-01')",
		},
		{
			name:  "all fragments",
			lower: "2024-01-01",
			upper: "2024-06-01",
			raw:   "status != Done",
			want:  "(created>='2024-01-01' or updated>='2024-01-01') and (created<'2024-06-01' or updated<'2024-06-01') and (status != Done)",
		},
		{
			name:  "raw with lower only",
			lower: "2024-01-01",
			raw:   "assignee is not EMPTY",
			want:  "(created>='2024-01-01' or updated>='2024-01-01') and (assignee is not EMPTY)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildJQL(tt.lower, tt.upper, tt.raw))
		})
	}
}
