package repository

import "testing"

func TestSortClause(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "n.created_at DESC"},
		{"created_at", "n.created_at ASC"},
		{"-created_at", "n.created_at DESC"},
		{"updated_at", "n.updated_at ASC"},
		{"-updated_at", "n.updated_at DESC"},
		{"title", "n.created_at DESC"},
		{"-title", "n.created_at DESC"},
		{"id; DROP TABLE notes", "n.created_at DESC"},
	}
	for _, tc := range cases {
		if got := sortClause(tc.in); got != tc.want {
			t.Errorf("sortClause(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
