package registry

import (
	"path/filepath"
	"testing"
)

func TestNormalizeWorkdir(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"", ""},
		{".", ""},
		{"./", ""},
		{"  ", ""},
		{"notes", "notes"},
		{"notes/", "notes"},
		{"/notes", "notes"},
		{"./notes", "notes"},
		{"notes//daily", "notes/daily"},
		{"notes/./daily", "notes/daily"},
		{`notes\daily`, "notes/daily"},
		{"a/b/c", "a/b/c"},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := NormalizeWorkdir(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("NormalizeWorkdir(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeWorkdirRejectsTraversal(t *testing.T) {
	inputs := []string{"..", "../", "../secret", "notes/..", "notes/../other", "a/../../b"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			if _, err := NormalizeWorkdir(input); err == nil {
				t.Errorf("expected error for %q, got none", input)
			}
		})
	}
}

func TestWorkdirAbs(t *testing.T) {
	root := filepath.Join("/", "vaults", "main")

	if got := WorkdirAbs(root, ""); got != root {
		t.Errorf("empty workdir should resolve to the root, got %q", got)
	}

	want := filepath.Join(root, "notes", "daily")
	if got := WorkdirAbs(root, "notes/daily"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
