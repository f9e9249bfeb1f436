package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Package
	}{
		{
			name: "object fields",
			json: `{"name":"kit","version":"1.2.0","description":"A kit","license":"MIT",
				"author":{"name":"Jane Doe","email":"jane@example.com"},
				"repository":{"type":"git","url":"https://example.com/kit"}}`,
			want: Package{Name: "kit", Version: "1.2.0", Description: "A kit", License: "MIT", Author: "Jane Doe", Repository: "https://example.com/kit"},
		},
		{
			name: "string fields",
			json: `{"name":"kit","author":"Jane Doe <jane@example.com>","repository":"github:jane/kit"}`,
			want: Package{Name: "kit", Author: "Jane Doe <jane@example.com>", Repository: "github:jane/kit"},
		},
		{
			name: "empty",
			json: `{}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.json))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte(`{"name":`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	pkg, err := Load(filepath.Join(dir, "package.json"))
	if err != nil || pkg != (Package{}) {
		t.Fatalf("expected zero package for missing file, got %+v, %v", pkg, err)
	}

	path := filepath.Join(dir, "package.json")
	if err := os.WriteFile(path, []byte(`{"name":"kit","version":"2.0.0"}`), 0644); err != nil {
		t.Fatal(err)
	}
	pkg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if pkg.Name != "kit" || pkg.Version != "2.0.0" {
		t.Errorf("unexpected package %+v", pkg)
	}
}
