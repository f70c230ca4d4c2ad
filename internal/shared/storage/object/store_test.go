package object

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewKeyIsFolderPrefixedAndTimeOrdered(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	key := NewKey("/documents/", "deed scan.pdf", now)
	if key != "documents/1700000000123-deed scan.pdf" {
		t.Fatalf("unexpected key %q", key)
	}

	later := NewKey("documents", "deed scan.pdf", now.Add(time.Millisecond))
	if !(later > key) {
		t.Fatalf("expected later key to sort after %q, got %q", key, later)
	}
}

func TestNewKeyFlattensUnsafeNames(t *testing.T) {
	now := time.UnixMilli(5)
	cases := map[string]string{
		"../etc/passwd": "documents/5-__etc_passwd",
		"deed..v2.pdf":  "documents/5-deed_v2.pdf",
		"  ":            "documents/5-file",
	}
	for in, want := range cases {
		if got := NewKey("documents", in, now); got != want {
			t.Fatalf("NewKey(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestURLRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		base string
		key  string
		want string
	}{
		{name: "plain", base: "https://cdn.example/files", key: "documents/1-a.pdf", want: "https://cdn.example/files/documents/1-a.pdf"},
		{name: "trailing slash", base: "https://cdn.example/files/", key: "documents/1-a.pdf", want: "https://cdn.example/files/documents/1-a.pdf"},
		{name: "spaces escaped", base: "http://localhost:8080/files", key: "properties/2-front door.png", want: "http://localhost:8080/files/properties/2-front%20door.png"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := URLForKey(tt.base, tt.key)
			if got != tt.want {
				t.Fatalf("URLForKey = %q, want %q", got, tt.want)
			}
			key, err := KeyFromURL(tt.base, got)
			if err != nil {
				t.Fatalf("KeyFromURL: %v", err)
			}
			if key != tt.key {
				t.Fatalf("KeyFromURL = %q, want %q", key, tt.key)
			}
		})
	}
}

func TestKeyFromURLRejectsForeignURLs(t *testing.T) {
	cases := []string{
		"https://other.example/files/documents/1-a.pdf",
		"https://cdn.example/files/",
		"https://cdn.example/files/documents/..%2Fsecret",
		"",
	}
	for _, raw := range cases {
		if _, err := KeyFromURL("https://cdn.example/files", raw); !errors.Is(err, ErrInvalidReference) {
			t.Fatalf("KeyFromURL(%q) expected ErrInvalidReference, got %v", raw, err)
		}
	}
}

func TestKeyFromURLIgnoresQuery(t *testing.T) {
	key, err := KeyFromURL("https://cdn.example/files", "https://cdn.example/files/documents/1-a.pdf?X-Amz-Signature=abc")
	if err != nil {
		t.Fatalf("KeyFromURL: %v", err)
	}
	if key != "documents/1-a.pdf" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestCheckFile(t *testing.T) {
	if err := CheckFile(File{Name: "a.pdf", Size: 0, Body: strings.NewReader("")}); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if err := CheckFile(File{Name: "a.pdf", Size: -1, Body: strings.NewReader("x")}); err != nil {
		t.Fatalf("unknown size should pass, got %v", err)
	}
}
