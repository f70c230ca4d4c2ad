package util

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "deed.pdf", want: "deed.pdf"},
		{in: "  front photo.png ", want: "front photo.png"},
		{in: "scans/2024/deed.pdf", want: "scans_2024_deed.pdf"},
		{in: `c:\docs\lien.pdf`, want: "c:_docs_lien.pdf"},
		{in: "deed..v2.pdf", want: "deed_v2.pdf"},
		{in: "../etc/passwd", want: "__etc_passwd"},
		{in: "   ", want: "file"},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
