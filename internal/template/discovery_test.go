package template

import "testing"

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"counter_app", "counter_app", false},
		{"../../etc/passwd", "etcpasswd", false},
		{"a/b/c", "abc", false},
		{"  ", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := SanitizeName(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("SanitizeName(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("SanitizeName(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
