package httpproto

import "testing"

func TestPathFromURI(t *testing.T) {
	tests := []struct{ uri, want string }{
		{"/a/b/c", "/a/b/c"},
		{"/a/b?x=1&y=2", "/a/b"},
		{"/a/./b", "/a/b"},
		{"/a/b/../c", "/a/c"},
		{"/../a", "/a"},
		{"//a//b", "/a/b"},
		{"/", "/"},
		{"", "/"},
	}
	for _, tt := range tests {
		if got := PathFromURI(tt.uri); got != tt.want {
			t.Errorf("PathFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}
