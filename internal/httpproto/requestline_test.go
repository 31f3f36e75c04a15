package httpproto

import "testing"

func TestParseRequestLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    RequestLine
		wantErr bool
	}{
		{
			name: "simple GET",
			line: "GET /hello HTTP/1.1",
			want: RequestLine{Method: "GET", URI: "/hello", Version: "HTTP/1.1"},
		},
		{
			name: "no spaces",
			line: "GET/helloHTTP/1.1",
			wantErr: true,
		},
		{
			name:    "one space only",
			line:    "GET /hello",
			wantErr: true,
		},
		{
			name:    "three spaces",
			line:    "GET / extra HTTP/1.1",
			wantErr: true,
		},
		{
			name: "empty uri",
			line: "GET  HTTP/1.1",
			want: RequestLine{Method: "GET", URI: "", Version: "HTTP/1.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequestLine([]byte(tt.line))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
