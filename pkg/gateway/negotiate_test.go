package gateway

import (
	"errors"
	"testing"
)

func TestNegotiateMode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		accept  string
		def     responseMode
		want    responseMode
		wantErr bool
	}{
		{name: "absent header uses default", accept: "", def: modeJSON, want: modeJSON},
		{name: "absent header uses stream default", accept: "", def: modeSSE, want: modeSSE},
		{name: "json only", accept: "application/json", def: modeSSE, want: modeJSON},
		{name: "sse only", accept: "text/event-stream", def: modeJSON, want: modeSSE},
		{name: "both supported uses default", accept: "application/json, text/event-stream", def: modeJSON, want: modeJSON},
		{name: "both with params", accept: "application/json;q=0.9, text/event-stream;q=0.8", def: modeSSE, want: modeSSE},
		{name: "wildcard uses default", accept: "*/*", def: modeJSON, want: modeJSON},
		{name: "text wildcard uses default", accept: "text/*", def: modeSSE, want: modeSSE},
		{name: "unsupported only is refused", accept: "application/xml", def: modeJSON, wantErr: true},
		{name: "unsupported plus wildcard succeeds", accept: "application/xml, */*", def: modeJSON, want: modeJSON},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := negotiateMode(tc.accept, tc.def)
			if tc.wantErr {
				if !errors.Is(err, errNotAcceptable) {
					t.Fatalf("expected errNotAcceptable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("negotiate: %v", err)
			}
			if got != tc.want {
				t.Fatalf("mode: got %v, want %v", got, tc.want)
			}
		})
	}
}
