package signature

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips whitespace",
			in: `{
				"args" : { "tracking_id" : "TRACK123", "postal_code":"12345" }
			}`,
			want: `{"args":{"tracking_id":"TRACK123","postal_code":"12345"}}`,
		},
		{
			name: "keeps key order",
			in:   `{"b": 1, "a": 2, "c": {"z": 0, "y": 1}}`,
			want: `{"b":1,"a":2,"c":{"z":0,"y":1}}`,
		},
		{
			name: "non-ascii written raw",
			in:   `{"name":"Zoë","esc":"caf\u00e9","jp":"配達"}`,
			want: `{"name":"Zoë","esc":"café","jp":"配達"}`,
		},
		{
			name: "html characters not escaped",
			in:   `{"t":"<a & b>"}`,
			want: `{"t":"<a & b>"}`,
		},
		{
			name: "slash unescaped",
			in:   `{"u":"a\/b"}`,
			want: `{"u":"a/b"}`,
		},
		{
			name: "control characters escaped",
			in:   `{"t":"line1\nline2\t\u0001\"q\"\\"}`,
			want: `{"t":"line1\nline2\t\u0001\"q\"\\"}`,
		},
		{
			name: "scalars",
			in:   `[1, 2.5, -300, 0.001, true, false, null, []]`,
			want: `[1,2.5,-300,0.001,true,false,null,[]]`,
		},
		{
			name: "number spelling kept as sent",
			in:   `{"n": 2.50, "e": -3e2}`,
			want: `{"n":2.50,"e":-3e2}`,
		},
		{
			name: "line separator raw",
			in:   `{"t":"a\u2028b"}`,
			want: "{\"t\":\"a\u2028b\"}",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Canonicalize([]byte(tc.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("Canonicalize = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestCanonicalizeRejectsInvalidJSON(t *testing.T) {
	for _, in := range []string{``, `{"a":`, `{} {}`, `{"a" 1}`} {
		if _, err := Canonicalize([]byte(in)); err == nil {
			t.Errorf("Canonicalize(%q) expected error", in)
		}
	}
}
