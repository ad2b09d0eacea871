package utils

import (
	"errors"
	"strings"
	"testing"
)

type payload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestFromJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    payload
		wantErr bool
	}{
		{name: "valid", input: `{"name":"a","value":1}`, want: payload{Name: "a", Value: 1}},
		{name: "empty input", input: "", want: payload{}},
		{name: "unknown field", input: `{"name":"a","other":1}`, wantErr: true},
		{name: "trailing value", input: `{"name":"a"}{"name":"b"}`, wantErr: true},
		{name: "trailing whitespace", input: "{\"name\":\"a\"}\n  ", want: payload{Name: "a"}},
		{name: "malformed", input: `{"name":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := FromJSON[payload]([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("FromJSON() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFromJSONStreamExtraData(t *testing.T) {
	t.Parallel()

	_, err := FromJSONStream[payload](strings.NewReader(`{"name":"a"} 42`))

	var extra *ExtraDataAfterJSONError
	if !errors.As(err, &extra) {
		t.Fatalf("expected ExtraDataAfterJSONError, got %v", err)
	}
	if extra.Error() != "extra data after JSON object" {
		t.Errorf("unexpected message %q", extra.Error())
	}
}

func TestFromJSONStreamEmpty(t *testing.T) {
	t.Parallel()

	if _, err := FromJSONStream[payload](strings.NewReader("")); err == nil {
		t.Error("expected error for empty stream")
	}
}

func TestToJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "struct", input: payload{Name: "a", Value: 1}, want: `{"name":"a","value":1}`},
		{name: "html not escaped", input: map[string]string{"q": "<a&b>"}, want: `{"q":"<a&b>"}`},
		{name: "nil", input: nil, want: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ToJSON(tt.input)
			if err != nil {
				t.Fatalf("ToJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ToJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestToJSONIndent(t *testing.T) {
	t.Parallel()

	got, err := ToJSONIndent(payload{Name: "a"})
	if err != nil {
		t.Fatal(err)
	}

	want := "{\n  \"name\": \"a\",\n  \"value\": 0\n}"
	if string(got) != want {
		t.Errorf("ToJSONIndent() = %q, want %q", got, want)
	}
}
