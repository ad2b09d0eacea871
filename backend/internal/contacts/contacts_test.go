package contacts

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	d := NewDirectory()

	tests := []struct {
		in       string
		wantTown string
		wantErr  error
	}{
		{in: "Indang", wantTown: "Indang"},
		{in: "indang", wantTown: "Indang"},
		{in: "TAGAYTAY", wantTown: "Tagaytay"},
		{in: "  trece   martires city ", wantTown: "Trece Martires City"},
		{in: "Manila", wantErr: ErrUnknownTown},
		{in: "", wantErr: ErrUnknownTown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			s, err := d.Lookup(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Lookup(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if s.Town != tt.wantTown {
				t.Errorf("Lookup(%q) = %q, want %q", tt.in, s.Town, tt.wantTown)
			}
		})
	}
}

func TestAll(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	all := d.All()

	want := []string{"Indang", "Amadeo", "Trece Martires City", "Mendez", "Alfonso", "Tagaytay", "Naic"}
	if len(all) != len(want) {
		t.Fatalf("All() returned %d stations", len(all))
	}
	for i, s := range all {
		if s.Town != want[i] {
			t.Errorf("All()[%d] = %q, want %q", i, s.Town, want[i])
		}
	}

	all[0].Town = "changed"
	if d.All()[0].Town != "Indang" {
		t.Error("All() exposes internal slice")
	}
}

func TestStationFormatting(t *testing.T) {
	t.Parallel()

	s, err := NewDirectory().Lookup("Alfonso")
	if err != nil {
		t.Fatal(err)
	}

	if s.Title() != "Alfonso Fire Station Hot Lines:" {
		t.Errorf("Title() = %q", s.Title())
	}
	if lines := s.Lines(); len(lines) != 4 || lines[1] != "Smart: 0929-663-2424" {
		t.Errorf("Lines() = %q", lines)
	}
}
