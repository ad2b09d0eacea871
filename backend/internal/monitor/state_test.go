package monitor

import (
	"encoding/json"
	"testing"
)

func TestNumberUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Number
		wantErr bool
	}{
		{in: `14.28`, want: NumberOf(14.28)},
		{in: `"120.95"`, want: NumberOf(120.95)},
		{in: `" 7 "`, want: NumberOf(7)},
		{in: `null`, want: Number{}},
		{in: `""`, want: Number{}},
		{in: `"abc"`, wantErr: true},
		{in: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			var n Number
			err := json.Unmarshal([]byte(tt.in), &n)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && n != tt.want {
				t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.in, n, tt.want)
			}
		})
	}
}

func TestNumberMarshalAndString(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: NumberOf(30), B: Number{}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":30,"b":null}` {
		t.Errorf("Marshal = %s", b)
	}

	if got := NumberOf(36.5).String(); got != "36.5" {
		t.Errorf("String() = %q", got)
	}
	if got := (Number{}).String(); got != "" {
		t.Errorf("missing String() = %q", got)
	}
}

func TestDeviceSnapshotDecode(t *testing.T) {
	t.Parallel()

	raw := `{"latitude":"14.2","longitude":120.9,"Temperature":31,"Smoke":null,"Fire":false,"arrived":true,"allowed":true,"userId":"u1","PhoneNumber":"09123456789","Email":"a@gmail.com"}`

	var d DeviceSnapshot
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatal(err)
	}

	if !d.HasCoordinates() || d.Latitude.Value != 14.2 || d.Longitude.Value != 120.9 {
		t.Errorf("coordinates = %+v %+v", d.Latitude, d.Longitude)
	}
	if d.Smoke.Valid {
		t.Error("expected missing smoke")
	}
	if !d.Arrived || !d.Allowed || d.UserID != "u1" {
		t.Errorf("unexpected snapshot %+v", d)
	}
}

func TestPinColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		allowed, gathering bool
		want               PinColor
	}{
		{allowed: false, gathering: true, want: PinGreen},
		{allowed: false, gathering: false, want: PinGreen},
		{allowed: true, gathering: true, want: PinRed},
		{allowed: true, gathering: false, want: PinYellow},
	}

	for _, tt := range tests {
		if got := pinColor(tt.allowed, tt.gathering); got != tt.want {
			t.Errorf("pinColor(%v, %v) = %s, want %s", tt.allowed, tt.gathering, got, tt.want)
		}
	}
}

func TestReadout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		device *DeviceSnapshot
		want   Readout
	}{
		{name: "no device", want: Readout{Smoke: notDetected, Fire: notDetected}},
		{
			name:   "below threshold",
			device: &DeviceSnapshot{Temperature: NumberOf(30), Smoke: NumberOf(149)},
			want:   Readout{Temperature: "30", Smoke: notDetected, Fire: notDetected},
		},
		{
			name:   "smoke and fire",
			device: &DeviceSnapshot{Temperature: NumberOf(80.5), Smoke: NumberOf(150), Fire: true},
			want:   Readout{Temperature: "80.5", Smoke: detected, Fire: detected},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := readout(tt.device); got != tt.want {
				t.Errorf("readout() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
