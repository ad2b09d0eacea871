// Package contacts is the fire station hotline directory.
package contacts

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
)

// ErrUnknownTown is returned for towns without a listed station.
var ErrUnknownTown = errors.New("unknown town")

// Station is one fire station and its hotlines, one per line.
type Station struct {
	Town     string `json:"town"`
	Hotlines string `json:"hotlines"`
}

// Title is the heading shown above the hotlines.
func (s Station) Title() string {
	return s.Town + " Fire Station Hot Lines:"
}

// Lines splits Hotlines into individual numbers.
func (s Station) Lines() []string {
	return strings.Split(s.Hotlines, "\n")
}

var stations = []Station{
	{Town: "Indang", Hotlines: "415-1217\n0961-881-3913\n0915-603-4245\n0933-824-5948"},
	{Town: "Amadeo", Hotlines: "(046) 890-4985\nglobe: 0915-601-6805"},
	{Town: "Trece Martires City", Hotlines: "419-0057 (Landline)\n09452388226 (TM/globe)"},
	{Town: "Mendez", Hotlines: "(046) 482-0712\n0919-092-0206"},
	{Town: "Alfonso", Hotlines: "Globe: 0915-602-2113\nSmart: 0929-663-2424\nTel. no: (046) 522-0480\nTel. no: (046) 889-4979"},
	{Town: "Tagaytay", Hotlines: "483-1193\n471-3747\n09429898495\n09552306663"},
	{Town: "Naic", Hotlines: "SMART (0946)-9565-753\nGLOBE (0956)-483-0226"},
}

// Directory looks stations up by town name, ignoring case.
type Directory struct {
	byTown map[string]Station
}

func NewDirectory() *Directory {
	d := &Directory{byTown: make(map[string]Station, len(stations))}

	for _, s := range stations {
		d.byTown[townKey(s.Town)] = s
	}

	return d
}

// townKey folds case and collapses inner whitespace. A Caser is stateful,
// so each call gets its own.
func townKey(town string) string {
	return cases.Fold().String(strings.Join(strings.Fields(town), " "))
}

// All returns every station in display order.
func (d *Directory) All() []Station {
	return append([]Station(nil), stations...)
}

// Lookup returns the station serving town.
func (d *Directory) Lookup(town string) (Station, error) {
	s, ok := d.byTown[townKey(town)]
	if !ok {
		return Station{}, ErrUnknownTown
	}

	return s, nil
}
