package realtime

import (
	"fmt"
	"strings"
)

// Collections used by the owner app.
const (
	CollectionOwner  = "Owner"
	CollectionLogs   = "Logs"
	CollectionLogsCV = "LogsCV"
)

// Collections lists every collection the gateway primes on start.
func Collections() []string {
	return []string{CollectionOwner, CollectionLogs, CollectionLogsCV}
}

// Path is a parsed database location: a whole collection or one child of it.
type Path struct {
	Collection string
	Key        string
}

// IsChild reports whether the path addresses a single child.
func (p Path) IsChild() bool {
	return p.Key != ""
}

// Parent returns the path of p's collection.
func (p Path) Parent() Path {
	return Path{Collection: p.Collection}
}

func (p Path) String() string {
	if p.Key == "" {
		return p.Collection
	}

	return p.Collection + "/" + p.Key
}

// Topic is the retained MQTT topic carrying the value at p.
func (p Path) Topic() string {
	return "rtdb/" + p.String()
}

// Child returns the path of key inside collection.
func Child(collection, key string) string {
	return collection + "/" + key
}

// ParsePath parses "Collection" or "Collection/key".
// Segments may not be empty or contain MQTT wildcard characters.
func ParsePath(raw string) (Path, error) {
	parts := strings.Split(raw, "/")
	if len(parts) > 2 {
		return Path{}, fmt.Errorf("%w: %q is nested deeper than collection/key", ErrInvalidPath, raw)
	}

	for _, part := range parts {
		if part == "" || strings.ContainsAny(part, "+#") {
			return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, raw)
		}
	}

	p := Path{Collection: parts[0]}
	if len(parts) == 2 {
		p.Key = parts[1]
	}

	return p, nil
}
