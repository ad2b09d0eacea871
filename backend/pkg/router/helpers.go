package router

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

func validateRouteSpec(spec RouteSpec) error {
	if spec.OperationID == "" {
		return errors.New("field OperationID required")
	}

	if spec.Summary == "" {
		return errors.New("field Summary required")
	}

	if spec.Description == "" {
		return errors.New("field Description required")
	}

	if spec.Group == "" {
		return errors.New("field Group required")
	}

	if spec.Handler == nil {
		return errors.New("field Handler required")
	}

	if len(spec.Responses) == 0 {
		return errors.New("at least one response required")
	}

	for _, s := range spec.Security {
		if s != SecurityBearer && s != SecurityAPIKey {
			return fmt.Errorf("unknown security scheme %s", s)
		}
	}

	return nil
}

// pathParams extracts {name} segments, dropping chi regex suffixes ({id:[0-9]+}).
func pathParams(path string) ([]string, error) {
	if strings.Count(path, "{") != strings.Count(path, "}") {
		return nil, errors.New("mismatched number of '{' and '}' in path")
	}

	var names []string

	start := -1
	for i, ch := range path {
		switch {
		case ch == '{':
			start = i + 1
		case ch == '}' && start >= 0:
			name, _, _ := strings.Cut(path[start:i], ":")
			if name != "" {
				names = append(names, name)
			}
			start = -1
		}
	}

	return names, nil
}

func isValidParameterName(name string) bool {
	for i, r := range name {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if i == 0 && !letter {
			return false
		}

		if !letter && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return name != ""
}

func validateParameters(spec RouteSpec) error {
	names, err := pathParams(spec.fullPath)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", spec.fullPath, err)
	}

	inPath := map[string]struct{}{}
	for _, name := range names {
		if !isValidParameterName(name) {
			return fmt.Errorf("invalid parameter name %s in path %s", name, spec.fullPath)
		}
		inPath[name] = struct{}{}
	}

	valid := []ParameterIn{ParameterInPath, ParameterInQuery, ParameterInHeader}
	documented := map[string]struct{}{}

	for name, p := range spec.Parameters {
		if p.Description == "" {
			return fmt.Errorf("parameter %s needs a description for %s %s", name, spec.method, spec.fullPath)
		}

		if p.Type == nil {
			return fmt.Errorf("parameter %s needs a type for %s %s", name, spec.method, spec.fullPath)
		}

		if !slices.Contains(valid, p.In) {
			return fmt.Errorf("parameter In must be one of %v for %s %s", valid, spec.method, spec.fullPath)
		}

		if p.In != ParameterInPath {
			continue
		}

		if _, ok := inPath[name]; !ok {
			return fmt.Errorf("documented path parameter %s not found in path", name)
		}

		if !p.Required {
			return fmt.Errorf("path parameter %s must be required", name)
		}

		documented[name] = struct{}{}
	}

	for name := range inPath {
		if _, ok := documented[name]; !ok {
			return fmt.Errorf("path parameter %s not documented", name)
		}
	}

	return nil
}
