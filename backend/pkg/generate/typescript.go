package generate

import (
	"errors"
	"fmt"
	"go/types"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/coder/guts"
	"github.com/coder/guts/bindings"
	"github.com/coder/guts/config"
	"golang.org/x/tools/go/packages"

	"redalert/backend/pkg/utils"
)

const TypeScriptFileName = "types.ts"

// TypeEntry is the catalogue entry of one exported wire type.
type TypeEntry struct {
	Package string `json:"package"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
}

// loadTypes lists the exported types of the given packages and fails on any
// package that does not type-check.
func loadTypes(patterns []string) ([]TypeEntry, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load type packages: %w", err)
	}

	var (
		errs    []error
		entries []TypeEntry
	)

	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Errorf("failed to parse go types in %s: %w", pkg.PkgPath, e))
		}

		if pkg.Types == nil {
			continue
		}

		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			obj, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || !obj.Exported() {
				continue
			}

			entries = append(entries, TypeEntry{Package: pkg.PkgPath, Name: name, Kind: typeKind(obj.Type())})
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	slices.SortFunc(entries, func(a, b TypeEntry) int {
		if c := strings.Compare(a.Package, b.Package); c != 0 {
			return c
		}

		return strings.Compare(a.Name, b.Name)
	})

	return entries, nil
}

func typeKind(t types.Type) string {
	switch u := t.Underlying().(type) {
	case *types.Struct:
		return "struct"
	case *types.Basic:
		if u.Info()&types.IsString != 0 {
			return "enum"
		}

		return "basic"
	case *types.Map:
		return "map"
	case *types.Slice:
		return "array"
	default:
		return "other"
	}
}

// writeTypeScript renders the exported types of the given packages as
// TypeScript declarations.
func writeTypeScript(l *slog.Logger, patterns []string, path string) error {
	goParser, err := guts.NewGolangParser()
	if err != nil {
		return fmt.Errorf("failed to create guts parser: %w", err)
	}

	goParser.PreserveComments()
	goParser.IncludeCustomDeclaration(map[string]guts.TypeOverride{
		"time.Time": func() bindings.ExpressionType {
			return utils.Ptr(bindings.KeywordString)
		},
	})

	for _, p := range patterns {
		if err := goParser.IncludeGenerate(p); err != nil {
			return fmt.Errorf("failed to include %s for parsing: %w", p, err)
		}
	}

	ts, err := goParser.ToTypescript()
	if err != nil {
		return fmt.Errorf("failed to generate TypeScript AST: %w", err)
	}

	ts.ApplyMutations(
		config.ExportTypes,
		config.InterfaceToType,
		config.SimplifyOptional,
		config.NotNullMaps,
	)

	out, err := ts.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize TypeScript: %w", err)
	}

	if err := os.WriteFile(path, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write TypeScript types: %w", err)
	}

	l.Info("TypeScript types written", slog.String("file", path), slog.Int("packages", len(patterns)))

	return nil
}
