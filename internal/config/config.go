package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/gcstr/verpack/internal/apperr"
)

// FileNames are the recipe names searched for, in order.
var FileNames = []string{"verpack.yml", "verpack.yaml"}

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.+-]*$`)
	// envVarPattern matches ${VARNAME} placeholders for interpolation
	envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// LoadWithWarnings reads, interpolates, validates and normalizes a recipe.
// It returns the names of referenced environment variables that were unset.
// An empty path searches the current directory.
func LoadWithWarnings(path string) (Recipe, []string, error) {
	guessed, err := resolveRecipePath(path)
	if err != nil {
		return Recipe{}, nil, err
	}
	abs, err := filepath.Abs(guessed)
	if err != nil {
		return Recipe{}, nil, apperr.Wrap("config.Load", apperr.InvalidInput, err, "abs path")
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return Recipe{}, nil, apperr.Wrap("config.Load", apperr.NotFound, err, "read recipe %s", abs)
	}

	interpolated, missing := interpolateEnvPlaceholders(string(b))

	var r Recipe
	dec := yaml.NewDecoder(bytes.NewReader([]byte(interpolated)), yaml.Validator(validate), yaml.Strict())
	if err := dec.Decode(&r); err != nil {
		return Recipe{}, missing, apperr.New("config.Load", apperr.InvalidInput, "parse yaml: %s", yaml.FormatError(err, false, true))
	}
	if err := r.normalizeAndValidate(filepath.Dir(abs)); err != nil {
		return Recipe{}, missing, err
	}
	return r, missing, nil
}

// Load is LoadWithWarnings without the warnings.
func Load(path string) (Recipe, error) {
	r, _, err := LoadWithWarnings(path)
	return r, err
}

// Default returns the recipe used when no recipe file exists: the package is
// named after dir and every other field takes its default.
func Default(dir string) (Recipe, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Recipe{}, apperr.Wrap("config.Default", apperr.InvalidInput, err, "abs path")
	}
	r := Recipe{Name: sanitizeName(filepath.Base(abs))}
	if err := r.normalizeAndValidate(abs); err != nil {
		return Recipe{}, err
	}
	return r, nil
}

func sanitizeName(s string) string {
	var b []byte
	for _, c := range []byte(s) {
		switch {
		case c >= 'A' && c <= 'Z':
			b = append(b, c+('a'-'A'))
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '.', c == '+', c == '-':
			b = append(b, c)
		default:
			b = append(b, '-')
		}
	}
	for len(b) > 0 && !nameRegex.Match(b[:1]) {
		b = b[1:]
	}
	if len(b) == 0 {
		return "package"
	}
	return string(b)
}

func interpolateEnvPlaceholders(in string) (string, []string) {
	missingSet := map[string]struct{}{}
	out := envVarPattern.ReplaceAllStringFunc(in, func(m string) string {
		sub := envVarPattern.FindStringSubmatch(m)
		if len(sub) != 2 {
			return m
		}
		val, ok := os.LookupEnv(sub[1])
		if !ok {
			missingSet[sub[1]] = struct{}{}
			return ""
		}
		return val
	})
	if len(missingSet) == 0 {
		return out, nil
	}
	miss := make([]string, 0, len(missingSet))
	for n := range missingSet {
		miss = append(miss, n)
	}
	sort.Strings(miss)
	return out, miss
}

func resolveRecipePath(path string) (string, error) {
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			// Let the read report a missing file.
			return path, nil
		}
		if !info.IsDir() {
			return path, nil
		}
		if p, ok, err := findRecipeIn(path); err != nil || ok {
			return p, err
		}
		return "", apperr.New("config.resolveRecipePath", apperr.NotFound, "no recipe found in %s (looked for verpack.yml, verpack.yaml)", path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", apperr.Wrap("config.resolveRecipePath", apperr.Internal, err, "getwd")
	}
	if p, ok, err := findRecipeIn(cwd); err != nil || ok {
		return p, err
	}
	return "", apperr.New("config.resolveRecipePath", apperr.NotFound, "no recipe found (looked for verpack.yml, verpack.yaml)")
}

func findRecipeIn(dir string) (string, bool, error) {
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		_, statErr := os.Stat(candidate)
		if statErr == nil {
			return candidate, true, nil
		}
		if !errors.Is(statErr, fs.ErrNotExist) {
			return "", false, apperr.Wrap("config.resolveRecipePath", apperr.Internal, statErr, "stat %s", candidate)
		}
	}
	return "", false, nil
}
