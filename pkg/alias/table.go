// Package alias loads path-alias tables from tsconfig/jsconfig style project
// configuration and rewrites aliased import paths.
package alias

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultBaseDir is used when the configuration does not set baseUrl.
const DefaultBaseDir = "."

// wildcard is the trailing glob segment stripped from prefixes and targets.
const wildcard = "/*"

// Sentinel parse errors.
var (
	// ErrInvalidConfig indicates the document is not a usable config object.
	ErrInvalidConfig = errors.New("invalid alias configuration")
	// ErrNoPaths indicates the document has no compilerOptions.paths entries.
	ErrNoPaths = errors.New("configuration has no path aliases")
)

// configSchema accepts any object and constrains only the parts that are read.
const configSchema = `{
  "type": "object",
  "properties": {
    "compilerOptions": {
      "type": "object",
      "properties": {
        "baseUrl": {"type": "string"},
        "paths": {
          "type": ["object", "null"],
          "additionalProperties": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(configSchema))
})

// Entry is one alias prefix with its ordered targets. Only the first target
// is honoured during resolution.
type Entry struct {
	Prefix  string   `json:"prefix"  yaml:"prefix"`
	Targets []string `json:"targets" yaml:"targets"`
}

// Table is an immutable alias table. Entries keep the order of the source
// document.
type Table struct {
	Entries []Entry `json:"entries"  yaml:"entries"`
	BaseDir string  `json:"base_dir" yaml:"base_dir"`
	Source  string  `json:"source"   yaml:"source"`
}

// Empty is the table used when no configuration provides aliases.
var Empty = &Table{BaseDir: DefaultBaseDir}

// Len returns the number of alias entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.Entries)
}

// Match is the outcome of a successful alias lookup.
type Match struct {
	// Path is the raw path with the alias prefix replaced by the target.
	Path string
	// Prefix is the alias pattern as written in the configuration.
	Prefix string
	// Target is the first target pattern as written in the configuration.
	Target string
}

// Resolve rewrites rawPath with the first entry whose prefix, minus its
// wildcard segment, is a string prefix of rawPath.
//
// This is plain prefix substitution: wildcards in the middle of a pattern
// and multi-segment globs are not interpreted.
func (t *Table) Resolve(rawPath string) (Match, bool) {
	if t == nil {
		return Match{}, false
	}

	for _, entry := range t.Entries {
		if len(entry.Targets) == 0 {
			continue
		}

		prefix := strings.Replace(entry.Prefix, wildcard, "", 1)
		if !strings.HasPrefix(rawPath, prefix) {
			continue
		}

		target := strings.Replace(entry.Targets[0], wildcard, "", 1)

		return Match{
			Path:   strings.Replace(rawPath, prefix, target, 1),
			Prefix: entry.Prefix,
			Target: entry.Targets[0],
		}, true
	}

	return Match{}, false
}

type compilerOptions struct {
	BaseURL string       `json:"baseUrl"`
	Paths   orderedPaths `json:"paths"`
}

type configDocument struct {
	CompilerOptions *compilerOptions `json:"compilerOptions"`
}

// orderedPaths decodes the paths object keeping key order. A repeated key
// keeps its first position and takes the last value.
type orderedPaths []Entry

func (op *orderedPaths) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	_, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read paths object: %w", err)
	}

	index := make(map[string]int)

	for dec.More() {
		keyTok, tokErr := dec.Token()
		if tokErr != nil {
			return fmt.Errorf("read paths key: %w", tokErr)
		}

		key, _ := keyTok.(string)

		var targets []string

		decodeErr := dec.Decode(&targets)
		if decodeErr != nil {
			return fmt.Errorf("read targets of %q: %w", key, decodeErr)
		}

		if pos, seen := index[key]; seen {
			(*op)[pos].Targets = targets

			continue
		}

		index[key] = len(*op)
		*op = append(*op, Entry{Prefix: key, Targets: targets})
	}

	return nil
}

// Parse decodes a tsconfig/jsconfig style document. Line and block comments
// are allowed. It returns ErrNoPaths when the document is valid but declares
// no aliases.
func Parse(data []byte) (*Table, error) {
	clean := StripComments(data)

	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(clean))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, describeSchemaErrors(result.Errors()))
	}

	var doc configDocument

	err = json.Unmarshal(clean, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if doc.CompilerOptions == nil || len(doc.CompilerOptions.Paths) == 0 {
		return nil, ErrNoPaths
	}

	baseDir := doc.CompilerOptions.BaseURL
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}

	return &Table{
		Entries: doc.CompilerOptions.Paths,
		BaseDir: baseDir,
	}, nil
}

func describeSchemaErrors(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, len(errs))
	for _, resultErr := range errs {
		parts = append(parts, resultErr.String())
	}

	return strings.Join(parts, "; ")
}
