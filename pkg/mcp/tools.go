package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/linkmedic/pkg/finding"
	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
	"github.com/Sumatoshi-tech/linkmedic/pkg/linkcheck"
	"github.com/Sumatoshi-tech/linkmedic/pkg/reference"
)

// Tool name constants.
const (
	ToolNameCheck     = "linkmedic_check"
	ToolNameCheckFile = "linkmedic_check_file"
)

// Input size limits.
const (
	// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
	MaxCodeInputBytes = 1 << 20
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
	// ErrEmptyPath indicates the path parameter is empty.
	ErrEmptyPath = errors.New("path parameter is required and must not be empty")
	// ErrPathNotAbsolute indicates a path or root that is not absolute.
	ErrPathNotAbsolute = errors.New("path must be absolute")
	// ErrUnsupportedLanguage indicates neither language nor path names a supported family.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Input types (auto-generate JSON schemas via struct tags).

// CheckInput is the input schema for the linkmedic_check tool.
type CheckInput struct {
	Code     string `json:"code"               jsonschema:"document text to check"`
	Language string `json:"language,omitempty" jsonschema:"html, php, javascript, typescript, markup or script (default: from path)"`
	Path     string `json:"path"               jsonschema:"absolute path the document lives at"`
	Root     string `json:"root,omitempty"     jsonschema:"absolute workspace root for aliases and /-prefixed references"`
}

// CheckFileInput is the input schema for the linkmedic_check_file tool.
type CheckFileInput struct {
	Path string `json:"path"           jsonschema:"absolute path of the file to check"`
	Root string `json:"root,omitempty" jsonschema:"absolute workspace root (default: nearest project marker)"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// CheckOutput is the result of both tools.
type CheckOutput struct {
	Path     string            `json:"path"`
	Root     string            `json:"root,omitempty"`
	Kind     string            `json:"kind"`
	Findings []finding.Finding `json:"findings"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validatePaths checks the path and optional root arguments.
func validatePaths(path, root string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s", ErrPathNotAbsolute, path)
	}

	if root != "" && !filepath.IsAbs(root) {
		return fmt.Errorf("%w: root %s", ErrPathNotAbsolute, root)
	}

	return nil
}

// validateCheckInput checks the linkmedic_check arguments and detects the
// document family.
func validateCheckInput(input CheckInput) (reference.Kind, error) {
	if input.Code == "" {
		return 0, ErrEmptyCode
	}

	if len(input.Code) > MaxCodeInputBytes {
		return 0, fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(input.Code), MaxCodeInputBytes)
	}

	err := validatePaths(input.Path, input.Root)
	if err != nil {
		return 0, err
	}

	if input.Language != "" {
		kind, ok := reference.ParseKind(input.Language)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, input.Language)
		}

		return kind, nil
	}

	kind, ok := reference.KindForFile(input.Path, []byte(input.Code))
	if !ok {
		return 0, fmt.Errorf("%w: cannot detect from %s", ErrUnsupportedLanguage, filepath.Base(input.Path))
	}

	return kind, nil
}

// handleCheck processes linkmedic_check tool calls.
func (s *Server) handleCheck(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CheckInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	kind, err := validateCheckInput(input)
	if err != nil {
		return errorResult(err)
	}

	path, root := filepath.Clean(input.Path), cleanRoot(input.Root)

	findings, err := s.checker.Check(ctx, linkcheck.Document{Path: path, Text: input.Code, Kind: kind, Root: root})
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(newCheckOutput(path, root, kind, findings))
}

// handleCheckFile processes linkmedic_check_file tool calls.
func (s *Server) handleCheckFile(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CheckFileInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validatePaths(input.Path, input.Root)
	if err != nil {
		return errorResult(err)
	}

	path := filepath.Clean(input.Path)

	root := cleanRoot(input.Root)
	if root == "" && len(s.markers) > 0 {
		root = fsys.FindProjectRoot(path, s.markers)
	}

	findings, err := s.checker.CheckFile(ctx, path, root)
	if err != nil {
		return errorResult(err)
	}

	kind, _ := reference.KindForFile(path, nil)

	return jsonResult(newCheckOutput(path, root, kind, findings))
}

func cleanRoot(root string) string {
	if root == "" {
		return ""
	}

	return filepath.Clean(root)
}

func newCheckOutput(path, root string, kind reference.Kind, findings []finding.Finding) CheckOutput {
	if findings == nil {
		findings = []finding.Finding{}
	}

	return CheckOutput{Path: path, Root: root, Kind: kind.String(), Findings: findings}
}
