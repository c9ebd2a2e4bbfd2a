package mcp_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
	"github.com/Sumatoshi-tech/linkmedic/pkg/linkcheck"
	"github.com/Sumatoshi-tech/linkmedic/pkg/mcp"
	"github.com/Sumatoshi-tech/linkmedic/pkg/observability"
)

const memBase = "mem://localhost"

// project is an in-memory workspace rooted at a path unique to the test.
type project struct {
	root    string
	checker *linkcheck.Checker
}

func newProject(t *testing.T, files map[string]string) project {
	t.Helper()

	service := afs.New()
	root := "/" + strings.ReplaceAll(t.Name(), "/", "_")

	for rel, content := range files {
		err := service.Upload(context.Background(), memBase+root+"/"+rel, file.DefaultFileOsMode, strings.NewReader(content))
		require.NoError(t, err)
	}

	fs := fsys.NewAFS(fsys.WithBaseURL(memBase), fsys.WithService(service))

	return project{root: root, checker: linkcheck.New(fs)}
}

// connect runs srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func decodeOutput(t *testing.T, result *mcpsdk.CallToolResult) mcp.CheckOutput {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	var out mcp.CheckOutput

	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))

	return out
}

func TestMCPServer_InMemoryTransport_ToolsList(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(newProject(t, nil).checker, mcp.ServerDeps{})
	assert.Equal(t, []string{mcp.ToolNameCheck, mcp.ToolNameCheckFile}, srv.ListToolNames())

	session := connect(t, srv)

	toolsResult, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, toolsResult)

	toolNames := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		toolNames = append(toolNames, tool.Name)
	}

	assert.ElementsMatch(t, []string{"linkmedic_check", "linkmedic_check_file"}, toolNames)

	for _, tool := range toolsResult.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}
}

func TestMCPServer_InMemoryTransport_CallCheck(t *testing.T) {
	t.Parallel()

	p := newProject(t, map[string]string{
		"tsconfig.json":     `{"compilerOptions": {"paths": {"@/*": ["src/*"]}}}`,
		"src/util/index.ts": "",
	})
	session := connect(t, mcp.NewServer(p.checker, mcp.ServerDeps{}))

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name: mcp.ToolNameCheck,
		Arguments: map[string]any{
			"code":     "import u from '@/util'\nimport m from '@/missing'\nimport r from 'react'",
			"language": "typescript",
			"path":     p.root + "/src/main.ts",
			"root":     p.root,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	out := decodeOutput(t, result)
	assert.Equal(t, "script", out.Kind)
	require.Len(t, out.Findings, 1)
	assert.Equal(t, "@/missing", out.Findings[0].RawPath)
	assert.True(t, out.Findings[0].IsAlias)
	assert.Equal(t, p.root+"/src/missing", out.Findings[0].Location)
	assert.Equal(t, 2, out.Findings[0].Line)
}

func TestMCPServer_InMemoryTransport_CallCheckDetectsLanguageFromPath(t *testing.T) {
	t.Parallel()

	p := newProject(t, nil)
	session := connect(t, mcp.NewServer(p.checker, mcp.ServerDeps{}))

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name: mcp.ToolNameCheck,
		Arguments: map[string]any{
			"code": `<?php include 'header.php'; ?>`,
			"path": p.root + "/index.php",
		},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	out := decodeOutput(t, result)
	assert.Equal(t, "markup", out.Kind)
	require.Len(t, out.Findings, 1)
	assert.Equal(t, "header.php", out.Findings[0].RawPath)
}

func TestMCPServer_InMemoryTransport_CallCheckFile(t *testing.T) {
	t.Parallel()

	p := newProject(t, map[string]string{
		"index.html": "<link href=\"css/site.css\">\n<script src=\"js/app.js\"></script>",
		"js/app.js":  "",
	})
	session := connect(t, mcp.NewServer(p.checker, mcp.ServerDeps{}))

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameCheckFile,
		Arguments: map[string]any{"path": p.root + "/index.html", "root": p.root},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	out := decodeOutput(t, result)
	assert.Equal(t, p.root, out.Root)
	require.Len(t, out.Findings, 1)
	assert.Equal(t, "css/site.css", out.Findings[0].RawPath)
}

func TestMCPServer_InMemoryTransport_InputErrors(t *testing.T) {
	t.Parallel()

	p := newProject(t, nil)
	session := connect(t, mcp.NewServer(p.checker, mcp.ServerDeps{}))

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{
			name: "empty code",
			tool: mcp.ToolNameCheck,
			args: map[string]any{"code": "", "language": "html", "path": p.root + "/a.html"},
			want: mcp.ErrEmptyCode.Error(),
		},
		{
			name: "relative path",
			tool: mcp.ToolNameCheck,
			args: map[string]any{"code": "x", "language": "html", "path": "a.html"},
			want: mcp.ErrPathNotAbsolute.Error(),
		},
		{
			name: "unknown language",
			tool: mcp.ToolNameCheck,
			args: map[string]any{"code": "x", "language": "cobol", "path": p.root + "/a.cbl"},
			want: mcp.ErrUnsupportedLanguage.Error(),
		},
		{
			name: "missing file",
			tool: mcp.ToolNameCheckFile,
			args: map[string]any{"path": p.root + "/absent.html"},
			want: "check file",
		},
		{
			name: "relative root",
			tool: mcp.ToolNameCheckFile,
			args: map[string]any{"path": p.root + "/a.html", "root": "relative"},
			want: mcp.ErrPathNotAbsolute.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: tt.tool, Arguments: tt.args})
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.True(t, result.IsError)

			text, ok := result.Content[0].(*mcpsdk.TextContent)
			require.True(t, ok)
			assert.Contains(t, text.Text, tt.want)
		})
	}
}

func TestMCPServer_RecordsMetricsAndTraces(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	red, err := observability.NewREDMetrics(meter)
	require.NoError(t, err)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	p := newProject(t, nil)
	session := connect(t, mcp.NewServer(p.checker, mcp.ServerDeps{Metrics: red, Tracer: tp.Tracer("test")}))

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameCheck,
		Arguments: map[string]any{"code": `<img src="x.png">`, "language": "html", "path": p.root + "/a.html"},
	})
	require.NoError(t, err)
	require.Len(t, result.Content, 2)

	traceText, ok := result.Content[1].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(traceText.Text, "trace_id="))

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	var requests int64

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if data, isSum := m.Data.(metricdata.Sum[int64]); isSum && m.Name == "linkmedic.requests.total" {
				for _, dp := range data.DataPoints {
					requests += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(1), requests)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "mcp.linkmedic_check", spans[0].Name)
}
