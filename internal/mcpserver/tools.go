package mcpserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/lcom/internal/output"
	"github.com/panbanda/lcom/internal/scanner"
	"github.com/panbanda/lcom/internal/service/analysis"
)

// AnalyzeInput is the input of analyze_lcom.
type AnalyzeInput struct {
	Paths             []string `json:"paths,omitempty" jsonschema:"Files or directories to analyze. Defaults to current directory if empty."`
	Format            string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, markdown or csv."`
	PublicOnly        bool     `json:"public_only,omitempty" jsonschema:"Only analyze public types."`
	IncludeGenerated  bool     `json:"include_generated,omitempty" jsonschema:"Include compiler-generated and designer types."`
	IncludeInterfaces bool     `json:"include_interfaces,omitempty" jsonschema:"Include interfaces (they normally score 0)."`
	Inherited         string   `json:"inherited,omitempty" jsonschema:"Inherited method policy: strict (default) or permissive."`
	BackingFields     string   `json:"backing_fields,omitempty" jsonschema:"Backing field policy: attribute (default) or ignore."`
	Sort              string   `json:"sort,omitempty" jsonschema:"Sort by: discovery (default), lcom, name or methods."`
	Top               int      `json:"top,omitempty" jsonschema:"Show only the first N types after sorting. 0 shows all."`
}

// ExplainInput is the input of explain_lcom.
type ExplainInput struct {
	Path          string   `json:"path" jsonschema:"File declaring the type."`
	Type          string   `json:"type" jsonschema:"Full or unqualified type name."`
	Format        string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, markdown or csv."`
	Inherited     string   `json:"inherited,omitempty" jsonschema:"Inherited method policy: strict (default) or permissive."`
	BackingFields string   `json:"backing_fields,omitempty" jsonschema:"Backing field policy: attribute (default) or ignore."`
	Parts         []string `json:"parts,omitempty" jsonschema:"Further files declaring parts of a C# partial type."`
}

func getPaths(paths []string) []string {
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}

func getFormat(format string) output.Format {
	if format == "" {
		return output.FormatTOON
	}
	f := output.ParseFormat(format)
	if f == output.FormatText {
		return output.FormatTOON
	}
	return f
}

func formatOutput(r output.Renderable, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toolResult(r output.Renderable, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(r, format)
	if err != nil {
		return toolError(err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleAnalyzeLCOM(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, any, error) {
	files, err := scanner.NewScanner(s.config).ScanPaths(getPaths(input.Paths))
	if err != nil {
		return toolError(err.Error())
	}
	if len(files) == 0 {
		return toolError("no C#, Java or type model files found")
	}

	result, err := s.service().AnalyzeLCOM(ctx, files, analysis.LCOMOptions{
		InheritedMethods:  input.Inherited,
		BackingFields:     input.BackingFields,
		PublicOnly:        input.PublicOnly,
		IncludeGenerated:  input.IncludeGenerated,
		IncludeInterfaces: input.IncludeInterfaces,
		Sort:              input.Sort,
		Top:               input.Top,
	})
	if err != nil {
		return toolError(fmt.Sprintf("lcom analysis failed: %v", err))
	}

	report := output.NewLCOMReport(result, s.config.Thresholds.LCOMWarning, s.config.Thresholds.LCOMHigh)
	return toolResult(report, getFormat(input.Format))
}

func (s *Server) handleExplainLCOM(ctx context.Context, _ *mcp.CallToolRequest, input ExplainInput) (*mcp.CallToolResult, any, error) {
	if input.Path == "" || input.Type == "" {
		return toolError("path and type are required")
	}

	e, err := s.service().Explain(ctx, input.Path, input.Type, analysis.ExplainOptions{
		InheritedMethods: input.Inherited,
		BackingFields:    input.BackingFields,
		Parts:            input.Parts,
	})
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(output.NewExplainReport(e), getFormat(input.Format))
}
