package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptMeta is the YAML header of a prompt file.
type promptMeta struct {
	Description string `yaml:"description"`
	Arguments   []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Required    bool   `yaml:"required"`
	} `yaml:"arguments"`
}

// promptTemplate is one embedded prompt. The body is a text/template over
// the prompt's arguments.
type promptTemplate struct {
	prompt *mcp.Prompt
	body   *template.Template
}

// loadPrompts parses every markdown file under prompts/. The file name
// without extension is the prompt name.
func loadPrompts() ([]promptTemplate, error) {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil, err
	}

	var out []promptTemplate
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".md")
		if entry.IsDir() || !ok {
			continue
		}
		content, err := promptFiles.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			return nil, err
		}
		p, err := parsePrompt(name, content)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func parsePrompt(name string, content []byte) (promptTemplate, error) {
	meta, body := splitFrontmatter(content)

	tmpl, err := template.New(name).Option("missingkey=zero").Parse(body)
	if err != nil {
		return promptTemplate{}, err
	}

	prompt := &mcp.Prompt{Name: name, Description: meta.Description}
	for _, a := range meta.Arguments {
		prompt.Arguments = append(prompt.Arguments, &mcp.PromptArgument{
			Name:        a.Name,
			Description: a.Description,
			Required:    a.Required,
		})
	}
	return promptTemplate{prompt: prompt, body: tmpl}, nil
}

// splitFrontmatter separates a leading "---" YAML block from the body.
// Content with a missing or malformed header is all body.
func splitFrontmatter(content []byte) (promptMeta, string) {
	var meta promptMeta
	rest, ok := bytes.CutPrefix(content, []byte("---\n"))
	if !ok {
		return meta, string(content)
	}
	header, body, ok := bytes.Cut(rest, []byte("\n---\n"))
	if !ok {
		return meta, string(content)
	}
	if err := yaml.Unmarshal(header, &meta); err != nil {
		return promptMeta{}, string(content)
	}
	return meta, string(bytes.TrimPrefix(body, []byte("\n")))
}

func (p promptTemplate) handle(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := map[string]string{}
	if req != nil && req.Params != nil && req.Params.Arguments != nil {
		args = req.Params.Arguments
	}
	for _, a := range p.prompt.Arguments {
		if a.Required && args[a.Name] == "" {
			return nil, fmt.Errorf("prompt %s: argument %q is required", p.prompt.Name, a.Name)
		}
	}

	var text strings.Builder
	if err := p.body.Execute(&text, args); err != nil {
		return nil, err
	}
	return &mcp.GetPromptResult{
		Description: p.prompt.Description,
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text.String()},
		}},
	}, nil
}

func (s *Server) registerPrompts() {
	prompts, err := loadPrompts()
	if err != nil {
		s.logger.Warn("failed to load embedded prompts", zap.Error(err))
		return
	}
	for _, p := range prompts {
		s.server.AddPrompt(p.prompt, p.handle)
	}
}
