package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-form-filler/internal/form"
	"github.com/a3tai/mcp-form-filler/internal/pipeline"
	"github.com/a3tai/mcp-form-filler/internal/scan"
	"github.com/a3tai/mcp-form-filler/internal/textnorm"
)

// Tool names
const (
	ToolFormFill          = "form_fill"
	ToolFormDetectFields  = "form_detect_fields"
	ToolFormExtractText   = "form_extract_text"
	ToolFormNormalizeText = "form_normalize_text"
	ToolFormTemplates     = "form_templates"
	ToolScanImagesToPDF   = "scan_images_to_pdf"
	ToolFormServerInfo    = "form_server_info"
)

func (s *Server) handleFormFill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.loadDocument(request)
	if err != nil {
		return toolError(err), nil
	}

	args := request.GetArguments()
	output, err := s.outputPath(stringArg(args, "output"), doc.Name)
	if err != nil {
		return toolError(err), nil
	}

	res, err := s.service.Process(ctx, *doc, pipeline.WithTemplate(stringArg(args, "template")))
	if err != nil {
		return toolError(err), nil
	}

	if err := os.WriteFile(output, res.Bytes, 0o644); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write %s: %v", output, err)), nil
	}

	text := fmt.Sprintf("Filled form written to: %s\n", output)
	text += fmt.Sprintf("Request: %s\n", res.RequestID)
	text += fmt.Sprintf("Size: %d bytes\n", len(res.Bytes))
	text += formatResult(res)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleFormDetectFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.loadDocument(request)
	if err != nil {
		return toolError(err), nil
	}

	res, err := s.service.Analyze(ctx, *doc, pipeline.WithTemplate(stringArg(request.GetArguments(), "template")))
	if err != nil {
		return toolError(err), nil
	}

	text := fmt.Sprintf("Fields for: %s (%s)\n", doc.Name, doc.MIMEType)
	text += formatResult(res)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleFormExtractText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name, data, err := s.readFile(path)
	if err != nil {
		return toolError(err), nil
	}

	res, err := s.service.ReadText(ctx, data)
	if err != nil {
		return toolError(err), nil
	}

	text := fmt.Sprintf("Text of: %s\n", name)
	text += fmt.Sprintf("Type: %s\n", res.MIMEType)
	text += fmt.Sprintf("Source: %s\n", res.Source)
	text += fmt.Sprintf("Characters: %d\n", len([]rune(res.Text)))
	if res.Text == "" {
		if res.Note != "" {
			text += fmt.Sprintf("\nWARNING: %s. Configure an openai or gemini provider to read scans.\n", res.Note)
		}
		return mcp.NewToolResultText(text), nil
	}
	text += "\nContent:\n" + res.Text
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleFormNormalizeText(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(textnorm.Normalize(text)), nil
}

func (s *Server) handleFormTemplates(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := stringArg(request.GetArguments(), "id")
	info := s.service.Info()

	if id == "" {
		text := fmt.Sprintf("Templates (%d):\n", len(info.Templates))
		for _, t := range info.Templates {
			marker := ""
			if t == info.TemplateID {
				marker = " (fallback)"
			}
			text += fmt.Sprintf("  • %s%s\n", t, marker)
		}
		return mcp.NewToolResultText(text), nil
	}

	fields, used := s.service.Template(id)
	if !strings.EqualFold(strings.TrimSpace(id), used) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown template: %s", id)), nil
	}

	text := fmt.Sprintf("Template: %s\n", used)
	text += formatFields(fields)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleScanImagesToPDF(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	paths, err := stringSliceArg(args, "paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := s.paths.ResolveFile(p)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		resolved = append(resolved, abs)
	}
	out, err := s.paths.ResolveOutput(output)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := scan.CombineFiles(resolved, out)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Combined %d image(s) into: %s\n", res.Pages, res.OutputPath)
	text += fmt.Sprintf("Size: %d bytes\n", res.Size)
	text += fmt.Sprintf("\nUse '%s' with path %q to fill it.\n", ToolFormFill, res.OutputPath)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleFormServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info := s.service.Info()

	text := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Directory: %s\n", s.config.Directory)
	text += fmt.Sprintf("Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("Detection Provider: %s\n", info.Provider)
	text += fmt.Sprintf("Fallback Template: %s\n", info.TemplateID)
	text += fmt.Sprintf("Templates: %s\n\n", strings.Join(info.Templates, ", "))

	text += "Available Tools:\n"
	for _, t := range toolGuide {
		text += fmt.Sprintf("\n• %s\n", t.name)
		text += fmt.Sprintf("  Description: %s\n", t.description)
		text += fmt.Sprintf("  Parameters: %s\n", t.parameters)
	}

	text += "\nSupported Documents: PDF (fill and detect), DOCX (detect and extract only), JPEG/PNG scans (extract with a vision provider)\n"
	text += "Supported Scan Images: JPEG, PNG, TIFF\n"
	text += "\nTypical workflow: scan_images_to_pdf → form_detect_fields → form_fill\n"
	if info.Provider == "none" {
		text += "No detection provider is configured, so every form uses the fallback template.\n"
	}
	return mcp.NewToolResultText(text), nil
}

var toolGuide = []struct {
	name, description, parameters string
}{
	{ToolFormFill, "Fill a PDF form with client data", "path (required), email (required), name, address, phone, age, output, template"},
	{ToolFormDetectFields, "Show the detected fields and merged values", "path (required), email (required), name, address, phone, age, template"},
	{ToolFormExtractText, "Extract normalized document text; scans are read by the vision provider", "path (required)"},
	{ToolFormNormalizeText, "Repair damaged Turkish text", "text (required)"},
	{ToolFormTemplates, "List fallback templates", "id"},
	{ToolScanImagesToPDF, "Combine scan images into a PDF", "paths (required), output (required)"},
	{ToolFormServerInfo, "This overview", "none"},
}

// loadDocument reads the document and profile named by the request
func (s *Server) loadDocument(request mcp.CallToolRequest) (*form.Document, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return nil, err
	}
	email, err := request.RequireString("email")
	if err != nil {
		return nil, err
	}

	name, data, mime, err := s.readDocument(path)
	if err != nil {
		return nil, err
	}

	args := request.GetArguments()
	profile := form.Profile{
		Email:   email,
		Name:    stringArg(args, "name"),
		Address: stringArg(args, "address"),
		Phone:   stringArg(args, "phone"),
	}
	if age, ok := args["age"].(float64); ok {
		a := int(age)
		profile.Age = &a
	}

	return &form.Document{Name: name, MIMEType: mime, Bytes: data, Profile: profile}, nil
}

// readDocument resolves path inside the configured directory, enforces the
// size limit and sniffs the document type
func (s *Server) readDocument(path string) (string, []byte, form.MIMEType, error) {
	abs, data, err := s.readFile(path)
	if err != nil {
		return "", nil, "", err
	}

	mime, err := form.DetectMIMEType(data)
	if err != nil {
		return "", nil, "", err
	}
	return abs, data, mime, nil
}

// readFile reads a file inside the configured directory, enforcing the size limit
func (s *Server) readFile(path string) (string, []byte, error) {
	abs, err := s.paths.ResolveFile(path)
	if err != nil {
		return "", nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() > s.config.MaxFileSize {
		return "", nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), s.config.MaxFileSize)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}
	return abs, data, nil
}

// outputPath resolves the requested output, defaulting to <name>_filled.pdf
// next to the source
func (s *Server) outputPath(requested, source string) (string, error) {
	if requested == "" {
		base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		requested = filepath.Join(filepath.Dir(source), base+"_filled.pdf")
	}
	out, err := s.paths.ResolveOutput(requested)
	if err != nil {
		return "", err
	}
	if out == source {
		return "", fmt.Errorf("output would overwrite the original form: %s", out)
	}
	return out, nil
}

func formatResult(res *pipeline.Result) string {
	text := ""
	switch res.Source {
	case pipeline.SourceDetected:
		text += fmt.Sprintf("Fields: %d detected\n", len(res.Fields))
	default:
		text += fmt.Sprintf("Fields: %d from template %q\n", len(res.Fields), res.TemplateID)
		if res.DetectionReason != "" {
			text += fmt.Sprintf("Detection: %s\n", res.DetectionReason)
		}
	}
	if res.Font != "" {
		text += fmt.Sprintf("Font: %s\n", res.Font)
	}
	text += formatFields(res.Fields)

	if len(res.Skipped) > 0 {
		text += "\nNot written:\n"
		for _, sk := range res.Skipped {
			text += fmt.Sprintf("  • %s: %s\n", sk.Field, sk.Reason)
		}
	}
	return text
}

func formatFields(fields []form.Field) string {
	text := "\n"
	for i, f := range fields {
		value := f.Value
		if value == "" {
			value = "(empty)"
		}
		text += fmt.Sprintf("%d. %s = %s\n", i+1, f.Name, value)
		text += fmt.Sprintf("   Position: x=%.0f y=%.0f, Size: %.0fx%.0f\n", f.X, f.Y, f.Width, f.Height)
	}
	return text
}

// toolError turns pipeline errors into their user-facing message
func toolError(err error) *mcp.CallToolResult {
	var fe *form.Error
	if errors.As(err, &fe) {
		return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", fe.UserMessage(), fe.Error()))
	}
	return mcp.NewToolResultError(err.Error())
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func stringSliceArg(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("required argument %q not found", key)
	}

	var out []string
	switch v := raw.(type) {
	case []string:
		out = v
	case []any:
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] is not a string", key, i)
			}
			out = append(out, str)
		}
	default:
		return nil, fmt.Errorf("argument %q must be an array of strings", key)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("argument %q cannot be empty", key)
	}
	return out, nil
}
