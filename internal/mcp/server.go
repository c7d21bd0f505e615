package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-form-filler/internal/config"
	"github.com/a3tai/mcp-form-filler/internal/descriptions"
	"github.com/a3tai/mcp-form-filler/internal/pipeline"
	"github.com/a3tai/mcp-form-filler/internal/security"
)

// shutdownTimeout bounds the SSE server shutdown
const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *pipeline.Service
	paths     *security.PathValidator
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *pipeline.Service) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("pipeline service cannot be nil")
	}

	paths, err := security.NewPathValidator(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		service:   service,
		paths:     paths,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// profileOptions are the client profile parameters shared by the fill and
// detect tools
func profileOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Client email address"),
		),
		mcp.WithString("name",
			mcp.Description("Client full name; the last word is used as the surname"),
		),
		mcp.WithString("address",
			mcp.Description("Client postal address"),
		),
		mcp.WithString("phone",
			mcp.Description("Client phone number"),
		),
		mcp.WithNumber("age",
			mcp.Description("Client age in years"),
		),
	}
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	fillOpts := []mcp.ToolOption{
		mcp.WithDescription(descriptions.GetToolDescription(ToolFormFill)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF form, relative to the configured directory"),
		),
		mcp.WithString("output",
			mcp.Description("Where to write the filled PDF (default: <name>_filled.pdf next to the form)"),
		),
		mcp.WithString("template",
			mcp.Description("Fallback template id used when field detection fails"),
		),
	}
	s.mcpServer.AddTool(mcp.NewTool(ToolFormFill, append(fillOpts, profileOptions()...)...), s.handleFormFill)

	detectOpts := []mcp.ToolOption{
		mcp.WithDescription(descriptions.GetToolDescription(ToolFormDetectFields)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF or DOCX form, relative to the configured directory"),
		),
		mcp.WithString("template",
			mcp.Description("Fallback template id used when field detection fails"),
		),
	}
	s.mcpServer.AddTool(mcp.NewTool(ToolFormDetectFields, append(detectOpts, profileOptions()...)...), s.handleFormDetectFields)

	s.mcpServer.AddTool(mcp.NewTool(
		ToolFormExtractText,
		mcp.WithDescription(descriptions.GetToolDescription(ToolFormExtractText)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the document, relative to the configured directory"),
		),
	), s.handleFormExtractText)

	s.mcpServer.AddTool(mcp.NewTool(
		ToolFormNormalizeText,
		mcp.WithDescription(descriptions.GetToolDescription(ToolFormNormalizeText)),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to normalize"),
		),
	), s.handleFormNormalizeText)

	s.mcpServer.AddTool(mcp.NewTool(
		ToolFormTemplates,
		mcp.WithDescription(descriptions.GetToolDescription(ToolFormTemplates)),
		mcp.WithString("id",
			mcp.Description("Template id to show"),
		),
	), s.handleFormTemplates)

	s.mcpServer.AddTool(mcp.NewTool(
		ToolScanImagesToPDF,
		mcp.WithDescription(descriptions.GetToolDescription(ToolScanImagesToPDF)),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("Image paths in page order, relative to the configured directory"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("Path of the PDF to write"),
		),
	), s.handleScanImagesToPDF)

	s.mcpServer.AddTool(mcp.NewTool(
		ToolFormServerInfo,
		mcp.WithDescription(descriptions.GetToolDescription(ToolFormServerInfo)),
	), s.handleFormServerInfo)
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server over standard I/O
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting form filler MCP server in stdio mode")
		log.Printf("Directory: %s", s.config.Directory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is canceled
func (s *Server) runServerMode(ctx context.Context) error {
	sse := server.NewSSEServer(s.mcpServer,
		server.WithBaseURL("http://"+s.config.Address()),
	)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting form filler MCP server (SSE) on %s", s.config.Address())
		errCh <- sse.Start(s.config.Address())
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve SSE: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down SSE server: %w", err)
		}
		return nil
	}
}
