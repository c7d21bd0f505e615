// Command form-fill fills a single PDF form from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-form-filler/internal/config"
	"github.com/a3tai/mcp-form-filler/internal/form"
	"github.com/a3tai/mcp-form-filler/internal/layout"
	"github.com/a3tai/mcp-form-filler/internal/pipeline"
)

type options struct {
	in       string
	out      string
	email    string
	name     string
	address  string
	phone    string
	age      int
	template string
	provider string
	fontPath string
	format   string
	verbose  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	log.SetOutput(io.Discard)
	if opts.verbose {
		log.SetOutput(stderr)
	}

	if err := fill(context.Background(), opts, stdout); err != nil {
		var fe *form.Error
		if errors.As(err, &fe) {
			fmt.Fprintf(stderr, "Error: %s (%v)\n", fe.UserMessage(), fe)
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("form-fill", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.in, "in", "", "Blank PDF form to fill (required)")
	fs.StringVar(&opts.out, "out", "", "Where to write the filled PDF (default <in>_filled.pdf)")
	fs.StringVar(&opts.email, "email", "", "Client email (required)")
	fs.StringVar(&opts.name, "name", "", "Client full name")
	fs.StringVar(&opts.address, "address", "", "Client address")
	fs.StringVar(&opts.phone, "phone", "", "Client phone number")
	fs.IntVar(&opts.age, "age", -1, "Client age")
	fs.StringVar(&opts.template, "template", layout.DefaultTemplateID, "Fallback template id")
	fs.StringVar(&opts.provider, "provider", "", "Field detection provider: openai, gemini or text")
	fs.StringVar(&opts.fontPath, "font-path", "", "TrueType font used to write values")
	fs.StringVar(&opts.format, "format", "text", "Report format: text, json")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log pipeline steps to stderr")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: form-fill --in form.pdf --email client@example.com [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.in == "" && fs.NArg() > 0 {
		opts.in = fs.Arg(0)
	}
	if opts.in == "" {
		return nil, fmt.Errorf("--in is required")
	}
	if strings.TrimSpace(opts.email) == "" {
		return nil, fmt.Errorf("--email is required")
	}
	if opts.format != "text" && opts.format != "json" {
		return nil, fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.out == "" {
		base := strings.TrimSuffix(opts.in, filepath.Ext(opts.in))
		opts.out = base + "_filled.pdf"
	}
	return opts, nil
}

// newConfig starts from the defaults and takes provider keys from the
// conventional environment variables
func newConfig(opts *options) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Template = opts.template
	cfg.Provider = opts.provider
	cfg.FontPath = opts.fontPath
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiAPIKey = firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY")
	cfg.TextAPIKey = os.Getenv("TEXT_LLM_API_KEY")
	return cfg
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func fill(ctx context.Context, opts *options, stdout io.Writer) error {
	cfg := newConfig(opts)
	service, err := pipeline.Build(cfg)
	if err != nil {
		return err
	}

	inAbs, _ := filepath.Abs(opts.in)
	outAbs, _ := filepath.Abs(opts.out)
	if inAbs == outAbs {
		return fmt.Errorf("output would overwrite the original form")
	}

	data, err := os.ReadFile(opts.in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.in, err)
	}
	if int64(len(data)) > cfg.MaxFileSize {
		return fmt.Errorf("file too large: %d bytes (max %d)", len(data), cfg.MaxFileSize)
	}
	mime, err := form.DetectMIMEType(data)
	if err != nil {
		return err
	}

	profile := form.Profile{
		Email:   opts.email,
		Name:    opts.name,
		Address: opts.address,
		Phone:   opts.phone,
	}
	if opts.age >= 0 {
		age := opts.age
		profile.Age = &age
	}

	res, err := service.Process(ctx, form.Document{
		Name:     filepath.Base(opts.in),
		MIMEType: mime,
		Bytes:    data,
		Profile:  profile,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(opts.out, res.Bytes, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.out, err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Output string `json:"output"`
			*pipeline.Result
		}{Output: opts.out, Result: res})
	}

	fmt.Fprintf(stdout, "Filled form written to %s\n", opts.out)
	switch res.Source {
	case pipeline.SourceDetected:
		fmt.Fprintf(stdout, "Fields: %d detected\n", len(res.Fields))
	default:
		fmt.Fprintf(stdout, "Fields: %d from template %q\n", len(res.Fields), res.TemplateID)
	}
	for _, p := range res.Drawn {
		fmt.Fprintf(stdout, "  %s = %s\n", p.Field, p.Text)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(stdout, "  %s not written: %s\n", s.Field, s.Reason)
	}
	return nil
}
