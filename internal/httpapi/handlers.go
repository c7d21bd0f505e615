package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/a3tai/mcp-form-filler/internal/form"
	"github.com/a3tai/mcp-form-filler/internal/pipeline"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id"`
}

// detectResponse is the body of /api/v1/detect
type detectResponse struct {
	RequestID       string          `json:"request_id"`
	SourceName      string          `json:"source_name"`
	MIMEType        form.MIMEType   `json:"mime_type"`
	Source          pipeline.Source `json:"source"`
	TemplateID      string          `json:"template_id,omitempty"`
	DetectionReason string          `json:"detection_reason,omitempty"`
	Fields          []form.Field    `json:"fields"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"version":  s.config.Version,
		"provider": s.service.Info().Provider,
	})
}

func (s *Server) handleFill(c *gin.Context) {
	doc, ok := s.readUpload(c)
	if !ok {
		return
	}

	res, err := s.service.Process(c.Request.Context(), *doc,
		pipeline.WithTemplate(c.PostForm("template")),
		pipeline.WithRequestID(requestID(c)),
	)
	if err != nil {
		s.fail(c, err)
		return
	}

	base := strings.TrimSuffix(filepath.Base(doc.Name), filepath.Ext(doc.Name))
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": base + "_filled.pdf",
	}))
	c.Header("X-Form-Source", string(res.Source))
	c.Header("X-Form-Fields", strconv.Itoa(len(res.Fields)))
	c.Header("X-Form-Drawn", strconv.Itoa(len(res.Drawn)))
	c.Data(http.StatusOK, string(form.MIMEPDF), res.Bytes)
}

func (s *Server) handleDetect(c *gin.Context) {
	doc, ok := s.readUpload(c)
	if !ok {
		return
	}

	res, err := s.service.Analyze(c.Request.Context(), *doc,
		pipeline.WithTemplate(c.PostForm("template")),
		pipeline.WithRequestID(requestID(c)),
	)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, detectResponse{
		RequestID:       res.RequestID,
		SourceName:      res.SourceName,
		MIMEType:        res.MIMEType,
		Source:          res.Source,
		TemplateID:      res.TemplateID,
		DetectionReason: res.DetectionReason,
		Fields:          res.Fields,
	})
}

func (s *Server) handleTemplates(c *gin.Context) {
	info := s.service.Info()
	c.JSON(http.StatusOK, gin.H{
		"templates": info.Templates,
		"fallback":  info.TemplateID,
	})
}

func (s *Server) handleTemplate(c *gin.Context) {
	id := c.Param("id")
	fields, used := s.service.Template(id)
	if !strings.EqualFold(id, used) {
		c.JSON(http.StatusNotFound, errorResponse{
			Error:     fmt.Sprintf("unknown template: %s", id),
			RequestID: requestID(c),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": used, "fields": fields})
}

// readUpload turns the multipart request into a document. It writes the
// error response itself and reports whether the caller should continue.
func (s *Server) readUpload(c *gin.Context) (*form.Document, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		s.badRequest(c, "a multipart 'file' field is required", err)
		return nil, false
	}
	if header.Size > s.config.MaxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
			Error:     fmt.Sprintf("file too large: %d bytes (max %d)", header.Size, s.config.MaxFileSize),
			RequestID: requestID(c),
		})
		return nil, false
	}

	f, err := header.Open()
	if err != nil {
		s.badRequest(c, "cannot open upload", err)
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.config.MaxFileSize+1))
	if err != nil {
		s.badRequest(c, "cannot read upload", err)
		return nil, false
	}

	kind, err := form.DetectMIMEType(data)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}

	profile := form.Profile{
		Email:   strings.TrimSpace(c.PostForm("email")),
		Name:    strings.TrimSpace(c.PostForm("name")),
		Address: strings.TrimSpace(c.PostForm("address")),
		Phone:   strings.TrimSpace(c.PostForm("phone")),
	}
	if raw := strings.TrimSpace(c.PostForm("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil || age < 0 {
			s.badRequest(c, "age must be a non-negative whole number", err)
			return nil, false
		}
		profile.Age = &age
	}

	return &form.Document{
		Name:     header.Filename,
		MIMEType: kind,
		Bytes:    data,
		Profile:  profile,
	}, true
}

func (s *Server) badRequest(c *gin.Context, msg string, err error) {
	resp := errorResponse{Error: msg, RequestID: requestID(c)}
	if err != nil {
		resp.Detail = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

// fail maps pipeline errors to HTTP statuses
func (s *Server) fail(c *gin.Context, err error) {
	var fe *form.Error
	if !errors.As(err, &fe) {
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:     "internal error",
			Detail:    err.Error(),
			RequestID: requestID(c),
		})
		return
	}

	c.JSON(statusFor(fe.Kind), errorResponse{
		Error:     fe.UserMessage(),
		Kind:      fe.Kind.String(),
		Detail:    fe.Error(),
		RequestID: requestID(c),
	})
}

func statusFor(kind form.ErrorKind) int {
	switch kind {
	case form.KindInvalidInput:
		return http.StatusBadRequest
	case form.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case form.KindExtractionFailed, form.KindPDFLoad:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
