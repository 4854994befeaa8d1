package web

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	imageadapter "github.com/bkyoung/eyeris/internal/adapter/image"
	llmhttp "github.com/bkyoung/eyeris/internal/adapter/llm/http"
	"github.com/bkyoung/eyeris/internal/prompt"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *Server) handleAnalyze(c *gin.Context) {
	ctx := c.Request.Context()

	if !s.inflight.TryAcquire(1) {
		s.logWarning(ctx, "analysis rejected, at capacity", nil)
		c.JSON(http.StatusServiceUnavailable, Response{
			Success: false,
			Message: "Service is at capacity, try again later",
		})
		return
	}
	defer s.inflight.Release(1)

	spec, err := specFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error()})
		return
	}

	raw, err := readImageField(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error()})
		return
	}

	analysis, err := s.analyzer.Process(ctx, raw, spec)
	if err != nil {
		status := statusFor(err)
		s.logWarning(ctx, "analysis failed", map[string]interface{}{
			"status": status,
			"error":  err.Error(),
		})
		c.JSON(status, Response{Success: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "Analysis completed successfully",
		Data:    analysis,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Message: "Service is healthy"})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "Cumulative token usage",
		Data:    s.analyzer.Stats(),
	})
}

// specFromQuery maps the query parameters onto a prompt spec. An unknown
// format is a client error and caught here, before any image work.
func specFromQuery(c *gin.Context) (prompt.Spec, error) {
	format, err := prompt.ParseFormat(c.Query("format"))
	if err != nil {
		return prompt.Spec{}, err
	}

	spec := prompt.Spec{
		Format:   format,
		Category: c.Query("category"),
		Platform: c.Query("platform"),
		Config:   prompt.DefaultConfig(),
	}
	if traits := c.Query("traits"); traits != "" {
		for _, trait := range strings.Split(traits, ",") {
			if trait = strings.TrimSpace(trait); trait != "" {
				spec.Traits = append(spec.Traits, trait)
			}
		}
	}

	// Category and traits also influence non-category, non-custom formats
	// through the toggle config, so a json request can still carry them.
	if spec.Format != prompt.FormatCategory {
		spec.Config.ContentCategory = spec.Category
	}
	if spec.Format != prompt.FormatCustom {
		spec.Config.CustomTraits = spec.Traits
	}
	return spec, nil
}

// readImageField extracts the uploaded bytes from the multipart field
// "image".
func readImageField(c *gin.Context) ([]byte, error) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		return nil, errors.New("multipart field 'image' is required")
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read image data: " + err.Error())
	}
	if len(raw) == 0 {
		return nil, errors.New("received empty image data")
	}
	return raw, nil
}

// statusFor maps a pipeline failure to an HTTP status by stage: image
// preparation failures are the client's fault, provider failures are the
// upstream's. A missing credential is a deployment problem, not either.
func statusFor(err error) int {
	var imgErr *imageadapter.Error
	if errors.As(err, &imgErr) {
		return http.StatusBadRequest
	}

	var provErr *llmhttp.Error
	if errors.As(err, &provErr) {
		if provErr.Type == llmhttp.ErrTypeMissingCredential {
			return http.StatusInternalServerError
		}
		return http.StatusBadGateway
	}

	// Anything else (prompt construction, validation) is a client error.
	return http.StatusBadRequest
}
