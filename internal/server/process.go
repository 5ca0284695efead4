package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"ndcscan/internal"
	"ndcscan/internal/pipeline"
)

type processRequest struct {
	EncodedImage string `json:"encodedImage"`
	MimeType     string `json:"mimeType"`
}

type processResponse struct {
	ScannedNdcs []internal.Translation `json:"scannedNdcs"`
}

func (r processRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.EncodedImage) == "" {
		missing = append(missing, "encodedImage")
	}
	if strings.TrimSpace(r.MimeType) == "" {
		missing = append(missing, "mimeType")
	}
	if len(missing) > 0 {
		return internal.ValidationError("Invalid request: missing " + strings.Join(missing, " and "))
	}
	return nil
}

func (s *Server) processDocument(c echo.Context) error {
	var req processRequest
	if err := c.Bind(&req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return err
		}
		return internal.ValidationError("Invalid request: body must be a JSON object")
	}
	if err := req.validate(); err != nil {
		return err
	}

	content, err := decodeImage(req.EncodedImage)
	if err != nil {
		return internal.ValidationError("Invalid request: encodedImage is not valid base64")
	}
	if err := pipeline.CheckPageLimit(content, req.MimeType, s.opts.MaxPDFPages); err != nil {
		return err
	}

	ctx := c.Request().Context()
	doc, err := s.analyzer.Process(ctx, content, req.MimeType)
	if err != nil {
		return err
	}

	batch, err := s.translator.TranslateDocument(ctx, doc)
	if err != nil {
		return err
	}

	s.logger.Info("document translated",
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		zap.Int("entities", len(doc.Entities)),
		zap.Int("ndcs", len(batch)),
	)
	return c.JSON(http.StatusOK, processResponse{ScannedNdcs: batch})
}

// decodeImage accepts standard or URL-safe base64, padded or not, and an
// optional data URL prefix.
func decodeImage(input string) ([]byte, error) {
	s := strings.TrimSpace(input)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.Join(strings.Fields(s), "")

	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		decoded, err := enc.DecodeString(s)
		if err == nil {
			return decoded, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
