package docai

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/documentai/v1"
	"google.golang.org/api/option"

	"ndcscan/internal"
	"ndcscan/internal/config"
)

// Analyzer runs a raw document through a document-understanding processor.
type Analyzer interface {
	Process(ctx context.Context, content []byte, mimeType string) (*internal.Document, error)
}

type Client struct {
	service   *documentai.Service
	processor string
	timeout   time.Duration
	logger    *zap.Logger
}

func ProcessorName(project, location, processorID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
}

func regionalEndpoint(location string) string {
	return fmt.Sprintf("https://%s-documentai.googleapis.com/", location)
}

// NewClient builds a Document AI client against the processor's regional
// endpoint. Credentials come from GOOGLE_CREDENTIALS_FILE when set, otherwise
// from Application Default Credentials. Passing extra options (an HTTP client,
// an endpoint override) skips credential discovery.
func NewClient(ctx context.Context, cfg config.Config, logger *zap.Logger, extra ...option.ClientOption) (*Client, error) {
	if err := cfg.RequireDocumentAI(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.ClientOption{option.WithEndpoint(regionalEndpoint(cfg.DocumentAILocation))}
	if len(extra) == 0 {
		creds, err := findCredentials(ctx, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	opts = append(opts, extra...)

	svc, err := documentai.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		service:   svc,
		processor: ProcessorName(cfg.GoogleCloudProject, cfg.DocumentAILocation, cfg.ProcessorID),
		timeout:   time.Duration(cfg.DocumentAITimeoutMs) * time.Millisecond,
		logger:    logger,
	}, nil
}

func findCredentials(ctx context.Context, file string) (*google.Credentials, error) {
	if file == "" {
		return google.FindDefaultCredentials(ctx, documentai.CloudPlatformScope)
	}
	blob, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return google.CredentialsFromJSON(ctx, blob, documentai.CloudPlatformScope)
}

func (c *Client) Process(ctx context.Context, content []byte, mimeType string) (*internal.Document, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &documentai.GoogleCloudDocumentaiV1ProcessRequest{
		RawDocument: &documentai.GoogleCloudDocumentaiV1RawDocument{
			Content:  base64.StdEncoding.EncodeToString(content),
			MimeType: mimeType,
		},
	}

	start := time.Now()
	resp, err := c.service.Projects.Locations.Processors.Process(c.processor, req).Context(ctx).Do()
	if err != nil {
		return nil, internal.CollaboratorError("process document", err)
	}
	if resp.Document == nil {
		return nil, internal.InternalError("process document", "response has no document")
	}

	doc := toDocument(resp.Document)
	c.logger.Debug("document processed",
		zap.String("mime_type", mimeType),
		zap.Int("entities", len(doc.Entities)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return doc, nil
}

func toDocument(d *documentai.GoogleCloudDocumentaiV1Document) *internal.Document {
	doc := &internal.Document{
		Text:     d.Text,
		Entities: make([]internal.Entity, 0, len(d.Entities)),
	}
	for _, e := range d.Entities {
		if e == nil {
			continue
		}
		doc.Entities = append(doc.Entities, internal.Entity{
			Type:        e.Type,
			MentionText: e.MentionText,
			Confidence:  float32(e.Confidence),
			Anchor:      toAnchor(e.TextAnchor),
		})
	}
	return doc
}

func toAnchor(a *documentai.GoogleCloudDocumentaiV1DocumentTextAnchor) *internal.TextAnchor {
	if a == nil {
		return nil
	}
	anchor := &internal.TextAnchor{Segments: make([]internal.TextSegment, 0, len(a.TextSegments))}
	for _, s := range a.TextSegments {
		if s == nil {
			continue
		}
		anchor.Segments = append(anchor.Segments, internal.TextSegment{StartIndex: s.StartIndex, EndIndex: s.EndIndex})
	}
	return anchor
}
