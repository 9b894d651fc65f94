package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/pdfscan/pdfscan/pkg/logger"
	"github.com/pdfscan/pdfscan/pkg/metrics"
	"google.golang.org/api/option"
)

var (
	ErrEmptyReply = errors.New("ocr: model returned no content")
	ErrBlocked    = errors.New("ocr: model refused the document")
)

// generator is the slice of *genai.GenerativeModel the extractor calls.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type GeminiConfig struct {
	ProjectID       string
	Region          string
	Model           string
	CredentialsFile string
	Temperature     float32
}

// GeminiExtractor sends the whole PDF inline to a Gemini model on Vertex AI.
type GeminiExtractor struct {
	model  generator
	client *genai.Client
	name   string
}

func NewGeminiExtractor(ctx context.Context, cfg GeminiConfig) (*GeminiExtractor, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("%w: GCP_PROJECT_ID is not set", ErrMissingCredential)
	}
	if cfg.Region == "" {
		cfg.Region = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
		Temperature:      genai.Ptr(cfg.Temperature),
	}

	return &GeminiExtractor{model: model, client: client, name: cfg.Model}, nil
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"patientName": {Type: genai.TypeString, Nullable: true},
			"dateOfBirth": {Type: genai.TypeString, Nullable: true, Description: "YYYY-MM-DD"},
			"allText":     {Type: genai.TypeString},
		},
		Required: []string{"patientName", "dateOfBirth", "allText"},
	}
}

func (g *GeminiExtractor) Extract(ctx context.Context, pdf []byte) (*Result, error) {
	if len(pdf) == 0 {
		return nil, errors.New("ocr: empty document")
	}
	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Blob{MIMEType: "application/pdf", Data: pdf}, genai.Text(Prompt))
	metrics.ObserveOCR(g.name, time.Since(start), err)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return nil, fmt.Errorf("%w: %v", ErrBlocked, err)
		}
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw, err := replyText(resp)
	if err != nil {
		return nil, err
	}
	res := ParseReply(raw)
	if !res.Structured {
		logger.Warnf("ocr: reply from %s was not structured JSON, keeping raw text (%d bytes)", g.name, len(raw))
	}
	return res, nil
}

func (g *GeminiExtractor) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyReply
	}
	c := resp.Candidates[0]
	if c.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason %s", ErrBlocked, c.FinishReason)
	}
	if c.Content == nil {
		return "", ErrEmptyReply
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrEmptyReply
	}
	return out, nil
}
