package ocr

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []genai.Part{genai.Text(s)}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func TestGeminiExtractSendsPDFAndPrompt(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"patientName":"Jane Doe","dateOfBirth":"1985-01-15","allText":"Jane Doe 1985-01-15"}`)}
	g := &GeminiExtractor{model: gen, name: "test-model"}

	res, err := g.Extract(context.Background(), []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.True(t, res.Structured)
	assert.Equal(t, "Jane Doe 1985-01-15", res.Text)
	require.NotNil(t, res.Patient.Name)
	assert.Equal(t, "Jane Doe", *res.Patient.Name)

	require.Len(t, gen.parts, 2)
	blob, ok := gen.parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", blob.MIMEType)
	assert.Equal(t, []byte("%PDF-1.4 fake"), blob.Data)
	assert.Equal(t, genai.Text(Prompt), gen.parts[1])
}

func TestGeminiExtractUnstructuredReply(t *testing.T) {
	g := &GeminiExtractor{model: &fakeGenerator{resp: textResponse("just some words")}, name: "test-model"}
	res, err := g.Extract(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.False(t, res.Structured)
	assert.Equal(t, "just some words", res.Text)
	assert.Nil(t, res.Patient.Name)
	assert.Nil(t, res.Patient.DateOfBirth)
}

func TestGeminiExtractErrors(t *testing.T) {
	boom := errors.New("unavailable")
	cases := map[string]struct {
		gen  *fakeGenerator
		want error
	}{
		"transport":     {gen: &fakeGenerator{err: boom}, want: boom},
		"no candidates": {gen: &fakeGenerator{resp: &genai.GenerateContentResponse{}}, want: ErrEmptyReply},
		"blank text":    {gen: &fakeGenerator{resp: textResponse("   ")}, want: ErrEmptyReply},
		"safety": {gen: &fakeGenerator{resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}}, want: ErrBlocked},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			g := &GeminiExtractor{model: c.gen, name: "test-model"}
			_, err := g.Extract(context.Background(), []byte("%PDF"))
			require.Error(t, err)
			assert.ErrorIs(t, err, c.want)
		})
	}
}

func TestGeminiExtractRejectsEmptyInput(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("x")}
	g := &GeminiExtractor{model: gen, name: "test-model"}
	_, err := g.Extract(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, gen.parts)
}

func TestNewGeminiExtractorRequiresProject(t *testing.T) {
	_, err := NewGeminiExtractor(context.Background(), GeminiConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredential)
}
