// Package ocr turns raw PDF bytes into free text plus the two structured
// fields the service cares about, using a hosted generative model.
package ocr

import (
	"context"
	"errors"

	"github.com/pdfscan/pdfscan/internal/document"
)

// ErrMissingCredential is returned by constructors when the model cannot be
// reached without further configuration.
var ErrMissingCredential = errors.New("ocr: missing model credential")

// Result is a successful extraction.
type Result struct {
	Text    string
	Patient document.PatientData
	// Structured is false when the reply could not be parsed and Text holds
	// the raw model output.
	Structured bool
}

// Extractor is the OCR adapter contract. A non-nil error means the
// extraction failed; a malformed model reply is not an error (see ParseReply).
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (*Result, error)
}

// Prompt is sent with every document.
const Prompt = `Extract information from this document PDF.

IMPORTANT: Respond ONLY with a JSON object in this exact format:
{
  "patientName": "Full name of the primary person or null if not found",
  "dateOfBirth": "Date in YYYY-MM-DD format or null if not found",
  "allText": "All visible text from the document"
}

Rules for extraction:
- For name: search the entire document. Look for labeled sections such as "Name:", "Full Name:", "Applicant:", "Customer:", "Client:" or "Patient:". Without labels, look in headers, footers, signatures, form fields, tables and margins for the name of the main subject of the document.
- For date of birth: look for "DOB:", "Date of Birth:", "Birth Date:", "Born:" and for date patterns anywhere in the document that could be a birth date.
- Convert dates to YYYY-MM-DD (for example "01/15/1985" becomes "1985-01-15").
- If information is not found or unclear, use null.
- Put ALL visible text in the allText field.
- Do not wrap the response in backticks or markdown.
- Return ONLY the JSON object, no additional text or explanations.`
