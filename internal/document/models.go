package document

import "time"

// Status is the extraction lifecycle state of a Document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further automatic transitions happen from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// PatientData holds the structured fields pulled out of a document.
// Either field may be nil when the model could not find it.
type PatientData struct {
	Name        *string `json:"name" bson:"name" firestore:"name"`
	DateOfBirth *string `json:"dateOfBirth" bson:"dateOfBirth" firestore:"dateOfBirth"`
}

// Metadata describes the stored blob.
type Metadata struct {
	Size      int64  `json:"size" bson:"size" firestore:"size"`
	MimeType  string `json:"mimeType" bson:"mimeType" firestore:"mimeType"`
	PageCount int    `json:"pageCount,omitempty" bson:"pageCount,omitempty" firestore:"pageCount,omitempty"`
}

// Document is the persisted record tracking one uploaded PDF.
type Document struct {
	ID               string       `json:"id" bson:"_id,omitempty" firestore:"-"`
	Filename         string       `json:"filename" bson:"filename" firestore:"filename"`
	OriginalName     string       `json:"originalName" bson:"originalName" firestore:"originalName"`
	StorageKey       string       `json:"storageKey" bson:"storageKey" firestore:"storageKey"`
	StorageURL       string       `json:"storageUrl" bson:"storageUrl" firestore:"storageUrl"`
	UploadDate       time.Time    `json:"uploadDate" bson:"uploadDate" firestore:"uploadDate"`
	ExtractionStatus Status       `json:"extractionStatus" bson:"extractionStatus" firestore:"extractionStatus"`
	ExtractedText    string       `json:"extractedText,omitempty" bson:"extractedText,omitempty" firestore:"extractedText,omitempty"`
	PatientData      *PatientData `json:"patientData,omitempty" bson:"patientData,omitempty" firestore:"patientData,omitempty"`
	Error            string       `json:"error,omitempty" bson:"error,omitempty" firestore:"error,omitempty"`
	Metadata         Metadata     `json:"metadata" bson:"metadata" firestore:"metadata"`
	CreatedAt        time.Time    `json:"createdAt" bson:"createdAt" firestore:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt" bson:"updatedAt" firestore:"updatedAt"`
}

// CreateInput carries the fields known at upload time.
type CreateInput struct {
	Filename     string
	OriginalName string
	StorageKey   string
	StorageURL   string
	Size         int64
	MimeType     string
	PageCount    int
}

// NewFromInput builds a pending Document stamped with now.
func NewFromInput(in CreateInput, now time.Time) *Document {
	return &Document{
		Filename:         in.Filename,
		OriginalName:     in.OriginalName,
		StorageKey:       in.StorageKey,
		StorageURL:       in.StorageURL,
		UploadDate:       now,
		ExtractionStatus: StatusPending,
		Metadata: Metadata{
			Size:      in.Size,
			MimeType:  in.MimeType,
			PageCount: in.PageCount,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
