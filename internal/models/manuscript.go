package models

import "time"

// Manuscript is a submission record. It always references a blob that was
// stored before the record was created.
type Manuscript struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Title       string    `json:"title"`
	Abstract    string    `json:"abstract"`
	FileName    string    `json:"fileName"` // Stored blob name
	FilePath    string    `json:"filePath"` // Backend reference to the blob
	FileURL     string    `json:"fileUrl"`
	FileSize    int64     `json:"fileSize"`
	ContentType string    `json:"contentType,omitempty"`
	SubmittedBy *string   `json:"submittedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Submission is the validated form input for a new manuscript.
type Submission struct {
	Name     string
	Email    string
	Title    string
	Abstract string
}
