package dto

type DocumentResponse struct {
	ID            string `json:"id"`
	Category      string `json:"category"`
	Bucket        string `json:"bucket"`
	ImageURL      string `json:"image_url"`
	ExtractedText string `json:"extracted_text"`
	CreatedAt     string `json:"created_at"`
}

type IngestResponse struct {
	Document DocumentResponse `json:"document"`
	Warning  string           `json:"warning,omitempty"`
}

type PreviewResponse struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Preview     string `json:"preview"`
}
