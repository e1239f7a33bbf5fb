package insights

import "time"

// SearchDocument is the flat, schema-conformant record published to the
// search index, keyed by the source video id. The keywords, topics, faces,
// labels and ocr fields are comma-joined strings because the deployed index
// schema types them as strings, not collections.
type SearchDocument struct {
	ID                string            `json:"id"`
	VideoID           string            `json:"videoId"`
	Name              string            `json:"name"`
	Transcript        string            `json:"transcript"`
	TranscriptEntries []TranscriptEntry `json:"transcriptEntries"`
	Keywords          string            `json:"keywords"`
	Topics            string            `json:"topics"`
	Faces             string            `json:"faces"`
	Labels            string            `json:"labels"`
	OCR               string            `json:"ocr"`
	Duration          float64           `json:"duration"`
	Created           string            `json:"created,omitempty"`
	Language          string            `json:"language,omitempty"`
	SpeakerCount      int               `json:"speakerCount"`
	PublishedURL      string            `json:"publishedUrl,omitempty"`
	ThumbnailID       string            `json:"thumbnailId,omitempty"`
	IndexedAt         time.Time         `json:"indexedAt"`
}

// TranscriptEntry is one spoken line with its span in seconds. A nil start or
// end means the source timecode was unparseable; the text is kept regardless.
type TranscriptEntry struct {
	Text         string   `json:"text"`
	StartSeconds *float64 `json:"startSeconds,omitempty"`
	EndSeconds   *float64 `json:"endSeconds,omitempty"`
	SpeakerID    *int     `json:"speakerId,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}
