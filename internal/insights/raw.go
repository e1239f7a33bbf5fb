package insights

// VideoIndex is the nested insights document returned by the video indexing
// service. Only the fields the mapper reads are declared; everything else in
// the payload is ignored on decode.
type VideoIndex struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Created            string              `json:"created"`
	DurationInSeconds  float64             `json:"durationInSeconds"`
	SummarizedInsights *SummarizedInsights `json:"summarizedInsights"`
	Videos             []RawVideo          `json:"videos"`
}

type SummarizedInsights struct {
	Duration RawDuration `json:"duration"`
}

type RawDuration struct {
	Seconds float64 `json:"seconds"`
}

type RawVideo struct {
	PublishedURL string      `json:"publishedUrl"`
	ThumbnailID  string      `json:"thumbnailId"`
	Insights     RawInsights `json:"insights"`
}

type RawInsights struct {
	SourceLanguage string               `json:"sourceLanguage"`
	Language       string               `json:"language"`
	Transcript     []RawTranscriptEntry `json:"transcript"`
	Keywords       []RawNamedInsight    `json:"keywords"`
	Topics         []RawNamedInsight    `json:"topics"`
	Faces          []RawNamedInsight    `json:"faces"`
	Labels         []RawNamedInsight    `json:"labels"`
	OCR            []RawOcrEntry        `json:"ocr"`
	Speakers       []RawSpeaker         `json:"speakers"`
}

type RawTranscriptEntry struct {
	Text       string        `json:"text"`
	Confidence *float64      `json:"confidence"`
	SpeakerID  *int          `json:"speakerId"`
	Instances  []RawInstance `json:"instances"`
}

// RawInstance is one occurrence span. Adjusted timecodes, when present, are
// corrected for edits the service made to the source and take precedence.
type RawInstance struct {
	AdjustedStart string `json:"adjustedStart"`
	AdjustedEnd   string `json:"adjustedEnd"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

type RawNamedInsight struct {
	Name string `json:"name"`
}

type RawOcrEntry struct {
	Text string `json:"text"`
}

type RawSpeaker struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
