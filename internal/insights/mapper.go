package insights

import (
	"strconv"
	"strings"
	"time"
)

// NoTranscript is published when a video yielded no transcript entries.
const NoTranscript = "No transcript available"

// Mapper flattens a raw VideoIndex into a SearchDocument. It is a pure
// transformation: missing or malformed fields degrade to omission or empty
// defaults, never to an error.
type Mapper struct {
	now func() time.Time
}

func NewMapper() *Mapper {
	return &Mapper{now: func() time.Time { return time.Now().UTC() }}
}

// Map builds the publish-ready document from the raw insights payload.
func (m *Mapper) Map(raw VideoIndex) SearchDocument {
	var ins RawInsights
	var publishedURL, thumbnailID string
	if len(raw.Videos) > 0 {
		ins = raw.Videos[0].Insights
		publishedURL = raw.Videos[0].PublishedURL
		thumbnailID = raw.Videos[0].ThumbnailID
	}

	entries, fullText := mapTranscript(ins.Transcript)

	doc := SearchDocument{
		ID:                raw.ID,
		VideoID:           raw.ID,
		Name:              raw.Name,
		Transcript:        fullText,
		TranscriptEntries: entries,
		Keywords:          joinNames(ins.Keywords),
		Topics:            joinNames(ins.Topics),
		Faces:             joinNames(ins.Faces),
		Labels:            joinNames(ins.Labels),
		OCR:               joinOcr(ins.OCR),
		Duration:          duration(raw),
		Created:           raw.Created,
		Language:          language(ins),
		SpeakerCount:      len(ins.Speakers),
		PublishedURL:      publishedURL,
		ThumbnailID:       thumbnailID,
		IndexedAt:         m.now(),
	}
	return doc
}

func mapTranscript(raw []RawTranscriptEntry) ([]TranscriptEntry, string) {
	entries := make([]TranscriptEntry, 0, len(raw))
	texts := make([]string, 0, len(raw))

	for _, re := range raw {
		if re.Text == "" {
			continue
		}
		entry := TranscriptEntry{
			Text:       re.Text,
			SpeakerID:  re.SpeakerID,
			Confidence: re.Confidence,
		}
		if len(re.Instances) > 0 {
			inst := re.Instances[0]
			if secs, ok := parseTimecode(firstNonEmpty(inst.AdjustedStart, inst.Start)); ok {
				entry.StartSeconds = &secs
			}
			if secs, ok := parseTimecode(firstNonEmpty(inst.AdjustedEnd, inst.End)); ok {
				entry.EndSeconds = &secs
			}
		}
		entries = append(entries, entry)
		texts = append(texts, re.Text)
	}

	if len(texts) == 0 {
		return entries, NoTranscript
	}
	return entries, strings.Join(texts, " ")
}

// parseTimecode converts a colon-delimited "h:m:s[.f]" or "m:s[.f]" timecode
// to total seconds. Missing leading components default to zero.
func parseTimecode(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	total := 0.0
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}

func joinNames(items []RawNamedInsight) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.Name != "" {
			names = append(names, item.Name)
		}
	}
	return strings.Join(names, ", ")
}

func joinOcr(items []RawOcrEntry) string {
	fragments := make([]string, 0, len(items))
	for _, item := range items {
		if item.Text != "" {
			fragments = append(fragments, item.Text)
		}
	}
	return strings.Join(fragments, ", ")
}

func duration(raw VideoIndex) float64 {
	if raw.DurationInSeconds > 0 {
		return raw.DurationInSeconds
	}
	if raw.SummarizedInsights != nil {
		return raw.SummarizedInsights.Duration.Seconds
	}
	return 0
}

func language(ins RawInsights) string {
	if ins.Language != "" {
		return ins.Language
	}
	return ins.SourceLanguage
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
