package domain

import "fmt"

// Story is the generated narrative. It is never modified after generation.
type Story struct {
	Title                string `json:"title"`
	CharacterDescription string `json:"characterDescription"`
	Pages                []Page `json:"pages"`
}

// Page is one narrative unit; ImagePrompt describes its scene for the illustrator.
type Page struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"imagePrompt"`
}

// Image holds either encoded image bytes or a URL pointing at one.
type Image struct {
	Data     []byte
	MIMEType string
	URL      string
}

// ImageRef is compared by identity: two refs are the same image only if they
// point at the same Image.
type ImageRef = *Image

// IsEmpty reports whether there is nothing to show.
func (i *Image) IsEmpty() bool {
	return i == nil || (len(i.Data) == 0 && i.URL == "")
}

// IsRemote reports whether the image is served from somewhere else.
func (i *Image) IsRemote() bool {
	return i != nil && len(i.Data) == 0 && i.URL != ""
}

// Quality is the illustration quality tier chosen at setup.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseQuality accepts the tier names and the resolution labels of the setup form.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case "low", "1K":
		return QualityLow, nil
	case "medium", "2K":
		return QualityMedium, nil
	case "high", "4K":
		return QualityHigh, nil
	}
	return "", fmt.Errorf("%w: unknown image quality %q", ErrInvalidInput, s)
}

// Resolution returns the label the image model understands.
func (q Quality) Resolution() string {
	switch q {
	case QualityMedium:
		return "2K"
	case QualityHigh:
		return "4K"
	default:
		return "1K"
	}
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one entry of the conversation log.
type Message struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}
