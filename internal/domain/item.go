package domain

// ContentHint is the source-declared shape of a content item.
type ContentHint string

const (
	HintNone        ContentHint = ""
	HintImage       ContentHint = "image"
	HintHostedVideo ContentHint = "hosted:video"
	HintRichVideo   ContentHint = "rich:video"
	HintLink        ContentHint = "link"
	HintSelf        ContentHint = "self"
)

// MediaDescriptor carries the structured media payload of a hosted video.
type MediaDescriptor struct {
	FallbackURL string
	Width       int
	Height      int
	DurationSec int
}

// ContentItem is a read-only item fetched from a content source.
type ContentItem struct {
	ID        string
	SourceID  string
	Title     string
	Permalink string
	Author    string
	URL       string
	Hint      ContentHint
	Media     *MediaDescriptor
	Adult     bool
}

// MediaKind is the classifier outcome for a content item.
type MediaKind int

const (
	KindNone MediaKind = iota
	KindImage
	KindAnimatedImage
	KindHostedVideo
	KindEmbeddedVideo
	KindDirectVideo
)

var kindNames = map[MediaKind]string{
	KindNone:          "none",
	KindImage:         "image",
	KindAnimatedImage: "animated_image",
	KindHostedVideo:   "hosted_video",
	KindEmbeddedVideo: "embedded_video",
	KindDirectVideo:   "direct_video",
}

func (k MediaKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseMediaKind maps a configuration name back to a MediaKind.
func ParseMediaKind(name string) (MediaKind, bool) {
	for kind, n := range kindNames {
		if n == name {
			return kind, true
		}
	}
	return KindNone, false
}

// IsImage reports whether the kind renders as an inline image.
func (k MediaKind) IsImage() bool {
	return k == KindImage || k == KindAnimatedImage
}

// ClassifiedMedia is derived per item and never persisted.
type ClassifiedMedia struct {
	Kind        MediaKind
	ResolvedURL string
}

// Eligible reports whether the item may proceed to delivery.
func (m ClassifiedMedia) Eligible() bool {
	return m.Kind != KindNone
}
