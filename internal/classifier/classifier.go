// Package classifier decides which media kind a content item carries and
// which URL should be delivered for it.
package classifier

import (
	"net/url"
	"path"
	"strings"

	"media_syndicator/internal/domain"
)

var (
	imageExtensions    = []string{".jpg", ".jpeg", ".png", ".gif"}
	animatedExtensions = []string{".gif"}
	videoExtensions    = []string{".mp4", ".webm", ".mov"}
)

// DefaultEmbedHosts are the hosts whose rich-video links are delivered as-is.
var DefaultEmbedHosts = []string{"redgifs.com"}

// Policy controls which media kinds are eligible for delivery.
type Policy struct {
	EligibleKinds []domain.MediaKind
	EmbedHosts    []string
}

// DefaultPolicy allows every media kind.
func DefaultPolicy() Policy {
	return Policy{
		EligibleKinds: []domain.MediaKind{
			domain.KindImage,
			domain.KindAnimatedImage,
			domain.KindHostedVideo,
			domain.KindEmbeddedVideo,
			domain.KindDirectVideo,
		},
		EmbedHosts: DefaultEmbedHosts,
	}
}

// Classifier is safe for concurrent use; it holds no mutable state.
type Classifier struct {
	eligible   map[domain.MediaKind]bool
	embedHosts []string
}

func New(policy Policy) *Classifier {
	eligible := make(map[domain.MediaKind]bool, len(policy.EligibleKinds))
	for _, k := range policy.EligibleKinds {
		if k != domain.KindNone {
			eligible[k] = true
		}
	}

	hosts := make([]string, 0, len(policy.EmbedHosts))
	for _, h := range policy.EmbedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}

	return &Classifier{eligible: eligible, embedHosts: hosts}
}

// Classify never fails; unrecognised or disallowed shapes yield KindNone.
func (c *Classifier) Classify(item domain.ContentItem) domain.ClassifiedMedia {
	media := c.decide(item)
	if media.Kind == domain.KindNone || !c.eligible[media.Kind] {
		return domain.ClassifiedMedia{Kind: domain.KindNone}
	}
	return media
}

func (c *Classifier) decide(item domain.ContentItem) domain.ClassifiedMedia {
	switch item.Hint {
	case domain.HintImage:
		return imageMedia(item.URL)
	case domain.HintHostedVideo:
		if item.Media == nil || item.Media.FallbackURL == "" {
			return domain.ClassifiedMedia{Kind: domain.KindNone}
		}
		return domain.ClassifiedMedia{Kind: domain.KindHostedVideo, ResolvedURL: item.Media.FallbackURL}
	case domain.HintRichVideo:
		if c.isEmbedHost(item.URL) {
			return domain.ClassifiedMedia{Kind: domain.KindEmbeddedVideo, ResolvedURL: item.URL}
		}
	}

	ext := extension(item.URL)
	switch {
	case hasAny(ext, imageExtensions):
		return imageMedia(item.URL)
	case hasAny(ext, videoExtensions):
		return domain.ClassifiedMedia{Kind: domain.KindDirectVideo, ResolvedURL: item.URL}
	}

	return domain.ClassifiedMedia{Kind: domain.KindNone}
}

func imageMedia(rawURL string) domain.ClassifiedMedia {
	kind := domain.KindImage
	if hasAny(extension(rawURL), animatedExtensions) {
		kind = domain.KindAnimatedImage
	}
	return domain.ClassifiedMedia{Kind: kind, ResolvedURL: rawURL}
}

func (c *Classifier) isEmbedHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range c.embedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// extension returns the lowercased extension of the URL path, ignoring
// query and fragment.
func extension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}

func hasAny(ext string, exts []string) bool {
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
