package domain

import (
	"fmt"
	"unicode/utf8"
)

const maxTitleLength = 256

// Field is a named value attached to a message.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Message is the platform-neutral rendering of a delivered item.
type Message struct {
	ItemID      string  `json:"item_id"`
	SourceID    string  `json:"source_id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
	Footer      string  `json:"footer"`
	ImageURL    string  `json:"image_url,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Kind        string  `json:"kind"`
}

// NewMessage renders an item and its classified media.
func NewMessage(item ContentItem, media ClassifiedMedia) Message {
	msg := Message{
		ItemID:      item.ID,
		SourceID:    item.SourceID,
		Title:       truncate(item.Title, maxTitleLength),
		URL:         "https://reddit.com" + item.Permalink,
		Description: fmt.Sprintf("Posted by u/%s", item.Author),
		Footer:      fmt.Sprintf("r/%s", item.SourceID),
		Kind:        media.Kind.String(),
	}

	switch media.Kind {
	case KindImage, KindAnimatedImage:
		msg.ImageURL = media.ResolvedURL
	case KindEmbeddedVideo:
		msg.Fields = append(msg.Fields, Field{Name: "Embedded Video", Value: media.ResolvedURL})
	case KindHostedVideo, KindDirectVideo:
		msg.Fields = append(msg.Fields, Field{Name: "Video", Value: media.ResolvedURL})
	default:
		msg.Fields = append(msg.Fields, Field{Name: "Media", Value: media.ResolvedURL})
	}

	return msg
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
