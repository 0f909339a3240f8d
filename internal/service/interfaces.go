package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"media_syndicator/internal/domain"
)

type Source interface {
	FetchRecent(ctx context.Context, sourceID string, limit int) ([]domain.ContentItem, error)
	IsAdultFlagged(ctx context.Context, sourceID string) (bool, error)
}

type Sink interface {
	Resolve(ctx context.Context, destinationID string) (domain.Destination, error)
	Send(ctx context.Context, dest domain.Destination, msg domain.Message) error
}

type MappingStore interface {
	Upsert(ctx context.Context, mapping domain.Mapping) error
	Delete(ctx context.Context, sourceID string) (bool, error)
	List(ctx context.Context) ([]domain.Mapping, error)
}

type SettingsStore interface {
	GetInt(ctx context.Context, key string) (int, bool, error)
	PutInt(ctx context.Context, key string, value int) error
}

type Ledger interface {
	Delivered(ctx context.Context, itemIDs []string) (map[string]struct{}, error)
	MarkDelivered(ctx context.Context, itemID string) error
}

type Classifier interface {
	Classify(item domain.ContentItem) domain.ClassifiedMedia
}
