package api

import (
	"context"

	"pressline/internal/content"
	"pressline/internal/stagelog"
)

// ItemReader abstracts item persistence interactions needed for API queries.
type ItemReader interface {
	List(ctx context.Context, filter content.ListFilter) ([]*content.Item, error)
	Stats(ctx context.Context) (map[content.Status]int, error)
	Get(ctx context.Context, contentID string) (*content.Item, error)
}

// HistoryReader reads an item's Stage Log.
type HistoryReader interface {
	History(ctx context.Context, contentID string) ([]stagelog.Record, error)
}

// ItemService exposes read-only item operations returning API DTOs.
type ItemService struct {
	store   ItemReader
	history HistoryReader
}

// NewItemService constructs an ItemService around the provided readers.
func NewItemService(store ItemReader, history HistoryReader) *ItemService {
	if store == nil {
		return nil
	}
	return &ItemService{store: store, history: history}
}

// List returns summary items filtered by status.
func (s *ItemService) List(ctx context.Context, filter content.ListFilter) ([]Item, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, SummaryItem(item))
	}
	return out, nil
}

// Stats returns counts keyed by status string.
func (s *ItemService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeStats(stats), nil
}

// Describe fetches a single item with every derived field.
func (s *ItemService) Describe(ctx context.Context, contentID string) (*Item, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.Get(ctx, contentID)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromItem(item)
	return &dto, nil
}

// History returns the item's Stage Log after confirming the item exists.
func (s *ItemService) History(ctx context.Context, contentID string) (HistoryResponse, error) {
	if s == nil || s.store == nil || s.history == nil {
		return HistoryResponse{ContentID: contentID}, nil
	}
	item, err := s.store.Get(ctx, contentID)
	if err != nil {
		return HistoryResponse{}, err
	}
	records, err := s.history.History(ctx, item.ContentID)
	if err != nil {
		return HistoryResponse{}, err
	}
	return HistoryResponse{ContentID: item.ContentID, Records: FromRecords(records)}, nil
}
