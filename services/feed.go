package services

import (
	"context"
	"encoding/json"
	"time"

	"kavyalok/cache"
	"kavyalok/logger"
	"kavyalok/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 50
)

// FeedKind names a post listing.
type FeedKind string

const (
	FeedAll    FeedKind = "all"
	FeedIDs    FeedKind = "ids"
	FeedSearch FeedKind = "search"
	FeedTag    FeedKind = "tag"
)

type FeedQuery struct {
	Kind    FeedKind
	Page    int
	Limit   int
	PostIDs []primitive.ObjectID // FeedIDs candidates
	Search  string
	Tag     string
}

// Normalize applies the paging defaults and caps.
func (q *FeedQuery) Normalize() {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Kind == "" {
		q.Kind = FeedAll
	}
}

func (q *FeedQuery) filter() models.PostFilter {
	switch q.Kind {
	case FeedIDs:
		return models.PostFilter{IDs: q.PostIDs, ByIDs: true}
	case FeedSearch:
		return models.PostFilter{Search: q.Search}
	case FeedTag:
		return models.PostFilter{Tag: q.Tag}
	default:
		return models.PostFilter{}
	}
}

func (q *FeedQuery) cacheKey() string {
	var parts []string
	switch q.Kind {
	case FeedIDs:
		parts = make([]string, 0, len(q.PostIDs))
		for _, id := range q.PostIDs {
			parts = append(parts, id.Hex())
		}
	case FeedSearch:
		parts = []string{q.Search}
	case FeedTag:
		parts = []string{q.Tag}
	}
	return cache.FeedKey(string(q.Kind), q.Page, q.Limit, parts...)
}

// FeedService assembles paginated post listings behind a TTL cache. Writes
// never invalidate cached pages; they age out after the TTL.
type FeedService struct {
	posts PostStore
	cache cache.Cache
	ttl   time.Duration
}

func NewFeedService(posts PostStore, c cache.Cache, ttl time.Duration) *FeedService {
	return &FeedService{posts: posts, cache: c, ttl: ttl}
}

func (s *FeedService) List(ctx context.Context, q FeedQuery) (*models.FeedPage, error) {
	q.Normalize()
	switch q.Kind {
	case FeedAll, FeedIDs:
	case FeedSearch:
		if q.Search == "" {
			return nil, Validationf("search query is required")
		}
	case FeedTag:
		if q.Tag == "" {
			return nil, Validationf("tag is required")
		}
	default:
		return nil, Validationf("unknown feed kind %q", q.Kind)
	}

	key := q.cacheKey()
	log := logger.Log.WithField("key", key)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		log.WithError(err).Warn("Feed cache read failed, querying store")
	} else if ok {
		var page models.FeedPage
		if err := json.Unmarshal(raw, &page); err == nil {
			return &page, nil
		}
		log.Warn("Discarding undecodable feed cache entry")
	}

	page, err := s.assemble(ctx, q)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(page); err != nil {
		log.WithError(err).Warn("Feed page not cacheable")
	} else if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		log.WithError(err).Warn("Feed cache write failed")
	}
	return page, nil
}

func (s *FeedService) assemble(ctx context.Context, q FeedQuery) (*models.FeedPage, error) {
	filter := q.filter()
	skip := int64(q.Page-1) * int64(q.Limit)

	items, err := s.posts.ListPosts(ctx, filter, skip, int64(q.Limit))
	if err != nil {
		return nil, errors.Wrap(err, "list posts")
	}
	total, err := s.posts.CountPosts(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "count posts")
	}

	return &models.FeedPage{
		Items:   items,
		Total:   total,
		HasMore: skip+int64(len(items)) < total,
		Page:    q.Page,
		Limit:   q.Limit,
	}, nil
}
