package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mailroom/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "mailroom:"

type CacheService interface {
	// Report caching
	GetStatistics(ctx context.Context, mailboxID *int64, days int) (*models.PackageStatistics, error)
	SetStatistics(ctx context.Context, stats *models.PackageStatistics, ttl time.Duration) error
	GetMailboxSummary(ctx context.Context, mailboxID int64, days int) (*models.MailboxSummary, error)
	SetMailboxSummary(ctx context.Context, summary *models.MailboxSummary, ttl time.Duration) error

	// Directory search caching
	GetMailboxSearch(ctx context.Context, filter models.MailboxFilter) ([]*models.Mailbox, error)
	SetMailboxSearch(ctx context.Context, filter models.MailboxFilter, mailboxes []*models.Mailbox, ttl time.Duration) error

	// Cache invalidation
	InvalidateReports(ctx context.Context) error
	InvalidateMailboxSearch(ctx context.Context) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisClient builds a client from a bare host:port or a redis:// URL.
func NewRedisClient(addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr, Password: password, DB: db}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if password != "" {
			parsed.Password = password
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", zap.String("addr", opts.Addr), zap.Error(err))
	} else {
		logger.Info("redis connection established", zap.String("addr", opts.Addr))
	}
	return client, nil
}

func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func statisticsKey(mailboxID *int64, days int) string {
	scope := "all"
	if mailboxID != nil {
		scope = fmt.Sprintf("%d", *mailboxID)
	}
	return fmt.Sprintf("%sreport:statistics:%s:%d", keyPrefix, scope, days)
}

func summaryKey(mailboxID int64, days int) string {
	return fmt.Sprintf("%sreport:summary:%d:%d", keyPrefix, mailboxID, days)
}

func searchKey(filter models.MailboxFilter) string {
	return fmt.Sprintf("%ssearch:mailboxes:%t:%d:%d:%s", keyPrefix, filter.IncludeInactive, filter.Limit, filter.Offset, strings.ToLower(filter.Query))
}

// getJSON returns false on a cache miss.
func (r *redisCacheService) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) GetStatistics(ctx context.Context, mailboxID *int64, days int) (*models.PackageStatistics, error) {
	var stats models.PackageStatistics
	hit, err := r.getJSON(ctx, statisticsKey(mailboxID, days), &stats)
	if err != nil || !hit {
		return nil, err
	}
	return &stats, nil
}

func (r *redisCacheService) SetStatistics(ctx context.Context, stats *models.PackageStatistics, ttl time.Duration) error {
	return r.setJSON(ctx, statisticsKey(stats.MailboxID, stats.Days), stats, ttl)
}

func (r *redisCacheService) GetMailboxSummary(ctx context.Context, mailboxID int64, days int) (*models.MailboxSummary, error) {
	var summary models.MailboxSummary
	hit, err := r.getJSON(ctx, summaryKey(mailboxID, days), &summary)
	if err != nil || !hit {
		return nil, err
	}
	return &summary, nil
}

func (r *redisCacheService) SetMailboxSummary(ctx context.Context, summary *models.MailboxSummary, ttl time.Duration) error {
	return r.setJSON(ctx, summaryKey(summary.MailboxID, summary.Days), summary, ttl)
}

func (r *redisCacheService) GetMailboxSearch(ctx context.Context, filter models.MailboxFilter) ([]*models.Mailbox, error) {
	var mailboxes []*models.Mailbox
	hit, err := r.getJSON(ctx, searchKey(filter), &mailboxes)
	if err != nil || !hit {
		return nil, err
	}
	return mailboxes, nil
}

func (r *redisCacheService) SetMailboxSearch(ctx context.Context, filter models.MailboxFilter, mailboxes []*models.Mailbox, ttl time.Duration) error {
	return r.setJSON(ctx, searchKey(filter), mailboxes, ttl)
}

func (r *redisCacheService) InvalidateReports(ctx context.Context) error {
	return r.deletePattern(ctx, keyPrefix+"report:*")
}

func (r *redisCacheService) InvalidateMailboxSearch(ctx context.Context) error {
	return r.deletePattern(ctx, keyPrefix+"search:*")
}

func (r *redisCacheService) deletePattern(ctx context.Context, pattern string) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type nopCacheService struct{}

// NewNopCacheService is used when no Redis address is configured. Every read
// misses and every write is dropped.
func NewNopCacheService() CacheService {
	return nopCacheService{}
}

func (nopCacheService) GetStatistics(context.Context, *int64, int) (*models.PackageStatistics, error) {
	return nil, nil
}

func (nopCacheService) SetStatistics(context.Context, *models.PackageStatistics, time.Duration) error {
	return nil
}

func (nopCacheService) GetMailboxSummary(context.Context, int64, int) (*models.MailboxSummary, error) {
	return nil, nil
}

func (nopCacheService) SetMailboxSummary(context.Context, *models.MailboxSummary, time.Duration) error {
	return nil
}

func (nopCacheService) GetMailboxSearch(context.Context, models.MailboxFilter) ([]*models.Mailbox, error) {
	return nil, nil
}

func (nopCacheService) SetMailboxSearch(context.Context, models.MailboxFilter, []*models.Mailbox, time.Duration) error {
	return nil
}

func (nopCacheService) InvalidateReports(context.Context) error       { return nil }
func (nopCacheService) InvalidateMailboxSearch(context.Context) error { return nil }
func (nopCacheService) Ping(context.Context) error                    { return nil }
