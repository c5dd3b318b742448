package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"partsync/internal/model"
	"partsync/internal/store"
)

// ErrPersistence marks a failed read or write against the backing store.
var ErrPersistence = errors.New("persistence failure")

// timestampLayout matches JavaScript's Date.toISOString output.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// CatalogRepository persists the parts catalog, the last sync time and the
// notification list under namespaced keys.
type CatalogRepository struct {
	store     store.Store
	namespace string
	logger    *slog.Logger
}

// NewCatalogRepository wires a store under the given key namespace.
func NewCatalogRepository(s store.Store, namespace string, logger *slog.Logger) *CatalogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogRepository{store: s, namespace: namespace, logger: logger}
}

func (r *CatalogRepository) catalogKey() string       { return r.namespace + ":parts" }
func (r *CatalogRepository) lastUpdateKey() string    { return r.namespace + ":last_update" }
func (r *CatalogRepository) notificationsKey() string { return r.namespace + ":notifications" }

// LoadCatalog returns the stored catalog. Missing or unparsable content yields an empty
// catalog; only a store failure is returned as an error.
func (r *CatalogRepository) LoadCatalog(ctx context.Context) ([]model.Part, error) {
	raw, err := r.get(ctx, r.catalogKey())
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return []model.Part{}, nil
	}

	var parts []model.Part
	if err := json.Unmarshal([]byte(raw), &parts); err != nil {
		r.logger.Warn("stored catalog is unreadable, starting from empty", "key", r.catalogKey(), "error", err)
		return []model.Part{}, nil
	}
	if parts == nil {
		parts = []model.Part{}
	}
	return parts, nil
}

// SaveCatalog overwrites the stored catalog.
func (r *CatalogRepository) SaveCatalog(ctx context.Context, parts []model.Part) error {
	if parts == nil {
		parts = []model.Part{}
	}
	return r.setJSON(ctx, r.catalogKey(), parts)
}

// LoadLastUpdate returns the last sync time; ok is false when none is stored or it cannot be parsed.
func (r *CatalogRepository) LoadLastUpdate(ctx context.Context) (t time.Time, ok bool, err error) {
	raw, err := r.get(ctx, r.lastUpdateKey())
	if err != nil || raw == "" {
		return time.Time{}, false, err
	}

	t, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		r.logger.Warn("stored last update is unreadable", "value", raw, "error", err)
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// SaveLastUpdate stores t as an ISO-8601 UTC timestamp.
func (r *CatalogRepository) SaveLastUpdate(ctx context.Context, t time.Time) error {
	if err := r.store.Set(ctx, r.lastUpdateKey(), t.UTC().Format(timestampLayout)); err != nil {
		return fmt.Errorf("%w: save last update: %w", ErrPersistence, err)
	}
	return nil
}

// LoadNotifications returns the stored notifications, most recent first.
func (r *CatalogRepository) LoadNotifications(ctx context.Context) ([]model.Notification, error) {
	raw, err := r.get(ctx, r.notificationsKey())
	if err != nil {
		return nil, err
	}

	notifications := []model.Notification{}
	if raw == "" {
		return notifications, nil
	}
	if err := json.Unmarshal([]byte(raw), &notifications); err != nil {
		r.logger.Warn("stored notifications are unreadable", "error", err)
		return []model.Notification{}, nil
	}
	return notifications, nil
}

// PrependNotification puts n in front of the list and drops entries beyond limit.
func (r *CatalogRepository) PrependNotification(ctx context.Context, n model.Notification, limit int) error {
	current, err := r.LoadNotifications(ctx)
	if err != nil {
		return err
	}

	list := append([]model.Notification{n}, current...)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return r.setJSON(ctx, r.notificationsKey(), list)
}

// ClearNotifications removes every stored notification.
func (r *CatalogRepository) ClearNotifications(ctx context.Context) error {
	if err := r.store.Remove(ctx, r.notificationsKey()); err != nil {
		return fmt.Errorf("%w: clear notifications: %w", ErrPersistence, err)
	}
	return nil
}

func (r *CatalogRepository) get(ctx context.Context, key string) (string, error) {
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrPersistence, key, err)
	}
	return raw, nil
}

func (r *CatalogRepository) setJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, key, err)
	}
	return nil
}
