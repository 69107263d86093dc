package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/bryanwahyu/research-camera/internal/application"
	"github.com/bryanwahyu/research-camera/internal/domain/analysis"
	domain "github.com/bryanwahyu/research-camera/internal/domain/history"
	"github.com/bryanwahyu/research-camera/internal/domain/kv"
	"github.com/bryanwahyu/research-camera/internal/logger"
)

// ErrNotFound is returned by Delete for an id the user does not own.
var ErrNotFound = errors.New("history item not found")

// Service keeps every user's items in one collection under kv.KeyHistory.
type Service struct {
	Store       kv.Store
	Thumbnailer domain.Thumbnailer
	Clock       application.Clock
	Log         *logger.Logger
}

func NewService(store kv.Store, thumbs domain.Thumbnailer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{Store: store, Thumbnailer: thumbs, Clock: application.SystemClock{}, Log: log}
}

// List returns the user's items, newest first. Unreadable data reads as empty.
func (s *Service) List(ctx context.Context, userID string) []domain.Item {
	all := s.load(ctx)
	out := make([]domain.Item, 0, domain.MaxItemsPerUser)
	for _, it := range all {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// Get finds one item of the user.
func (s *Service) Get(ctx context.Context, userID string, id domain.ItemID) (domain.Item, error) {
	for _, it := range s.List(ctx, userID) {
		if it.ID == id {
			return it, nil
		}
	}
	return domain.Item{}, ErrNotFound
}

// Save records a finished analysis. The thumbnail comes from the first image
// only. The user's list is capped at MaxItemsPerUser, earliest saved evicted.
// Failures are logged and reported as false, never returned.
func (s *Service) Save(ctx context.Context, userID string, res analysis.Result, mode analysis.Mode, audience analysis.Audience, images []analysis.Image) (domain.Item, bool) {
	item := domain.Item{
		ID:         domain.ItemID(uuid.NewString()),
		UserID:     userID,
		Timestamp:  s.Clock.Now().UnixMilli(),
		Mode:       mode,
		Audience:   audience,
		Result:     res,
		ImageCount: len(images),
	}

	if len(images) > 0 && s.Thumbnailer != nil {
		thumb, err := s.Thumbnailer.Thumbnail(ctx, images[0].Data)
		if err != nil {
			// item tetap disimpan tanpa thumbnail
			s.Log.Warn().Err(err).Str("image", images[0].Name).Msg("thumbnail failed")
		}
		item.ThumbnailURL = thumb
	}

	all := append([]domain.Item{item}, s.load(ctx)...)
	if err := s.write(ctx, capPerUser(all, userID)); err != nil {
		s.Log.Error().Err(err).Str("user_id", userID).Msg("failed to save history")
		return domain.Item{}, false
	}
	return item, true
}

// Delete removes one item of the user.
func (s *Service) Delete(ctx context.Context, userID string, id domain.ItemID) error {
	all := s.load(ctx)
	kept := all[:0]
	found := false
	for _, it := range all {
		if it.UserID == userID && it.ID == id {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return ErrNotFound
	}
	return s.write(ctx, kept)
}

// Clear removes every item of the user and returns how many were removed.
func (s *Service) Clear(ctx context.Context, userID string) (int, error) {
	all := s.load(ctx)
	kept := all[:0]
	for _, it := range all {
		if it.UserID != userID {
			kept = append(kept, it)
		}
	}
	removed := len(all) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.write(ctx, kept)
}

// capPerUser keeps the first MaxItemsPerUser items of userID in collection
// order and leaves other users' items untouched. Save prepends, so the item
// just written always survives, whatever its timestamp.
func capPerUser(all []domain.Item, userID string) []domain.Item {
	out := make([]domain.Item, 0, len(all))
	mine := 0
	for _, it := range all {
		if it.UserID == userID {
			if mine == domain.MaxItemsPerUser {
				continue
			}
			mine++
		}
		out = append(out, it)
	}
	return out
}

func (s *Service) load(ctx context.Context) []domain.Item {
	raw, err := s.Store.Get(ctx, kv.KeyHistory)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.Log.Warn().Err(err).Msg("read history")
		}
		return nil
	}
	var items []domain.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		s.Log.Warn().Err(err).Msg("history data malformed, treating as empty")
		return nil
	}
	return items
}

func (s *Service) write(ctx context.Context, items []domain.Item) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := s.Store.Set(ctx, kv.KeyHistory, raw); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
