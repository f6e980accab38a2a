package media

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/campfolio/service/internal/settings"
	"github.com/campfolio/service/internal/storage"
)

// cleanupConcurrency bounds parallel file deletes per collection.
const cleanupConcurrency = 4

// BatchResult reports a batch collection delete.
type BatchResult struct {
	Deleted []string          `json:"deleted"`
	Blocked []string          `json:"blocked"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// DeleteCollection removes a collection together with its featured markers
// and asset rows. Once the rows are gone file removal runs in the
// background and never fails the call; Wait blocks until it is done. Files
// are left untouched when any row delete fails.
func (s *Service) DeleteCollection(ctx context.Context, caller Caller, snap settings.Snapshot, id string) error {
	col, err := s.editable(ctx, caller, id)
	if err != nil {
		return err
	}
	assets, err := s.store.ListAssets(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteFeatured(ctx, id); err != nil {
		return fmt.Errorf("delete featured markers: %w", err)
	}
	if err := s.store.DeleteAssetsByCollection(ctx, id); err != nil {
		return fmt.Errorf("delete assets: %w", err)
	}
	if err := s.store.DeleteCollection(ctx, id); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	s.removeFiles(ctx, snap, col, assets)
	s.invalidate(ctx)
	s.log.Info("collection deleted", "collection", id, "assets", len(assets))
	return nil
}

// DeleteCollections deletes each id independently. Ids linked from an active
// carousel entry are refused and reported as blocked.
func (s *Service) DeleteCollections(ctx context.Context, caller Caller, snap settings.Snapshot, ids []string) (BatchResult, error) {
	ids = uniqueNonEmpty(ids)
	if len(ids) == 0 {
		return BatchResult{}, &ValidationError{Field: "ids", Message: "at least one id is required"}
	}
	linked, err := s.store.CarouselLinked(ctx, ids)
	if err != nil {
		return BatchResult{}, err
	}
	blocked := make(map[string]struct{}, len(linked))
	for _, id := range linked {
		blocked[id] = struct{}{}
	}

	res := BatchResult{Deleted: []string{}, Blocked: []string{}}
	for _, id := range ids {
		if _, ok := blocked[id]; ok {
			res.Blocked = append(res.Blocked, id)
			continue
		}
		if err := s.DeleteCollection(ctx, caller, snap, id); err != nil {
			if res.Failed == nil {
				res.Failed = make(map[string]string)
			}
			res.Failed[id] = err.Error()
			continue
		}
		res.Deleted = append(res.Deleted, id)
	}
	return res, nil
}

// Wait blocks until background file cleanup has finished.
func (s *Service) Wait() {
	s.cleanup.Wait()
}

// removeFiles starts deleting every asset file of col. An independently set
// cover is deleted too; its failure is not reported.
func (s *Service) removeFiles(ctx context.Context, snap settings.Snapshot, col *Collection, assets []Asset) {
	owned := make(map[string]struct{})
	var urls []string
	for _, a := range assets {
		for _, u := range a.URLs() {
			if _, dup := owned[u]; dup {
				continue
			}
			owned[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	cover := ""
	if _, ok := owned[col.Cover]; !ok {
		cover = col.Cover
	}

	bg := context.WithoutCancel(ctx)
	s.cleanup.Add(1)
	go func() {
		defer s.cleanup.Done()
		res := s.deleteFiles(bg, snap, urls)
		if !res.OK() {
			s.log.Warn("collection files left behind", "collection", col.ID, "result", res.String())
		}
		if cover != "" {
			if cr := s.files.DeleteAll(bg, snap, []string{cover}); !cr.OK() {
				s.log.Debug("independent cover not removed", "collection", col.ID, "cover", cover)
			}
		}
		s.log.Debug("collection files removed", "collection", col.ID, "deleted", len(res.Succeeded))
	}()
}

func (s *Service) deleteFiles(ctx context.Context, snap settings.Snapshot, urls []string) storage.DeleteResult {
	var (
		mu  sync.Mutex
		res storage.DeleteResult
		g   errgroup.Group
	)
	g.SetLimit(cleanupConcurrency)
	for _, u := range urls {
		g.Go(func() error {
			r := s.files.DeleteAll(ctx, snap, []string{u})
			mu.Lock()
			res.Merge(r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
