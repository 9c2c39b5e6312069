package store

import (
	"context"
	"encoding/json/v2"

	"github.com/dgraph-io/badger/v4"

	"github.com/readalong/readalong-server/internal/content"
	"github.com/readalong/readalong-server/internal/errors"
	"github.com/readalong/readalong-server/internal/timing"
)

const (
	timingPrefix  = "timing:"
	contentPrefix = "content:"
)

// Sentinel errors for artifact operations.
var (
	ErrTimingNotFound  = errors.ErrNotFound.WithMessage("timing collection not found")
	ErrContentNotFound = errors.ErrNotFound.WithMessage("content artifact not found")
)

// SaveTiming stores a timing collection for a content ID.
func (s *Store) SaveTiming(ctx context.Context, contentID string, c *timing.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.set([]byte(timingPrefix+contentID), c); err != nil {
		return errors.Wrapf(err, errors.CodePersistence, "save timing for %s", contentID)
	}
	return nil
}

// GetTiming retrieves a timing collection by content ID.
func (s *Store) GetTiming(ctx context.Context, contentID string) (*timing.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c timing.Collection
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(timingPrefix + contentID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTimingNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if err != nil {
		return nil, err
	}

	c.Normalize()
	return &c, nil
}

// SaveContent stores a content artifact for a content ID.
func (s *Store) SaveContent(ctx context.Context, contentID string, a *content.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.set([]byte(contentPrefix+contentID), a); err != nil {
		return errors.Wrapf(err, errors.CodePersistence, "save content for %s", contentID)
	}
	return nil
}

// GetContent retrieves a content artifact by content ID.
func (s *Store) GetContent(ctx context.Context, contentID string) (*content.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var a content.Artifact
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(contentPrefix + contentID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrContentNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		})
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteContent removes the timing collection and content artifact for a
// content ID. Deleting an unknown ID is not an error.
func (s *Store) DeleteContent(ctx context.Context, contentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.delete([]byte(timingPrefix + contentID)); err != nil {
		return errors.Wrapf(err, errors.CodePersistence, "delete timing for %s", contentID)
	}
	if err := s.delete([]byte(contentPrefix + contentID)); err != nil {
		return errors.Wrapf(err, errors.CodePersistence, "delete content for %s", contentID)
	}
	return nil
}

// ListContentIDs returns the IDs of all stored timing collections.
func (s *Store) ListContentIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.listKeySuffixes(timingPrefix)
}
