// Package settings resolves integer tunables from the CMS key/value settings store.
package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Source resolves integer settings, falling back to a default when the key is absent or unusable.
type Source interface {
	GetIntSetting(ctx context.Context, key string, fallback int) int
}

// Store looks up the raw value of a setting. found is false when the store has no value for key.
type Store interface {
	Lookup(ctx context.Context, key string) (value string, found bool, err error)
}

// Settings consults its stores in order; the first one holding a parsable value wins.
type Settings struct {
	stores []Store
	log    *logrus.Entry
}

// New constructs Settings over the supplied stores.
func New(log *logrus.Entry, stores ...Store) *Settings {
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "settings")
	}
	return &Settings{stores: stores, log: log}
}

// GetIntSetting implements Source.
func (s *Settings) GetIntSetting(ctx context.Context, key string, fallback int) int {
	for _, store := range s.stores {
		raw, found, err := store.Lookup(ctx, key)
		if err != nil {
			s.log.WithError(err).WithField("key", key).Warn("settings lookup failed")
			continue
		}
		if !found {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			s.log.WithError(err).WithField("key", key).Warn("setting is not an integer")
			continue
		}
		return parsed
	}
	return fallback
}
