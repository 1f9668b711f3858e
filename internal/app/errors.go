package app

import (
	"errors"

	"github.com/okian/fairplay/internal/adapters/repository"
)

// Sentinel errors returned by the engine.
var (
	ErrPlayerNotFound         = errors.New("player not found")
	ErrPlayerExists           = errors.New("player already exists")
	ErrDuplicateShot          = errors.New("duplicate shot")
	ErrManualOverrideDisabled = errors.New("manual override is disabled in settlement mode")
	ErrEngineClosed           = errors.New("engine closed")
)

func wrapStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, repository.ErrExists):
		return ErrPlayerExists
	}
	return err
}
