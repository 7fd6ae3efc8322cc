package main

import (
	"path/filepath"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/internal/cli"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/session"
)

// newManager builds a session manager over the configured store. Recordings
// go next to the store, one file per session.
func newManager(hooks domain.LifecycleHooks) (*session.Manager, *cli.Store, error) {
	store, err := cli.OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	defaults, err := cfg.EngineOptions()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	defaults = append(defaults, ttystep.WithLifecycleHooks(hooks))

	opts := []session.Option{
		session.WithLogger(sessionLogger()),
		session.WithRecordingDir(filepath.Join(filepath.Dir(cfg.StoreDir), "recordings")),
		session.WithDefaults(defaults...),
	}
	if store.Locker != nil {
		opts = append(opts, session.WithLocker(store.Locker))
	}
	return session.NewManager(store, opts...), store, nil
}
