package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aretw0/ttystep/internal/config"
	"github.com/aretw0/ttystep/pkg/adapters/file"
	"github.com/aretw0/ttystep/pkg/adapters/redis"
	"github.com/aretw0/ttystep/pkg/ports"
)

// Store is a session store that may hold a connection.
type Store struct {
	ports.SessionStore
	// Locker is set when the store can serialize drivers across replicas.
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the store's connection, if any.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore selects Redis when a URL is configured and JSON files otherwise.
func OpenStore(cfg *config.Config) (*Store, error) {
	if cfg.RedisURL != "" {
		rs, err := redis.New(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return &Store{
			SessionStore: rs,
			Locker:       redis.NewLocker(rs.Client(), rs.Prefix()),
			close:        rs.Close,
		}, nil
	}
	return &Store{SessionStore: file.New(cfg.StoreDir)}, nil
}

// ListSessions prints every stored session as a table.
func ListSessions(ctx context.Context, w io.Writer, store ports.SessionStore) error {
	ids, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No sessions.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROGRAM\tSTRATEGY\tSTEPS\tRESETS\tSTATE\tUPDATED")
	for _, id := range ids {
		info, err := store.Load(ctx, id)
		if err != nil {
			continue
		}
		state := "live"
		switch {
		case info.LastError != "":
			state = "failed"
		case info.Ended:
			state = "ended"
		case info.Done:
			state = "done"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			info.ID, info.Program, info.Strategy, info.Steps, info.Resets, state,
			info.UpdatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

// InspectSession prints one stored session.
func InspectSession(ctx context.Context, w io.Writer, store ports.SessionStore, id string) error {
	info, err := store.Load(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "ID:         %s\n", info.ID)
	fmt.Fprintf(w, "Program:    %s (%s)\n", info.Program, info.Strategy)
	fmt.Fprintf(w, "Recording:  %s\n", info.Recording)
	fmt.Fprintf(w, "Steps:      %d\n", info.Steps)
	fmt.Fprintf(w, "Resets:     %d\n", info.Resets)
	fmt.Fprintf(w, "Done:       %t\n", info.Done)
	fmt.Fprintf(w, "Ended:      %t\n", info.Ended)
	fmt.Fprintf(w, "Started:    %s\n", info.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Updated:    %s\n", info.UpdatedAt.Format(time.RFC3339))
	if info.LastError != "" {
		fmt.Fprintf(w, "Last error: %s\n", info.LastError)
	}
	return nil
}

// RemoveSession deletes a stored session.
func RemoveSession(ctx context.Context, store ports.SessionStore, id string) error {
	if _, err := store.Load(ctx, id); err != nil {
		return err
	}
	return store.Delete(ctx, id)
}
