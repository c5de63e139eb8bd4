package postgres

import "context"

// StateCheckpoint exposes a named scan_state row as a scan checkpoint.
type StateCheckpoint struct {
	store *Store
	name  string
}

// Checkpoint returns a checkpoint backed by the scan_state row called name.
func (s *Store) Checkpoint(name string) *StateCheckpoint {
	return &StateCheckpoint{store: s, name: name}
}

func (c *StateCheckpoint) Load(ctx context.Context) (uint64, bool, error) {
	return c.store.LoadState(ctx, c.name)
}

func (c *StateCheckpoint) Save(ctx context.Context, lastProcessed uint64) error {
	return c.store.SaveState(ctx, c.name, lastProcessed)
}
