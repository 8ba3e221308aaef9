package bridge

import "time"

// SyncMarker records when a kind was last synced successfully in a direction
type SyncMarker struct {
	Kind      string
	Direction string
	SyncedAt  time.Time
}
