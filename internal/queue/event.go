// Package queue defines the crop stage events exchanged over RabbitMQ, the
// publisher used by the service layer and the background consumer that
// records them.
package queue

import "time"

// StageRecordedEvent is published after a farmer creates a crop or a
// distributor or retailer writes its group.  It carries enough for
// downstream consumers to log or notify without querying the database.
type StageRecordedEvent struct {
    CropID     string    `json:"crop_id"`
    Group      string    `json:"group"`       // farmer, distributor or retailer
    ActorID    string    `json:"actor_id"`
    ActorName  string    `json:"actor_name"`
    Price      float64   `json:"price"`
    Stage      string    `json:"stage"`       // lifecycle stage after the write
    RecordedAt time.Time `json:"recorded_at"`
}
