// Package events builds outbox envelopes inside a caller's transaction.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/repository"
	"github.com/renubu/renubu/internal/util"
)

// Record marshals an envelope of type typ and writes it to the outbox using tx.
func Record(ctx context.Context, tx *sqlx.Tx, outbox repository.OutboxRepository,
	aggregate, topic, typ, aggregateID string, at time.Time, data map[string]any,
) error {
	env := model.Envelope{
		ID:          util.NewULID(),
		Type:        typ,
		AggregateID: aggregateID,
		OccurredAt:  model.Timestamp(at),
		Data:        data,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err := outbox.Insert(ctx, tx, aggregate, aggregateID, topic, payload); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}

// Decode parses a published envelope.
func Decode(b []byte) (model.Envelope, error) {
	var env model.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return model.Envelope{}, err
	}
	if env.AggregateID == "" {
		return model.Envelope{}, fmt.Errorf("envelope %q has no aggregate id", env.ID)
	}
	return env, nil
}
