package persistence

import "binance-signal-bot-go/internal/models"

// StateRepository abstracts the durable store for the bot's state so the
// engine and the entrypoint never see the underlying database.
type StateRepository interface {
	// SaveState atomically replaces the persisted bot state.
	SaveState(state *models.BotState) error

	// LoadState returns the persisted state, or (nil, nil) when none was
	// ever saved.
	LoadState() (*models.BotState, error)

	// Close releases the underlying store.
	Close() error
}
