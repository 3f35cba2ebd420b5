package main

import (
	"context"
	"testing"

	"github.com/bradselph/ThreadWarden/configuration"
	"github.com/bradselph/ThreadWarden/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLedgerWithoutDatabase(t *testing.T) {
	var cfg configuration.Config

	store := openLedger(context.Background(), &cfg)
	require.NotNil(t, store)
	assert.IsType(t, &services.MemoryLedger{}, store)
}

func TestOpenLedgerFallsBackOnPartialDatabaseConfig(t *testing.T) {
	var cfg configuration.Config
	cfg.Database.Host = "db.internal"
	require.True(t, cfg.DatabaseEnabled())

	store := openLedger(context.Background(), &cfg)
	require.NotNil(t, store)
	assert.IsType(t, &services.MemoryLedger{}, store)

	reported, err := store.HasReported(context.Background(), "200", "m2")
	require.NoError(t, err)
	assert.False(t, reported)
}
