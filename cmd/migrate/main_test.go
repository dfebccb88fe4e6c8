package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	up, down int
	applied  int
	upErr    error
	closed   bool
}

func (f *fakeMigrator) MigrateUp(_ context.Context, steps int) error {
	if f.upErr != nil {
		return f.upErr
	}
	f.up = steps
	f.applied++
	return nil
}

func (f *fakeMigrator) MigrateDown(_ context.Context, steps int) error {
	f.down = steps
	f.applied -= steps
	return nil
}

func (f *fakeMigrator) MigrationStatus(context.Context) (int64, int, error) {
	return int64(f.applied), f.applied, nil
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

func lookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-direction=DOWN", "-dsn= postgres://x "}, lookup(nil))
	require.NoError(t, err)
	assert.Equal(t, options{direction: "down", steps: 1, dsn: "postgres://x"}, opts)

	opts, err = parseOptions(nil, lookup(map[string]string{envPostgresDSN: "postgres://env"}))
	require.NoError(t, err)
	assert.Equal(t, "up", opts.direction)
	assert.Equal(t, "postgres://env", opts.dsn)
}

func TestParseOptionsErrors(t *testing.T) {
	_, err := parseOptions([]string{"-direction=status"}, lookup(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), envPostgresDSN)

	_, err = parseOptions([]string{"-direction=sideways", "-dsn=x"}, lookup(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported direction")

	_, err = parseOptions([]string{"-steps=abc"}, lookup(nil))
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	m := &fakeMigrator{}

	version, count, err := run(ctx, m, options{direction: "up"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, 1, count)

	_, count, err = run(ctx, m, options{direction: "down", steps: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 1, m.down)

	_, count, err = run(ctx, m, options{direction: "status"})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	m.upErr = errors.New("boom")
	_, _, err = run(ctx, m, options{direction: "up"})
	require.ErrorIs(t, err, m.upErr)
}
