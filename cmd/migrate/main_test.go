package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	version uint
	dirty   bool
	verErr  error
	forced  int
	calls   []string
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, f.dirty, f.verErr
}

func (f *fakeMigrator) Force(v int) error {
	f.forced = v
	return nil
}

func TestRun_DefaultsToUp(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	require.NoError(t, run(m, nil, &bytes.Buffer{}))
	assert.Equal(t, []string{"up"}, m.calls)
}

func TestRun_UpPropagatesFailure(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("syntax error")}
	assert.Error(t, run(m, []string{"up"}, &bytes.Buffer{}))
}

func TestRun_StepsUpAndDown(t *testing.T) {
	m := &fakeMigrator{}
	require.NoError(t, run(m, []string{"up", "2"}, &bytes.Buffer{}))
	require.NoError(t, run(m, []string{"down", "1"}, &bytes.Buffer{}))
	assert.Equal(t, []int{2, -1}, m.steps)

	assert.Error(t, run(m, []string{"down"}, &bytes.Buffer{}))
	assert.Error(t, run(m, []string{"down", "-3"}, &bytes.Buffer{}))
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&fakeMigrator{version: 3}, []string{"version"}, &out))
	assert.Equal(t, "version 3 (dirty=false)\n", out.String())

	out.Reset()
	require.NoError(t, run(&fakeMigrator{verErr: migrate.ErrNilVersion}, []string{"version"}, &out))
	assert.Contains(t, out.String(), "no migrations applied")
}

func TestRun_Force(t *testing.T) {
	m := &fakeMigrator{}
	var out bytes.Buffer
	require.NoError(t, run(m, []string{"force", "2"}, &out))
	assert.Equal(t, 2, m.forced)
	assert.Error(t, run(m, []string{"force", "x"}, &out))
	assert.Error(t, run(m, []string{"sideways"}, &out))
}
