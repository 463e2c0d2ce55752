package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/neumerance/kerberos-swarm/internal/dockerd"
	"github.com/stretchr/testify/assert"
)

type fakeEngine struct {
	pingErr     error
	versionErr  error
	versionHits int
}

func (f *fakeEngine) Ping(ctx context.Context) (string, error) {
	if f.pingErr != nil {
		return "", f.pingErr
	}
	return "1.47", nil
}

func (f *fakeEngine) ServerVersion(ctx context.Context) (*dockerd.EngineInfo, error) {
	f.versionHits++
	if f.versionErr != nil {
		return nil, f.versionErr
	}
	return &dockerd.EngineInfo{Version: "28.5.2", APIVersion: "1.47"}, nil
}

func TestEngineCheck(t *testing.T) {
	engine := &fakeEngine{}

	check := engineCheck(context.Background(), engine)
	assert.True(t, check.OK)
	assert.Equal(t, "28.5.2 (API 1.47)", check.Detail)
	assert.Equal(t, 1, engine.versionHits)
}

func TestEngineCheck_PingFails(t *testing.T) {
	engine := &fakeEngine{pingErr: fmt.Errorf("%w: dial unix", dockerd.ErrEngineUnavailable)}

	check := engineCheck(context.Background(), engine)
	assert.False(t, check.OK)
	assert.Contains(t, check.Detail, "dial unix")
	assert.Zero(t, engine.versionHits)
}

func TestEngineCheck_VersionFails(t *testing.T) {
	engine := &fakeEngine{versionErr: errors.New("bad gateway")}

	check := engineCheck(context.Background(), engine)
	assert.False(t, check.OK)
	assert.Equal(t, "bad gateway", check.Detail)
}
