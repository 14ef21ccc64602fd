package main

import (
	"testing"

	"github.com/nvr-ai/go-classify/config"
	"github.com/stretchr/testify/assert"
)

// TestDefaultThreshold validates that the flag default matches the configuration default.
func TestDefaultThreshold(t *testing.T) {
	assert.Equal(t, float32(defaultThreshold), config.Default().Threshold)
}
