package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticTokenGenerator_ReturnsSameToken(t *testing.T) {
	gen := NewStaticTokenGenerator("run-fixed-123")

	assert.Equal(t, "run-fixed-123", gen.Generate())
	assert.Equal(t, "run-fixed-123", gen.Generate())
	assert.Equal(t, "run-fixed-123", gen.Generate())
}

func TestStaticTokenGenerator_EmptyTokenDefault(t *testing.T) {
	gen := NewStaticTokenGenerator("")

	assert.Equal(t, "test-run-default", gen.Generate())
}

func TestStaticTokenGenerator_Concurrent(t *testing.T) {
	gen := NewStaticTokenGenerator("shared")

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", gen.Generate())
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
