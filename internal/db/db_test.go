package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSSLDisabled(t *testing.T) {
	assert.Equal(t, "postgres://u@h/db?sslmode=disable", WithSSLDisabled("postgres://u@h/db"))
	assert.Equal(t, "postgres://u@h/db?x=1&sslmode=disable", WithSSLDisabled("postgres://u@h/db?x=1"))
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)
}

func TestPinsSSLMode(t *testing.T) {
	assert.True(t, pinsSSLMode("postgres://h/db?SSLMode=require"))
	assert.False(t, pinsSSLMode("postgres://h/db"))
}
