package main

import (
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

func TestRetryCount(t *testing.T) {
	assert.Equal(t, int32(0), retryCount(nil), "fresh batch has no header")
	assert.Equal(t, int32(0), retryCount(amqp.Table{}))
	assert.Equal(t, int32(2), retryCount(amqp.Table{"x-retry-count": int32(2)}))

	// a header of the wrong type is treated as a fresh batch, not a crash
	assert.Equal(t, int32(0), retryCount(amqp.Table{"x-retry-count": "2"}))
}
