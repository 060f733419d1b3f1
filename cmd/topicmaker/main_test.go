package main

import (
	"testing"

	"github.com/niksmo/farm-bridge/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicSets(t *testing.T) {
	var cfg config.Config
	cfg.Broker.Topics.ProductsFromAdmin = "products-from-admin"
	cfg.Broker.Topics.FilterProductStream = "filter-product-stream"
	cfg.Broker.Topics.ProductsToStorage = "products-to-storage"
	cfg.Broker.Topics.FilterProductTable = "filter-product"

	sets := topicSets(cfg)
	require.Len(t, sets, 2)

	assert.Equal(t, cleanupDelete, sets[0].cleanupPolicy)
	assert.Equal(t, []string{
		"products-from-admin",
		"filter-product-stream",
		"products-to-storage",
	}, sets[0].topics)

	assert.Equal(t, cleanupCompact, sets[1].cleanupPolicy)
	assert.Equal(t, []string{"filter-product-table"}, sets[1].topics)
}
