package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lovoo/goka"
	"github.com/niksmo/farm-bridge/config"
	"github.com/niksmo/farm-bridge/pkg/sigctx"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	partitions        = 3
	replicationFactor = 3
	minInsyncReplicas = "2"
	cleanupDelete     = "delete"
	cleanupCompact    = "compact"
)

// A topicSet groups topics sharing one cleanup policy.
type topicSet struct {
	cleanupPolicy string
	topics        []string
}

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()

	cl, err := kadm.NewOptClient(kgo.SeedBrokers(cfg.Broker.SeedBrokers...))
	if err != nil {
		printFail(err)
		os.Exit(2)
	}
	defer cl.Close()

	sets := topicSets(cfg)
	printStart(sets)
	start := time.Now()

	for _, set := range sets {
		if err := makeTopics(sigCtx, cl, set); err != nil {
			printFail(err)
			os.Exit(1)
		}
	}

	fmt.Printf("\ncomplete in %s\n", time.Since(start))
}

// topicSets lists the event streams and the goka group table
// holding moderation rules.
func topicSets(cfg config.Config) []topicSet {
	topics := cfg.Broker.Topics
	return []topicSet{
		{
			cleanupPolicy: cleanupDelete,
			topics: []string{
				topics.ProductsFromAdmin,
				topics.FilterProductStream,
				topics.ProductsToStorage,
			},
		},
		{
			cleanupPolicy: cleanupCompact,
			topics:        []string{toGroupTable(topics.FilterProductTable)},
		},
	}
}

func makeTopics(ctx context.Context, cl *kadm.Client, set topicSet) error {
	cleanupPolicy := set.cleanupPolicy
	minISR := minInsyncReplicas
	topicConfig := map[string]*string{
		"cleanup.policy":      &cleanupPolicy,
		"min.insync.replicas": &minISR,
	}

	responses, err := cl.CreateTopics(
		ctx, partitions, replicationFactor, topicConfig, set.topics...,
	)
	if err != nil {
		return err
	}

	var errs []error
	for _, res := range responses.Sorted() {
		switch {
		case res.Err == nil:
			fmt.Printf("topic: %q successfully created\n", res.Topic)
		case errors.Is(res.Err, kerr.TopicAlreadyExists):
			fmt.Printf("topic: %q already exists\n", res.Topic)
		default:
			errs = append(errs, fmt.Errorf("topic %q: %w", res.Topic, res.Err))
		}
	}
	return errors.Join(errs...)
}

func printStart(sets []topicSet) {
	var b strings.Builder
	b.WriteString("initializing topics...\n")
	for _, set := range sets {
		for _, topic := range set.topics {
			fmt.Fprintf(&b, "\t- %q (%s)\n", topic, set.cleanupPolicy)
		}
	}
	fmt.Println(b.String())
}

func printFail(err error) {
	fmt.Printf("failed to create topics: \n%s\n", err)
}

func toGroupTable(group string) string {
	return string(goka.GroupTable(goka.Group(group)))
}
