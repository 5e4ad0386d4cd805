package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventboard/internal/client"
	"github.com/alfredjeanlab/eventboard/internal/events"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream notifications as they are published",
	GroupID: "streams",
	Long: `Stream notifications from the server's SSE endpoint (or gRPC Watch with
--transport grpc). With --nats or --redis the CLI reads the broker the
server bridges to instead, and never contacts the server.

Topics accept wildcards, e.g. --topics 'event-*,toast'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topicsFlag, _ := cmd.Flags().GetString("topics")
		snapshot, _ := cmd.Flags().GetBool("snapshot")
		natsURL, _ := cmd.Flags().GetString("nats")
		redisURL, _ := cmd.Flags().GetString("redis")
		prefix, _ := cmd.Flags().GetString("prefix")
		if useBridge, _ := cmd.Flags().GetBool("bridge"); useBridge {
			r := activeRemote()
			if r.NATSURL == "" && r.RedisURL == "" {
				return fmt.Errorf("--bridge: the active remote has no NATS or Redis URL")
			}
			natsURL, redisURL = r.NATSURL, r.RedisURL
		}
		topics := events.ParseTopics(topicsFlag)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		switch {
		case natsURL != "" && redisURL != "":
			return fmt.Errorf("--nats and --redis are mutually exclusive")
		case natsURL != "":
			sub, err := events.NewNATSSubscriber(natsURL,
				nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
					slog.Warn("nats disconnected", "err", err)
				}),
				nats.ReconnectHandler(func(_ *nats.Conn) {
					slog.Info("nats reconnected")
				}),
			)
			if err != nil {
				return fmt.Errorf("connecting to NATS: %w", err)
			}
			defer sub.Close()
			return watchBridge(ctx, out, sub, bridgeSubjects(prefix, ".", topics))
		case redisURL != "":
			sub, err := events.NewRedisSubscriber(ctx, redisURL)
			if err != nil {
				return fmt.Errorf("connecting to Redis: %w", err)
			}
			defer sub.Close()
			return watchBridge(ctx, out, sub, bridgeSubjects(prefix, ":", topics))
		}

		stream, err := eventsClient.Watch(ctx, client.WatchOptions{Topics: topics, Snapshot: snapshot})
		if err != nil {
			return fmt.Errorf("opening stream: %w", err)
		}
		defer stream.Close()
		return watchStream(ctx, out, stream)
	},
}

// watchStream prints messages until the stream ends or ctx is cancelled.
func watchStream(ctx context.Context, w io.Writer, stream client.Stream) error {
	for {
		m, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiving: %w", err)
		}
		if err := printMessage(w, m); err != nil {
			return err
		}
	}
}

// bridgeSubjects maps topic filters to the broker subjects a bridge
// publishes on. Every known topic matching a filter gets its own subject so
// the topic survives the trip.
func bridgeSubjects(prefix, sep string, filters []string) map[string]string {
	if prefix == "" {
		prefix = events.DefaultPrefix
	}
	probe := &events.Subscription{Topics: filters}
	subjects := make(map[string]string)
	for _, t := range events.AllTopics {
		if probe.Matches(t) {
			subjects[prefix+sep+t] = t
		}
	}
	return subjects
}

// watchBridge subscribes to each subject and prints what arrives, tagged
// with its topic. Bridged messages carry no sequence number.
func watchBridge(ctx context.Context, w io.Writer, sub events.Subscriber, subjects map[string]string) error {
	if len(subjects) == 0 {
		return fmt.Errorf("no known topic matches the filter")
	}

	msgs := make(chan *events.Message)
	var wg sync.WaitGroup
	for subject, topic := range subjects {
		ch, cancel, err := sub.Subscribe(subject)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		defer cancel()

		wg.Add(1)
		go func() {
			defer wg.Done()
			for data := range ch {
				select {
				case msgs <- &events.Message{Topic: topic, Data: data}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case m := <-msgs:
			if err := printMessage(w, m); err != nil {
				return err
			}
		}
	}
}

func init() {
	watchCmd.Flags().String("topics", "", "comma-separated topic filters (default all)")
	watchCmd.Flags().Bool("snapshot", false, "start with the current event list")
	watchCmd.Flags().String("nats", "", "read the NATS bridge at this URL")
	watchCmd.Flags().String("redis", "", "read the Redis bridge at this URL")
	watchCmd.Flags().Bool("bridge", false, "read the broker configured on the active remote")
	watchCmd.Flags().String("prefix", events.DefaultPrefix, "bridge subject prefix")
}
