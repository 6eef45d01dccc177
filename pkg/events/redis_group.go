package events

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EnsureGroupAtTail creates the consumer group for stream starting at "$", so a
// fresh subscriber only sees events published after it joined. An existing
// group is left untouched.
func EnsureGroupAtTail(ctx context.Context, client redis.UniversalClient, stream, group string) error {
	if client == nil {
		return errors.New("ensure group: nil client")
	}
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return errors.Wrapf(err, "create group %s on %s", group, stream)
	}
	log.Debug().Str("stream", stream).Str("group", group).Msg("created redis consumer group at tail")
	return nil
}

// InstanceGroup names the consumer group owned by one consumer. Redis hands
// each entry of a group to a single consumer, so every process reading the
// notification topics needs a group of its own.
func InstanceGroup(base, consumer string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return consumer
	}
	return base + "-" + consumer
}

// DestroyGroup removes a per-process group once its consumer is gone.
func DestroyGroup(ctx context.Context, client redis.UniversalClient, stream, group string) error {
	if client == nil {
		return errors.New("destroy group: nil client")
	}
	if err := client.XGroupDestroy(ctx, stream, group).Err(); err != nil {
		return errors.Wrapf(err, "destroy group %s on %s", group, stream)
	}
	return nil
}
