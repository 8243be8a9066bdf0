package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/raclient/internal/protocol"
	"github.com/wolfeidau/raclient/internal/transport"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

var _ transport.Channel = (*ChannelCalls)(nil)

// ChannelCalls logs every exchange on the wrapped channel with its action
// and duration. Message bodies are never logged since they carry tokens.
type ChannelCalls struct {
	logger zerolog.Logger
	next   transport.Channel
}

func NewChannelCalls(logger zerolog.Logger, next transport.Channel) *ChannelCalls {
	return &ChannelCalls{logger: logger, next: next}
}

func (c *ChannelCalls) Send(ctx context.Context, msg []byte) ([]byte, error) {
	started := time.Now()

	ctx = c.logger.With().
		Str("action", protocol.ActionOf(msg).String()).
		Logger().WithContext(ctx)

	resp, err := c.next.Send(ctx, msg)
	if err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("channel call")

		return resp, err
	}

	zerolog.Ctx(ctx).Debug().
		Dur("duration", time.Since(started)).
		Int("response_bytes", len(resp)).
		Msg("channel call")

	return resp, nil
}
