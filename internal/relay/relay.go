package relay

import (
	"context"
	"strings"
	"time"

	"housing-predictor/internal/features"
	"housing-predictor/internal/pipeline"

	"github.com/rs/zerolog/log"
)

// Predictor is the prediction service. *Client implements it.
type Predictor interface {
	PredictFromString(ctx context.Context, input string) (pipeline.Result, error)
}

// Messenger is the chat transport. *Telegram implements it.
type Messenger interface {
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, html bool) error
}

// MetricsInterface defines metrics methods needed by the relay
type MetricsInterface interface {
	RelayMessageInc(outcome string)
}

// Message outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeCommand     = "command"
	OutcomeIgnored     = "ignored"
	OutcomeUnreachable = "unreachable"
	OutcomeSendFailed  = "send_failed"
)

const (
	defaultRetryDelay = 3 * time.Second

	unreachableReply = "❌ The prediction service is not reachable right now. Please try again later."
)

// Reply is what the relay answers to one chat message.
type Reply struct {
	Text    string
	HTML    bool
	Outcome string
}

// Relay polls the messenger and answers each text message with a prediction.
type Relay struct {
	predictor  Predictor
	messenger  Messenger
	metrics    MetricsInterface
	retryDelay time.Duration

	offset int64
}

// New creates a relay. metrics may be nil.
func New(predictor Predictor, messenger Messenger, metrics MetricsInterface) *Relay {
	return &Relay{
		predictor:  predictor,
		messenger:  messenger,
		metrics:    metrics,
		retryDelay: defaultRetryDelay,
	}
}

// Run polls until ctx is cancelled. A failed poll is retried after a short
// delay; a failing update is logged and skipped.
func (r *Relay) Run(ctx context.Context) error {
	log.Info().Msg("Chat relay started")
	for {
		updates, err := r.messenger.GetUpdates(ctx, r.offset)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Chat relay stopped")
				return nil
			}
			log.Warn().Err(err).Dur("retry_in", r.retryDelay).Msg("Failed to fetch updates")
			select {
			case <-ctx.Done():
				log.Info().Msg("Chat relay stopped")
				return nil
			case <-time.After(r.retryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= r.offset {
				r.offset = u.UpdateID + 1
			}
			r.handle(ctx, u)
		}

		if ctx.Err() != nil {
			log.Info().Msg("Chat relay stopped")
			return nil
		}
	}
}

func (r *Relay) handle(ctx context.Context, u Update) {
	if u.Message == nil || strings.TrimSpace(u.Message.Text) == "" {
		r.count(OutcomeIgnored)
		return
	}

	chatID := u.Message.Chat.ID
	reply := r.Answer(ctx, u.Message.Text)

	if err := r.messenger.SendMessage(ctx, chatID, reply.Text, reply.HTML); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Int64("update_id", u.UpdateID).Msg("Failed to send reply")
		r.count(OutcomeSendFailed)
		return
	}

	log.Debug().Int64("chat_id", chatID).Str("outcome", reply.Outcome).Msg("Reply sent")
	r.count(reply.Outcome)
}

// Answer computes the reply for one chat message.
func (r *Relay) Answer(ctx context.Context, text string) Reply {
	trimmed := strings.TrimSpace(text)
	if isCommand(trimmed, "/start") || isCommand(trimmed, "/help") {
		return Reply{Text: usage(), Outcome: OutcomeCommand}
	}

	result, err := r.predictor.PredictFromString(ctx, features.Normalize(trimmed))
	if err != nil {
		log.Error().Err(err).Msg("Prediction service call failed")
		return Reply{Text: unreachableReply, Outcome: OutcomeUnreachable}
	}

	if result.OK() {
		return Reply{Text: result.MessageHTML, HTML: true, Outcome: OutcomeSuccess}
	}
	return Reply{Text: "❌ " + result.Message, Outcome: OutcomeError}
}

func (r *Relay) count(outcome string) {
	if r.metrics != nil {
		r.metrics.RelayMessageInc(outcome)
	}
}

// isCommand matches "/cmd" and "/cmd@botname".
func isCommand(text, cmd string) bool {
	return text == cmd || strings.HasPrefix(text, cmd+"@") || strings.HasPrefix(text, cmd+" ")
}

func usage() string {
	return "Send the eight features of a district separated by commas:\n" +
		strings.Join(features.Names(), ", ") +
		"\n\nExample:\n8.3252, 41, 6.984127, 1.02381, 322, 2.555556, 37.88, -122.23"
}
