package service

import (
	"context"
	"time"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/apierr"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"go.uber.org/zap"
)

const (
	// MaxPollTimeout is the hard ceiling on how long one poll may hold its
	// connection, regardless of what the client asked for.
	MaxPollTimeout = 60 * time.Second

	// DefaultPollTimeout applies when the client sends no timeout.
	DefaultPollTimeout = 30 * time.Second

	// DefaultPollCadence is the re-query interval while waiting.
	DefaultPollCadence = 2 * time.Second

	defaultPollMax = 50
	maxPollMax     = 100
)

// PollLimits bounds one deployment's long-poll protocol. Zero fields fall
// back to the package defaults.
type PollLimits struct {
	MaxTimeout time.Duration
	Cadence    time.Duration
	MaxBatch   int
}

// Poller implements the long-poll retrieval protocol. It is stateless across
// polls: each call is an independent bounded loop over the message store, so
// instances scale horizontally with no shared cache.
type Poller struct {
	msgs   MessageStore
	auth   *Authorizer
	limits PollLimits
	logger *zap.Logger
}

func NewPoller(msgs MessageStore, auth *Authorizer, limits PollLimits, logger *zap.Logger) *Poller {
	if limits.MaxTimeout <= 0 {
		limits.MaxTimeout = MaxPollTimeout
	}
	if limits.Cadence <= 0 {
		limits.Cadence = DefaultPollCadence
	}
	if limits.MaxBatch <= 0 {
		limits.MaxBatch = maxPollMax
	}
	return &Poller{msgs: msgs, auth: auth, limits: limits, logger: logger}
}

// Poll blocks until messages newer than the watermark appear, the timeout
// elapses, or ctx is cancelled (client disconnect). Authorization is checked
// once at entry; participants cannot change mid-poll in this model.
//
// A timeout is a normal empty response with a fresh watermark, never an
// error. The wait is a select over timers, not a thread-blocking sleep, so a
// held connection costs a parked goroutine and nothing more.
func (p *Poller) Poll(ctx context.Context, conv *model.Conversation, viewerID int64, viewerRole model.Role, domainID *int64, req model.PollRequest) (*model.PollResponse, error) {
	ok, err := p.auth.IsParticipant(conv, viewerID, viewerRole, domainID)
	if err != nil {
		return nil, apierr.Internal("authorization check failed", err)
	}
	if !ok {
		return nil, apierr.Forbidden(apierr.CodeForbidden, "not a participant of this conversation")
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if timeout > p.limits.MaxTimeout {
		timeout = p.limits.MaxTimeout
	}
	max := req.Max
	if max <= 0 {
		max = defaultPollMax
	}
	if max > p.limits.MaxBatch {
		max = p.limits.MaxBatch
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	cadence := time.NewTicker(p.limits.Cadence)
	defer cadence.Stop()

	for {
		messages, err := p.msgs.ListSince(ctx, conv.ID, req.Since, max)
		if err != nil {
			// Store errors abort the poll; re-polling is the caller's retry.
			p.logger.Error("poll query failed",
				zap.String("conversation_id", conv.ConversationID),
				zap.Int64("viewer_id", viewerID),
				zap.Error(err))
			return nil, apierr.Internal("failed to poll messages", err)
		}
		if len(messages) > 0 {
			return p.deliver(ctx, messages, viewerID, max)
		}

		select {
		case <-ctx.Done():
			// Client went away mid-wait; release the connection promptly.
			return nil, ctx.Err()
		case <-deadline.C:
			return &model.PollResponse{
				Messages:      []model.Message{},
				HasMore:       false,
				NextWatermark: time.Now(),
			}, nil
		case <-cadence.C:
		}
	}
}

// deliver stamps per-viewer delivered receipts and shapes the response. The
// watermark is the last returned message's sent_at, so the next poll resumes
// exactly where this one left off.
func (p *Poller) deliver(ctx context.Context, messages []model.Message, viewerID int64, max int) (*model.PollResponse, error) {
	ids := make([]int64, 0, len(messages))
	for i := range messages {
		if messages[i].SenderID != viewerID {
			ids = append(ids, messages[i].ID)
		}
	}
	if err := p.msgs.MarkDelivered(ctx, ids, viewerID); err != nil {
		return nil, apierr.Internal("failed to stamp delivery receipts", err)
	}
	for i := range messages {
		if messages[i].SenderID != viewerID {
			messages[i].DeliveryStatus = messages[i].DeliveryStatus.Advance(model.DeliveryStatusDelivered)
		}
	}
	return &model.PollResponse{
		Messages:      messages,
		HasMore:       len(messages) == max,
		NextWatermark: messages[len(messages)-1].SentAt,
	}, nil
}
