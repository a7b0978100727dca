// Package natsjudge serves judge executions over NATS request/reply.
package natsjudge

import (
	"context"
	"encoding/json"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/result"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	// SubjectExecute receives submissions and replies with a Reply.
	SubjectExecute = "judge.execute"
	// QueueGroup spreads requests across judge instances.
	QueueGroup = "judge-service"
)

// Judge executes submissions.
type Judge interface {
	Execute(ctx context.Context, sub model.Submission) (result.AggregateResult, error)
}

// ReplyError carries a request or infrastructure error.
type ReplyError struct {
	Code    appErr.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// Reply is the response body on SubjectExecute.
type Reply struct {
	Result *result.AggregateResult `json:"result,omitempty"`
	Status result.Status           `json:"status,omitempty"`
	Error  *ReplyError             `json:"error,omitempty"`
}

// Handler adapts a Judge to queue messages.
type Handler struct {
	judge Judge
}

// NewHandler creates a handler.
func NewHandler(judge Judge) *Handler {
	return &Handler{judge: judge}
}

// Register subscribes the handler to SubjectExecute.
func (h *Handler) Register(ctx context.Context, consumer mq.Consumer, opts *mq.SubscribeOptions) error {
	var options mq.SubscribeOptions
	if opts != nil {
		options = *opts
	}
	if options.QueueGroup == "" {
		options.QueueGroup = QueueGroup
	}
	return consumer.Subscribe(ctx, SubjectExecute, h.Handle, &options)
}

// Handle judges one message. Errors are encoded in the reply.
func (h *Handler) Handle(ctx context.Context, msg *mq.Message) (*mq.Message, error) {
	var sub model.Submission
	if err := json.Unmarshal(msg.Body, &sub); err != nil {
		logger.Warn(ctx, "invalid submission message", zap.String("message_id", msg.ID), zap.Error(err))
		return h.reply(msg, Reply{Error: &ReplyError{Code: appErr.InvalidParams, Message: "Invalid request body: " + err.Error()}})
	}
	if sub.ID == "" {
		sub.ID = msg.ID
	}
	agg, err := h.judge.Execute(ctx, sub)
	if err != nil {
		e := appErr.GetError(err)
		return h.reply(msg, Reply{Error: &ReplyError{Code: e.Code, Message: e.Error()}})
	}
	return h.reply(msg, Reply{Result: &agg, Status: result.Classify(agg)})
}

func (h *Handler) reply(req *mq.Message, reply Reply) (*mq.Message, error) {
	body, err := json.Marshal(reply)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "encode reply failed")
	}
	out := mq.NewMessage(body)
	out.ID = req.ID
	return out, nil
}

// Client submits executions to a remote judge.
type Client struct {
	producer mq.Producer
}

// NewClient creates a client over a producer.
func NewClient(producer mq.Producer) *Client {
	return &Client{producer: producer}
}

// Execute sends sub and waits for the judged result.
func (c *Client) Execute(ctx context.Context, sub model.Submission) (result.AggregateResult, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return result.AggregateResult{}, appErr.Wrapf(err, appErr.InvalidParams, "encode submission failed")
	}
	msg := mq.NewMessage(body)
	msg.ID = sub.ID
	resp, err := c.producer.Request(ctx, SubjectExecute, msg)
	if err != nil {
		return result.AggregateResult{}, appErr.Wrapf(err, appErr.ServiceUnavailable, "judge request failed")
	}
	var reply Reply
	if err := json.Unmarshal(resp.Body, &reply); err != nil {
		return result.AggregateResult{}, appErr.Wrapf(err, appErr.InternalServerError, "decode judge reply failed")
	}
	if reply.Error != nil {
		return result.AggregateResult{}, appErr.New(reply.Error.Code).WithMessage(reply.Error.Message)
	}
	if reply.Result == nil {
		return result.AggregateResult{}, appErr.New(appErr.InternalServerError).WithMessage("judge reply has no result")
	}
	return *reply.Result, nil
}
