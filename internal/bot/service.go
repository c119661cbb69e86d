package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"billsplit/internal/bill"
	"billsplit/internal/caption"
	"billsplit/internal/history"
	"billsplit/internal/llm"
	"billsplit/internal/telegram"
	"billsplit/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Messenger is the subset of the Telegram client the pipeline needs
type Messenger interface {
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	DownloadFile(ctx context.Context, f *telegram.File) ([]byte, string, error)
	SendMessage(ctx context.Context, chatID, replyTo int64, html string) error
}

// Archive stores the receipt photo and returns its public URL
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

const replyTimeout = 10 * time.Second

type Service struct {
	tg       Messenger
	vision   llm.VisionClient
	archive  Archive
	history  history.Repository
	username string

	log     *zap.Logger
	tracer  trace.Tracer
	metrics *telemetry.Metrics
}

func NewService(
	tg Messenger,
	vision llm.VisionClient,
	archive Archive,
	repo history.Repository,
	username string,
	log *zap.Logger,
	tracer trace.Tracer,
	metrics *telemetry.Metrics,
) *Service {
	return &Service{
		tg:       tg,
		vision:   vision,
		archive:  archive,
		history:  repo,
		username: strings.TrimPrefix(username, "@"),
		log:      log,
		tracer:   tracer,
		metrics:  metrics,
	}
}

// --------------------------------------------------
// UPDATE ROUTING
// --------------------------------------------------

func (s *Service) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}

	switch msg.Command(s.username) {
	case "start":
		return s.reply(ctx, msg, startText(s.username))
	case "help":
		return s.reply(ctx, msg, helpText(s.username))
	}

	if len(msg.Photo) == 0 {
		return nil
	}

	if msg.IsGroup() {
		if !caption.Mentions(msg.Caption, s.username) {
			s.log.Debug("photo without mention ignored",
				zap.Int64("chat_id", msg.Chat.ID),
				zap.Int64("message_id", msg.MessageID),
			)
			return nil
		}
	} else if strings.TrimSpace(msg.Caption) == "" {
		return s.reply(ctx, msg, helpText(s.username))
	}

	return s.handleReceipt(ctx, msg)
}

// --------------------------------------------------
// RECEIPT PIPELINE
// --------------------------------------------------

func (s *Service) handleReceipt(ctx context.Context, msg *telegram.Message) error {
	ctx, span := s.tracer.Start(ctx, "bot.handle_receipt",
		trace.WithAttributes(
			attribute.Int64("chat.id", msg.Chat.ID),
			attribute.Int64("message.id", msg.MessageID),
		),
	)
	defer span.End()

	participants, err := caption.Parse(msg.Caption, s.username)
	if err != nil {
		s.record(ctx, "invalid_caption")
		span.SetAttributes(attribute.String("outcome", "invalid_caption"))

		var perr *caption.ParseError
		switch {
		case errors.Is(err, caption.ErrNoParticipants):
			return s.reply(ctx, msg, noParticipantsText)
		case errors.As(err, &perr):
			return s.reply(ctx, msg, captionProblems(perr))
		default:
			return s.reply(ctx, msg, genericErrorText)
		}
	}

	order := &bill.Order{
		ChatID:       msg.Chat.ID,
		MessageID:    msg.MessageID,
		PhotoFileID:  msg.LargestPhoto().FileID,
		Caption:      msg.Caption,
		Participants: participants,
	}
	span.SetAttributes(attribute.Int("participants", len(participants)))

	if err := s.reply(ctx, msg, processingText); err != nil {
		s.log.Warn("failed to send processing notice", zap.Error(err))
	}

	split, imageURL, err := s.process(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.record(ctx, "failed")
		s.log.Error("receipt processing failed",
			zap.Int64("chat_id", order.ChatID),
			zap.Int64("message_id", order.MessageID),
			zap.Error(err),
		)
		if rerr := s.replyDetached(ctx, msg, apology(err)); rerr != nil {
			s.log.Error("failed to send apology", zap.Error(rerr))
		}
		return err
	}

	if len(split.Shares) > 0 && split.Total.IsZero() && len(split.Unmatched) > 0 {
		s.record(ctx, "nothing_matched")
		return s.reply(ctx, msg, nothingMatchedText+"\n\n"+FormatSplit(split))
	}

	if err := s.reply(ctx, msg, FormatSplit(split)); err != nil {
		span.RecordError(err)
		s.record(ctx, "reply_failed")
		return fmt.Errorf("send split: %w", err)
	}

	s.record(ctx, "ok")
	s.metrics.SplitTotalCents.Record(ctx, split.Total.Shift(2).IntPart())
	s.save(ctx, order, imageURL, split)

	s.log.Info("receipt split",
		zap.Int64("chat_id", order.ChatID),
		zap.Int("participants", len(split.Shares)),
		zap.Int("unmatched", len(split.Unmatched)),
		zap.Int("unclaimed", len(split.Unclaimed)),
		zap.String("total", split.Total.StringFixed(2)),
	)
	return nil
}

func (s *Service) process(ctx context.Context, order *bill.Order) (*bill.Split, string, error) {
	file, err := s.tg.GetFile(ctx, order.PhotoFileID)
	if err != nil {
		return nil, "", fmt.Errorf("get file: %w", err)
	}

	image, contentType, err := s.tg.DownloadFile(ctx, file)
	if err != nil {
		return nil, "", fmt.Errorf("download photo: %w", err)
	}

	imageURL := s.archivePhoto(ctx, order, image, contentType)

	start := time.Now()
	receipt, err := s.vision.ExtractReceipt(ctx, image, contentType, caption.Labels(order.Participants))
	s.metrics.VisionDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, imageURL, fmt.Errorf("extract receipt: %w", err)
	}

	split, err := bill.Calculate(receipt, order.Participants)
	if err != nil {
		return nil, imageURL, fmt.Errorf("calculate split: %w", err)
	}

	return split, imageURL, nil
}

// archivePhoto never fails the pipeline
func (s *Service) archivePhoto(ctx context.Context, order *bill.Order, image []byte, contentType string) string {
	key := fmt.Sprintf("receipts/%d/%s.jpg", order.ChatID, uuid.New().String())

	url, err := s.archive.Put(ctx, key, image, contentType)
	if err != nil {
		s.log.Warn("failed to archive receipt photo", zap.String("key", key), zap.Error(err))
		return ""
	}
	return url
}

func (s *Service) save(ctx context.Context, order *bill.Order, imageURL string, split *bill.Split) {
	payload, err := json.Marshal(split)
	if err != nil {
		s.log.Warn("failed to encode split", zap.Error(err))
		return
	}

	rec := &history.Record{
		ChatID:     order.ChatID,
		MessageID:  order.MessageID,
		Caption:    order.Caption,
		ImageURL:   imageURL,
		Currency:   split.Currency,
		TotalCents: split.Total.Shift(2).IntPart(),
		Split:      payload,
	}

	if err := s.history.Save(ctx, rec); err != nil {
		s.log.Warn("failed to save split history", zap.Int64("chat_id", order.ChatID), zap.Error(err))
	}
}

// --------------------------------------------------
// HELPERS
// --------------------------------------------------

func (s *Service) reply(ctx context.Context, msg *telegram.Message, text string) error {
	return s.tg.SendMessage(ctx, msg.Chat.ID, msg.MessageID, text)
}

// replyDetached still answers after ctx hit the processing deadline
func (s *Service) replyDetached(ctx context.Context, msg *telegram.Message, text string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
	defer cancel()
	return s.reply(ctx, msg, text)
}

func (s *Service) record(ctx context.Context, status string) {
	s.metrics.ReceiptsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func apology(err error) string {
	switch {
	case errors.Is(err, llm.ErrUnreadableReceipt), errors.Is(err, bill.ErrEmptyReceipt):
		return unreadableText
	case errors.Is(err, telegram.ErrFileTooLarge):
		return tooLargeText
	case errors.Is(err, context.DeadlineExceeded):
		return timeoutText
	default:
		return genericErrorText
	}
}
