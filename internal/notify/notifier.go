// Package notify tells the outside world that a match run finished. Every
// send is best effort: failures are logged and never reach the caller.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	awsclients "scholarship-matcher/internal/common/aws"
	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/matching/i18n"
	"scholarship-matcher/internal/models"
)

const (
	EventMatchCompleted = "match.completed"
	DigestSize          = 3
)

type Config struct {
	EmailEnabled bool
	FromEmail    string
	SNSEnabled   bool
	TopicARN     string
}

// Notice describes one finished run. Email is optional.
type Notice struct {
	Result *models.MatchResult
	Email  string
	Locale i18n.Locale
}

// MatchCompletedEvent is the SNS message body.
type MatchCompletedEvent struct {
	Event            string    `json:"event"`
	ResultID         string    `json:"resultId"`
	ProfileID        string    `json:"profileId"`
	TotalMatched     int       `json:"totalMatched"`
	TopScholarships  []string  `json:"topScholarships"`
	ModelIdentifier  string    `json:"modelIdentifier"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	CreatedAt        time.Time `json:"createdAt"`
}

type Notifier struct {
	config Config
	email  awsclients.EmailSender
	events awsclients.EventPublisher
	logger logger.Logger
}

// NewNotifier accepts nil clients; the matching channel is then skipped.
func NewNotifier(config Config, email awsclients.EmailSender, events awsclients.EventPublisher, log logger.Logger) *Notifier {
	return &Notifier{
		config: config,
		email:  email,
		events: events,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

func (n *Notifier) MatchCompleted(ctx context.Context, notice Notice) {
	if notice.Result == nil {
		return
	}
	if n.config.SNSEnabled && n.events != nil && n.config.TopicARN != "" {
		if err := n.publish(ctx, notice.Result); err != nil {
			n.logger.Warn("match event not published", map[string]interface{}{
				"resultId": notice.Result.ID,
				"error":    err.Error(),
			})
		}
	}
	if n.config.EmailEnabled && n.email != nil && notice.Email != "" && len(notice.Result.Matches) > 0 {
		if err := n.sendDigest(ctx, notice); err != nil {
			n.logger.Warn("match digest not sent", map[string]interface{}{
				"resultId": notice.Result.ID,
				"error":    err.Error(),
			})
		}
	}
}

func (n *Notifier) publish(ctx context.Context, res *models.MatchResult) error {
	top := make([]string, 0, DigestSize)
	for i := 0; i < len(res.Matches) && i < DigestSize; i++ {
		top = append(top, res.Matches[i].ScholarshipID)
	}

	body, err := json.Marshal(MatchCompletedEvent{
		Event:            EventMatchCompleted,
		ResultID:         res.ID,
		ProfileID:        res.ProfileID,
		TotalMatched:     res.TotalMatched,
		TopScholarships:  top,
		ModelIdentifier:  res.ModelIdentifier,
		ProcessingTimeMs: res.ProcessingTimeMs,
		CreatedAt:        res.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = n.events.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.config.TopicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String(EventMatchCompleted)},
		},
	})
	return err
}

// Digest renders the email subject and text body for a result.
func Digest(res *models.MatchResult, locale i18n.Locale) (string, string) {
	var b strings.Builder
	b.WriteString(i18n.T(locale, i18n.DigestIntro, res.TotalMatched))
	b.WriteString("\n\n")

	for i := 0; i < len(res.Matches) && i < DigestSize; i++ {
		m := res.Matches[i]
		name := m.Title
		if name == "" {
			name = m.ScholarshipID
		}
		b.WriteString("- ")
		b.WriteString(i18n.T(locale, i18n.DigestLine, name, m.Score, m.MatchLevel, m.Deadline.Format("2006-01-02")))
		b.WriteString("\n")
		if m.Explanation != nil {
			text := m.Explanation.Text
			if text == "" {
				text = m.Explanation.EN
			}
			if text != "" {
				b.WriteString("  ")
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
	}
	return i18n.T(locale, i18n.DigestSubject), b.String()
}

func (n *Notifier) sendDigest(ctx context.Context, notice Notice) error {
	subject, body := Digest(notice.Result, notice.Locale)
	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{notice.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	return err
}
