package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	appconfig "github.com/wolfman30/health-assistant/internal/config"
	"github.com/wolfman30/health-assistant/internal/notify"
	"github.com/wolfman30/health-assistant/internal/querylog"
	"github.com/wolfman30/health-assistant/internal/transcribe"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

const queryLogBuffer = 512

// BuildQueryRecorder picks the AI query log sink. Sinks that need AWS fall
// back to the log sink when no AWS config or destination is available.
func BuildQueryRecorder(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *querylog.Recorder {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		cfg = &appconfig.Config{}
	}

	var sink querylog.Sink
	switch cfg.QueryLogSink {
	case "dynamodb":
		if awsCfg != nil && strings.TrimSpace(cfg.QueryLogTable) != "" {
			sink = querylog.NewDynamoSink(dynamodb.NewFromConfig(*awsCfg), cfg.QueryLogTable)
			logger.Info("query log sink: dynamodb", "table", cfg.QueryLogTable)
		}
	case "sqs":
		if awsCfg != nil && strings.TrimSpace(cfg.QueryLogQueueURL) != "" {
			sink = querylog.NewSQSSink(sqs.NewFromConfig(*awsCfg), cfg.QueryLogQueueURL)
			logger.Info("query log sink: sqs", "queue", cfg.QueryLogQueueURL)
		}
	}
	if sink == nil {
		if cfg.QueryLogSink != "" && cfg.QueryLogSink != "log" {
			logger.Warn("query log sink not configured; logging entries instead", "sink", cfg.QueryLogSink)
		}
		sink = querylog.NewLogSink(logger)
	}
	return querylog.NewRecorder(sink, queryLogBuffer, logger)
}

// BuildEmailSender selects sendgrid, ses or the logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		cfg = &appconfig.Config{}
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected without api key; using stub email sender")
	case "ses":
		if awsCfg != nil {
			if sender := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger); sender != nil {
				return sender
			}
		}
		logger.Warn("ses selected without aws config; using stub email sender")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildSafetyAlerter returns nil when no alert recipient is configured.
func BuildSafetyAlerter(cfg *appconfig.Config, sender notify.EmailSender, logger *logging.Logger) *notify.SafetyAlerter {
	if cfg == nil || strings.TrimSpace(cfg.SafetyAlertEmail) == "" || sender == nil {
		return nil
	}
	return notify.NewSafetyAlerter(sender, cfg.SafetyAlertEmail, "HIGH", logger)
}

// BuildTranscriber returns nil without an OpenAI key. s3:// audio URLs need
// an AWS config.
func BuildTranscriber(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *transcribe.WhisperTranscriber {
	if cfg == nil || strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil
	}
	var s3Client *s3.Client
	if awsCfg != nil {
		s3Client = s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
			o.UsePathStyle = strings.TrimSpace(cfg.AWSEndpointOverride) != ""
		})
	}
	var fetcher *transcribe.Fetcher
	if s3Client != nil {
		fetcher = transcribe.NewFetcher(nil, s3Client)
	} else {
		fetcher = transcribe.NewFetcher(nil, nil)
	}
	client := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
	return transcribe.NewWhisperTranscriber(&client, fetcher, cfg.TranscriptionModel, logger)
}
