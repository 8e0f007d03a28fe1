package mainconfig

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/talmzip/awwwe-feedback-form/internal/archive"
	appconfig "github.com/talmzip/awwwe-feedback-form/internal/config"
	"github.com/talmzip/awwwe-feedback-form/internal/notify"
	"github.com/talmzip/awwwe-feedback-form/internal/sheet"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

// NeedsAWS reports whether any configured component talks to AWS.
func NeedsAWS(cfg *appconfig.Config) bool {
	return cfg.SheetBackend == appconfig.BackendDynamoDB ||
		cfg.ArchiveBucket != "" ||
		(cfg.EmailProvider == "ses" && cfg.NotifyEmailTo != "")
}

// WrapAppender layers the S3 archive and the email notification over the
// primary appender, each only when configured.
func WrapAppender(appender sheet.Appender, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) sheet.Appender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ArchiveBucket != "" {
		if awsCfg == nil {
			logger.Warn("row archive disabled: no AWS config", "bucket", cfg.ArchiveBucket)
		} else {
			s3Client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
				o.UsePathStyle = cfg.AWSEndpointOverride != ""
			})
			appender = archive.NewMirror(appender, archive.NewStore(s3Client, cfg.ArchiveBucket, logger), logger)
		}
	}
	if cfg.NotifyEmailTo != "" {
		if sender := NewEmailSender(cfg, awsCfg, logger); sender != nil {
			appender = notify.NewRowNotifier(appender, sender, cfg.NotifyEmailTo, logger)
		}
	}
	return appender
}

// NewEmailSender builds the configured provider, or nil when it lacks
// credentials.
func NewEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "stub":
		return notify.NewStubEmailSender(logger)
	case "ses":
		if awsCfg == nil {
			break
		}
		if sender := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			return sender
		}
	default:
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			return sender
		}
	}
	logger.Warn("email notifications disabled: provider not configured", "provider", cfg.EmailProvider)
	return nil
}
