package bootstrap

import (
	appconfig "github.com/wolfman30/inkstudio-platform/internal/config"
	"github.com/wolfman30/inkstudio-platform/internal/events"
	"github.com/wolfman30/inkstudio-platform/internal/notify"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// BuildEmailSender selects the email transport from config. ses may be nil
// when no AWS client could be built; the stub sender is the last fallback.
func BuildEmailSender(cfg *appconfig.Config, ses notify.SESAPI, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}
	return notify.NewEmailSender(notify.SenderOptions{
		Provider: cfg.EmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
		SES: notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
			ConfigSet: cfg.SESConfigSet,
		},
		SESAPI: ses,
	}, logger)
}

// BuildNotifier builds the delivery handler that turns outbox entries into
// email. sent may be nil, in which case the sent log is process-local.
func BuildNotifier(cfg *appconfig.Config, email notify.EmailSender, sent events.IdempotencyStore, logger *logging.Logger) *notify.Notifier {
	if cfg == nil {
		cfg = &appconfig.Config{}
	}
	return notify.NewNotifier(email, notify.NotifierConfig{
		StudioName:  cfg.StudioName,
		StudioEmail: cfg.StudioNotifyEmail,
		Timezone:    cfg.StudioTimezone,
	}, logger).WithSentLog(sent)
}
