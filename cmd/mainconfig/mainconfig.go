package mainconfig

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/inkstudio-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/inkstudio-platform/internal/config"
	"github.com/wolfman30/inkstudio-platform/internal/notify"
	"github.com/wolfman30/inkstudio-platform/internal/observability/metrics"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// LoadAWSConfig centralizes AWS SDK initialization so both binaries share the
// same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return config.LoadDefaultConfig(ctx, loaders...)
}

// NewSESClient builds the SES v2 client, honouring AWS_ENDPOINT_OVERRIDE for
// LocalStack. It returns nil when no sender address is configured.
func NewSESClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.SESAPI {
	if strings.TrimSpace(cfg.SESFromEmail) == "" {
		return nil
	}
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("failed to load AWS config, SES disabled", "error", err)
		return nil
	}
	endpoint := strings.TrimSpace(cfg.AWSEndpointOverride)
	return sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// BuildEmailSender wires the configured email transport.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	return bootstrap.BuildEmailSender(cfg, NewSESClient(ctx, cfg, logger), logger)
}

// SetupMetrics registers the studio collectors plus the Go runtime ones on a
// private registry and returns the /metrics handler.
func SetupMetrics() (http.Handler, *metrics.StudioMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewStudioMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}
