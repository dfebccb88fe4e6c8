package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/app"
	"github.com/vladislavdragonenkov/glowup/internal/service/admin"
	"github.com/vladislavdragonenkov/glowup/internal/version"
)

const (
	envLogLevel               = "GLOWUP_LOG_LEVEL"
	envHTTPAddr               = "GLOWUP_HTTP_ADDR"
	envGRPCAddr               = "GLOWUP_GRPC_ADDR"
	envMetricsAddr            = "GLOWUP_METRICS_ADDR"
	envStorageDriver          = "GLOWUP_STORAGE_DRIVER"
	envAllowMemoryStore       = "GLOWUP_ALLOW_MEMORY_STORE"
	envRedisAddr              = "GLOWUP_REDIS_ADDR"
	envRedisPassword          = "GLOWUP_REDIS_PASSWORD"
	envRedisDB                = "GLOWUP_REDIS_DB"
	envPostgresDSN            = "GLOWUP_POSTGRES_DSN"
	envPostgresAutoMigrate    = "GLOWUP_POSTGRES_AUTO_MIGRATE"
	envJWTSecret              = "GLOWUP_JWT_SECRET"
	envSecureCookies          = "GLOWUP_SECURE_COOKIES"
	envRequestTimeout         = "GLOWUP_REQUEST_TIMEOUT"
	envAdminUserIDs           = "ADMIN_USER_IDS"
	envStripeSecretKey        = "STRIPE_SECRET_KEY"
	envStripeWebhookSecret    = "STRIPE_WEBHOOK_SECRET"
	envStripeAPIBase          = "STRIPE_API_BASE"
	envRefundWebhookSecret    = "REFUND_WEBHOOK_SECRET"
	envKafkaBrokers           = "KAFKA_BROKERS"
	envHoldSweepInterval      = "GLOWUP_HOLD_SWEEP_INTERVAL"
	envExpiryCleanupInterval  = "GLOWUP_EXPIRY_CLEANUP_INTERVAL"
	envExpiryCleanupBatchSize = "GLOWUP_EXPIRY_CLEANUP_BATCH_SIZE"
	envLoyaltyPointsPerKES    = "LOYALTY_POINTS_PER_KES"
	envLoyaltyReviewBonus     = "LOYALTY_REVIEW_BONUS"
	envLoyaltyReferrerBonus   = "LOYALTY_REFERRAL_BONUS_REFERRER"
	envLoyaltyRefereeBonus    = "LOYALTY_REFERRAL_BONUS_REFEREE"
	envLoyaltyMinRedeem       = "LOYALTY_MIN_REDEEM"
	envLoyaltyPointValueKES   = "LOYALTY_POINT_VALUE_KES"
	envLoyaltyExpiryDays      = "LOYALTY_EXPIRY_DAYS"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(lookup envLookup) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	raw, ok := lookupTrimmed(lookup, envLogLevel)
	if !ok {
		return
	}
	level, err := log.ParseLevel(raw)
	if err != nil {
		log.WithError(err).Warnf("invalid %s, using info", envLogLevel)
		return
	}
	log.SetLevel(level)
}

// readConfigFromEnv собирает конфигурацию из окружения.
// Некорректные значения заменяются значениями по умолчанию с предупреждением.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string
	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("invalid %s=%q: %v, using default", key, raw, err))
	}

	setString := func(key string, dst *string) {
		if v, ok := lookupTrimmed(lookup, key); ok {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := lookupTrimmed(lookup, key); ok {
			parsed, err := parseBool(v)
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	setInt := func(key string, dst *int, valid func(int) bool, rule string) {
		if v, ok := lookupTrimmed(lookup, key); ok {
			parsed, err := parseInt(v, valid, rule)
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	setPoints := func(key string, dst *int64) {
		if v, ok := lookupTrimmed(lookup, key); ok {
			parsed, err := parseInt(v, func(v int) bool { return v >= 0 }, "must be >= 0")
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = int64(parsed)
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v, ok := lookupTrimmed(lookup, key); ok {
			parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}
	setFloat := func(key string, dst *float64, valid func(float64) bool, rule string) {
		if v, ok := lookupTrimmed(lookup, key); ok {
			parsed, err := parseFloat(v, valid, rule)
			if err != nil {
				warn(key, v, err)
				return
			}
			*dst = parsed
		}
	}

	setString(envHTTPAddr, &cfg.HTTPAddr)
	setString(envGRPCAddr, &cfg.GRPCAddr)
	setString(envMetricsAddr, &cfg.MetricsAddr)
	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = app.StorageDriver(strings.ToLower(v))
	}
	setBool(envAllowMemoryStore, &cfg.AllowMemoryStore)
	setString(envRedisAddr, &cfg.RedisAddr)
	setString(envRedisPassword, &cfg.RedisPassword)
	setInt(envRedisDB, &cfg.RedisDB, func(v int) bool { return v >= 0 }, "must be >= 0")
	setString(envPostgresDSN, &cfg.PostgresDSN)
	setBool(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)

	setString(envJWTSecret, &cfg.JWTSecret)
	setBool(envSecureCookies, &cfg.SecureCookies)
	setDuration(envRequestTimeout, &cfg.RequestTimeout)
	if v, ok := lookupTrimmed(lookup, envAdminUserIDs); ok {
		cfg.AdminUserIDs = admin.ParseAllowlist(v).IDs()
	}

	setString(envStripeSecretKey, &cfg.StripeSecretKey)
	setString(envStripeWebhookSecret, &cfg.StripeWebhookSecret)
	setString(envStripeAPIBase, &cfg.StripeAPIBase)
	setString(envRefundWebhookSecret, &cfg.RefundWebhookSecret)
	setString(envKafkaBrokers, &cfg.KafkaBrokers)

	setDuration(envHoldSweepInterval, &cfg.HoldSweepInterval)
	setDuration(envExpiryCleanupInterval, &cfg.ExpiryCleanupInterval)
	setInt(envExpiryCleanupBatchSize, &cfg.ExpiryCleanupBatchSize, func(v int) bool { return v > 0 }, "must be > 0")

	setFloat(envLoyaltyPointsPerKES, &cfg.Loyalty.PointsPerKES, func(v float64) bool { return v >= 0 }, "must be >= 0")
	setFloat(envLoyaltyPointValueKES, &cfg.Loyalty.PointValueKES, func(v float64) bool { return v > 0 }, "must be > 0")
	setPoints(envLoyaltyReviewBonus, &cfg.Loyalty.ReviewBonus)
	setPoints(envLoyaltyReferrerBonus, &cfg.Loyalty.ReferralBonusReferrer)
	setPoints(envLoyaltyRefereeBonus, &cfg.Loyalty.ReferralBonusReferee)
	setPoints(envLoyaltyMinRedeem, &cfg.Loyalty.MinimumRedeemPoints)
	setInt(envLoyaltyExpiryDays, &cfg.Loyalty.ExpiryDays, func(v int) bool { return v >= 0 }, "must be >= 0")

	return cfg, warnings
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, errors.New("not a boolean")
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(v) {
		return 0, errors.New(rule)
	}
	return v, nil
}

func parseFloat(raw string, valid func(float64) bool, rule string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(v) {
		return 0, errors.New(rule)
	}
	return v, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(v) {
		return 0, errors.New(rule)
	}
	return v, nil
}

func main() {
	setupLogger(os.LookupEnv)
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"version":        version.GetVersion(),
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"admins":         len(cfg.AdminUserIDs),
	}).Info("запускаем storefront")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("storefront остановлен")
}
