package configs

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

var (
	JWTSecret string
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("[WARN] .env file not found, using system environment")
		} else {
			log.Println("[INFO] .env file loaded")
		}
	} else {
		log.Println("[INFO] Running in Railway, using system environment")
	}

	JWTSecret = GetEnv("JWT_SECRET")
	if JWTSecret == "" {
		log.Println("[ERROR] JWT_SECRET is not set!")
	} else {
		log.Println("[INFO] JWT_SECRET loaded.")
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return strings.TrimSpace(value)
}

func GetEnvInt(key string, def int) int {
	v := GetEnv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func GetEnvBool(key string, def bool) bool {
	v := GetEnv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func GetEnvDuration(key string, def time.Duration) time.Duration {
	v := GetEnv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// =======================
// BILLING CONFIG
// =======================

// BillingConfig groups everything the payment, receipt and scheduler
// components read from the environment.
type BillingConfig struct {
	Gateway        string // razorpay | midtrans
	GatewayTimeout time.Duration

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	RazorpayBaseURL       string

	MidtransServerKey string
	MidtransClientKey string
	MidtransUseProd   bool

	ReceiptStorage string // local | oss | s3
	ReceiptDir     string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string

	ReceiptSweepCron  string
	ReceiptSweepGrace time.Duration
	FeePlanCron       string

	WorkerConcurrency int
}

// LoadBillingConfig reads the billing settings. Missing gateway secrets are a
// startup error.
func LoadBillingConfig() (BillingConfig, error) {
	cfg := BillingConfig{
		Gateway:        strings.ToLower(GetEnv("PAYMENT_GATEWAY", "razorpay")),
		GatewayTimeout: GetEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),

		RazorpayKeyID:         GetEnv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     GetEnv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: GetEnv("RAZORPAY_WEBHOOK_SECRET"),
		RazorpayBaseURL:       GetEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),

		MidtransServerKey: GetEnv("MIDTRANS_SERVER_KEY"),
		MidtransClientKey: GetEnv("MIDTRANS_CLIENT_KEY"),
		MidtransUseProd:   GetEnvBool("MIDTRANS_USE_PROD", false),

		ReceiptStorage: strings.ToLower(GetEnv("RECEIPT_STORAGE", "local")),
		ReceiptDir:     GetEnv("RECEIPT_DIR", "storage"),
		S3Bucket:       GetEnv("S3_BUCKET"),
		S3Region:       GetEnv("S3_REGION", "ap-south-1"),
		S3Endpoint:     GetEnv("S3_ENDPOINT"),

		ReceiptSweepCron:  GetEnv("RECEIPT_SWEEP_CRON", "*/10 * * * *"),
		ReceiptSweepGrace: GetEnvDuration("RECEIPT_SWEEP_GRACE", 5*time.Minute),
		FeePlanCron:       GetEnv("FEE_PLAN_CRON", "0 1 * * *"),

		WorkerConcurrency: GetEnvInt("WORKER_CONCURRENCY", 8),
	}

	switch cfg.Gateway {
	case "razorpay":
		var missing []string
		if cfg.RazorpayKeyID == "" {
			missing = append(missing, "RAZORPAY_KEY_ID")
		}
		if cfg.RazorpayKeySecret == "" {
			missing = append(missing, "RAZORPAY_KEY_SECRET")
		}
		if cfg.RazorpayWebhookSecret == "" {
			missing = append(missing, "RAZORPAY_WEBHOOK_SECRET")
		}
		if len(missing) > 0 {
			return cfg, fmt.Errorf("missing env: %s", strings.Join(missing, ", "))
		}
	case "midtrans":
		if cfg.MidtransServerKey == "" {
			return cfg, fmt.Errorf("missing env: MIDTRANS_SERVER_KEY")
		}
	default:
		return cfg, fmt.Errorf("unknown PAYMENT_GATEWAY %q", cfg.Gateway)
	}

	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	return cfg, nil
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger() gormLogger.Interface {
	level := gormLogger.Warn
	if GetEnvBool("DB_LOG_QUERIES", false) {
		level = gormLogger.Info
	}
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      level,
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	nl := *l
	nl.LogLevel = level
	return &nl
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		log.Printf("[INFO] "+msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		log.Printf("[WARN] "+msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		log.Printf("[ERROR] "+msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := utils.FileWithLineNum()

	switch {
	case err != nil && l.LogLevel >= gormLogger.Error:
		log.Printf("[ERROR] %s | %v | %s | %d rows | %s", file, err, elapsed, rows, sql)
	case elapsed > l.SlowThreshold && l.LogLevel >= gormLogger.Warn:
		log.Printf("[SLOW SQL] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	case l.LogLevel >= gormLogger.Info:
		log.Printf("[QUERY] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}
