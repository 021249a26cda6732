package config

import (
	"os"
	"strconv"

	"clinic-monitor/common/database"
	"clinic-monitor/common/redis"
)

// Config 诊所运营监控服务配置
type Config struct {
	Database database.Config
	Redis    redis.Config

	// Monitor 周期性报警评估配置
	Monitor struct {
		Enabled    bool // 是否启动周期评估
		IntervalMs int  // 评估周期（毫秒），<= 0 时不启动

		LookbackDays int // 指标回看窗口（天），默认 30

		// 阈值规则配置
		RevenueDropThresholdPct float64 // 收入环比下降阈值（百分比），<= 0 时关闭收入规则，默认 20
		RevenueMinimum          float64 // 参与收入规则评估的最低收入，默认 5000
		OccupancyThreshold      float64 // 入住率阈值（0..1），默认 0.55
		MinProfessionals        int     // 最少在岗专业人员数，0 表示关闭人员规则
		ComplianceThresholdDays int     // 合规文件到期提前告警天数，<= 0 时关闭合规规则，默认 30

		TenantTimeoutSec int    // 单租户评估超时（秒），防止慢租户拖垮调度，默认 60
		AlertChannel     string // 自动触发报警使用的通道，默认 "in_app"
	}

	// Coverage 代班生命周期配置
	Coverage struct {
		SweepIntervalSec int // scheduled→active / active→completed 扫描间隔（秒），<= 0 时不启动，默认 60
	}

	// Hook 排班系统对接（applyCoverage/releaseCoverage webhook）
	Hook struct {
		BaseURL    string // 为空时代班激活只落库，不调用外部排班系统
		TimeoutSec int    // 请求超时（秒），默认 10
		RetryCount int    // 重试次数，默认 3
	}

	// Streams 报警事件总线（由外部通知服务消费）
	Streams struct {
		AlertStream string // 默认 "clinic:alerts:events"
	}

	// Report 周期报表导出
	Report struct {
		OutputDir string // 每轮评估的 xlsx 报表输出目录，为空时不导出
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "clinicops")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Monitor.Enabled = getEnvBool("MONITOR_ENABLED", true)
	cfg.Monitor.IntervalMs = getEnvInt("MONITOR_INTERVAL_MS", 3600000) // 默认 1 小时
	cfg.Monitor.LookbackDays = getEnvInt("MONITOR_LOOKBACK_DAYS", 30)
	cfg.Monitor.RevenueDropThresholdPct = getEnvFloat("MONITOR_REVENUE_DROP_PCT", 20)
	cfg.Monitor.RevenueMinimum = getEnvFloat("MONITOR_REVENUE_MINIMUM", 5000)
	cfg.Monitor.OccupancyThreshold = getEnvFloat("MONITOR_OCCUPANCY_THRESHOLD", 0.55)
	cfg.Monitor.MinProfessionals = getEnvInt("MONITOR_MIN_PROFESSIONALS", 0)
	cfg.Monitor.ComplianceThresholdDays = getEnvInt("MONITOR_COMPLIANCE_DAYS", 30)
	cfg.Monitor.TenantTimeoutSec = getEnvInt("MONITOR_TENANT_TIMEOUT_SEC", 60)
	cfg.Monitor.AlertChannel = getEnv("MONITOR_ALERT_CHANNEL", "in_app")

	cfg.Coverage.SweepIntervalSec = getEnvInt("COVERAGE_SWEEP_INTERVAL_SEC", 60)

	cfg.Hook.BaseURL = getEnv("SCHEDULING_HOOK_URL", "")
	cfg.Hook.TimeoutSec = getEnvInt("SCHEDULING_HOOK_TIMEOUT_SEC", 10)
	cfg.Hook.RetryCount = getEnvInt("SCHEDULING_HOOK_RETRY", 3)

	cfg.Streams.AlertStream = getEnv("ALERT_STREAM", "clinic:alerts:events")

	cfg.Report.OutputDir = getEnv("MONITOR_REPORT_DIR", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
