package config

import (
	"github.com/spf13/viper"
	"sync"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("deriv_api_url", "DERIV_API_URL")
		viper.BindEnv("email_address", "EMAIL_ADDRESS")
		viper.BindEnv("email_password", "EMAIL_PASSWORD")
		viper.BindEnv("smtp_host", "SMTP_HOST")
		viper.BindEnv("smtp_port", "SMTP_PORT")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("alert_tolerance", "ALERT_TOLERANCE")
		viper.BindEnv("keep_subscriptions", "KEEP_SUBSCRIPTIONS")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("deriv_api_url", "wss://ws.binaryws.com/websockets/v3?app_id=1089")
		viper.SetDefault("smtp_host", "smtp.gmail.com")
		viper.SetDefault("smtp_port", 465)
		viper.SetDefault("db_path", "deriv-alert-bot.db")
		viper.SetDefault("alert_tolerance", 0.0)
		viper.SetDefault("keep_subscriptions", false)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetFloat64(key string) float64 {
	InitConfig()
	return viper.GetFloat64(key)
}
