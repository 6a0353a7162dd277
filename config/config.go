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
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("telegram_chat_id", "TELEGRAM_CHAT_ID")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("firebase_project_id", "FIREBASE_PROJECT_ID")
		viper.BindEnv("firebase_credentials", "FIREBASE_CREDENTIALS")
		viper.BindEnv("dashboard_user_id", "DASHBOARD_USER_ID")
		viper.BindEnv("mempool_api_url", "MEMPOOL_API_URL")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("db_path", "/app/data/dashboard.db")
		viper.SetDefault("mempool_api_url", "https://mempool.space/api")
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

func GetInt64(key string) int64 {
	InitConfig()
	return viper.GetInt64(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}
