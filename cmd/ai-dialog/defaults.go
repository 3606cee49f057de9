package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Telegram transport
	viper.SetDefault("telegram.base_url", "https://api.telegram.org")
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)

	// Speech-to-text microservice
	viper.SetDefault("speech.base_url", "http://127.0.0.1:8001")
	viper.SetDefault("speech.language", "uk")

	// Local classification microservice
	viper.SetDefault("classifier.base_url", "http://127.0.0.1:8002")
	viper.SetDefault("classifier.min_confidence", 0.65)

	// Cloud LLM fallback (used only when the local classifier is down or
	// unsure). Empty api_key disables the fallback entirely.
	viper.SetDefault("llm.endpoint", "https://api.openai.com")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.api_key", "")

	// Helpdesk API
	viper.SetDefault("helpdesk.base_url", "")
	viper.SetDefault("helpdesk.api_token", "")

	// Pending-ticket sessions
	viper.SetDefault("session.ttl", 30*time.Minute)

	// Keyword lexicon override; empty means built-in defaults.
	viper.SetDefault("lexicon.path", "")

	// Voice note scratch cache
	viper.SetDefault("voice.cache_dir", "/tmp/ai-dialog-voice")
	viper.SetDefault("voice.max_bytes", int64(20*1024*1024))
	viper.SetDefault("voice.max_age", 1*time.Hour)
	viper.SetDefault("voice.max_files", 200)
}
