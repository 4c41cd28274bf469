package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port     string
		LogLevel string
	}
	Debug bool
	Face  struct {
		Tolerance       float64
		MaxFaces        int
		SidecarAddr     string
		CameraIndex     int
		FrameIntervalMs int
	}
	Presence struct {
		Cooldown        time.Duration
		Greeting        string
		UnknownGreeting string
	}
	Enroll struct {
		Prompt  string
		Timeout time.Duration
	}
	Voice struct {
		WakeWords      []string
		TimeoutStrikes int
		ListenTimeout  time.Duration
		PhraseLimit    time.Duration
		Pause          time.Duration
		MinEnergy      float64
		MicDevice      string
	}
	Store struct {
		Driver string
		Path   string
		DSN    string
	}
	Answer struct {
		FAQPath     string
		APIKey      string
		BaseURL     string
		Model       string
		MaxTokens   int
		Temperature float64
	}
	Speech struct {
		APIKey  string
		BaseURL string
		Model   string
	}
	TTS struct {
		APIKey string
		Model  string
		Voice  string
	}
	Monitor struct {
		TokenSecret   string
		TokenSkewSecs int
	}
	Trace struct {
		Exporter string
	}
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("debug", false)

	v.SetDefault("face.tolerance", 0.55)
	v.SetDefault("face.max_faces", 4)
	v.SetDefault("face.sidecar_addr", "127.0.0.1:9094")
	v.SetDefault("face.camera_index", 0)
	v.SetDefault("face.frame_interval_ms", 100)

	v.SetDefault("presence.cooldown_seconds", 5)
	v.SetDefault("presence.greeting", "Hello %s! Welcome to MGM Model School robot.")
	v.SetDefault("presence.unknown_greeting", "Hello there!")

	v.SetDefault("enroll.prompt", "I don't think we've met. What's your name?")
	v.SetDefault("enroll.timeout_seconds", 30)

	v.SetDefault("voice.wake_words", "omnis,hello")
	v.SetDefault("voice.timeout_strikes", 3)
	v.SetDefault("voice.listen_timeout_seconds", 5)
	v.SetDefault("voice.phrase_limit_seconds", 8)
	v.SetDefault("voice.pause_ms", 1000)
	v.SetDefault("voice.min_energy", 100)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/omnis.db")
	v.SetDefault("answer.faq_path", "data/omnis.db")
	v.SetDefault("answer.model", "gemini-2.5-flash")
	v.SetDefault("answer.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("answer.max_tokens", 300)
	v.SetDefault("answer.temperature", 0.6)

	v.SetDefault("speech.model", "whisper-1")
	v.SetDefault("tts.model", "tts-1")
	v.SetDefault("tts.voice", "alloy")

	v.SetDefault("monitor.token_skew_secs", 60)
	v.SetDefault("trace.exporter", "none")

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")
	v.BindEnv("debug", "OMNIS_DEBUG")

	v.BindEnv("face.tolerance", "FACE_MATCH_TOLERANCE")
	v.BindEnv("face.max_faces", "FACE_MAX_FACES")
	v.BindEnv("face.sidecar_addr", "VISION_ADDR")
	v.BindEnv("face.camera_index", "CAMERA_INDEX")
	v.BindEnv("face.frame_interval_ms", "FRAME_INTERVAL_MS")

	v.BindEnv("presence.cooldown_seconds", "GREETING_COOLDOWN")
	v.BindEnv("presence.greeting", "GREETING_TEMPLATE")
	v.BindEnv("presence.unknown_greeting", "UNKNOWN_GREETING")

	v.BindEnv("enroll.prompt", "ENROLL_PROMPT")
	v.BindEnv("enroll.timeout_seconds", "ENROLL_TIMEOUT")

	v.BindEnv("voice.wake_words", "WAKE_WORDS")
	v.BindEnv("voice.timeout_strikes", "CONVERSATION_TIMEOUT_STRIKES")
	v.BindEnv("voice.listen_timeout_seconds", "LISTEN_TIMEOUT")
	v.BindEnv("voice.phrase_limit_seconds", "PHRASE_LIMIT")
	v.BindEnv("voice.pause_ms", "PAUSE_MS")
	v.BindEnv("voice.min_energy", "MIN_ENERGY")
	v.BindEnv("voice.mic_device", "MIC_DEVICE")

	v.BindEnv("store.driver", "FACE_STORE_DRIVER")
	v.BindEnv("store.path", "FACE_DB")
	v.BindEnv("store.dsn", "DATABASE_URL")

	v.BindEnv("answer.faq_path", "FAQ_DB")
	v.BindEnv("answer.api_key", "GEMINI_KEY", "OPENAI_API_KEY")
	v.BindEnv("answer.base_url", "ANSWER_BASE_URL")
	v.BindEnv("answer.model", "ANSWER_MODEL")
	v.BindEnv("answer.max_tokens", "GEMINI_MAX_TOKENS")
	v.BindEnv("answer.temperature", "GEMINI_TEMPERATURE")

	v.BindEnv("speech.api_key", "STT_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("speech.base_url", "STT_BASE_URL")
	v.BindEnv("speech.model", "STT_MODEL")

	v.BindEnv("tts.api_key", "TTS_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("tts.model", "TTS_MODEL")
	v.BindEnv("tts.voice", "TTS_VOICE")

	v.BindEnv("monitor.token_secret", "MONITOR_TOKEN_SECRET")
	v.BindEnv("monitor.token_skew_secs", "MONITOR_TOKEN_SKEW_SECS")
	v.BindEnv("trace.exporter", "TRACE_EXPORTER")

	var c Config
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.LogLevel = v.GetString("server.log_level")
	c.Debug = v.GetBool("debug")

	c.Face.Tolerance = v.GetFloat64("face.tolerance")
	c.Face.MaxFaces = v.GetInt("face.max_faces")
	c.Face.SidecarAddr = v.GetString("face.sidecar_addr")
	c.Face.CameraIndex = v.GetInt("face.camera_index")
	c.Face.FrameIntervalMs = v.GetInt("face.frame_interval_ms")

	c.Presence.Cooldown = seconds(v.GetFloat64("presence.cooldown_seconds"))
	c.Presence.Greeting = v.GetString("presence.greeting")
	c.Presence.UnknownGreeting = v.GetString("presence.unknown_greeting")

	c.Enroll.Prompt = v.GetString("enroll.prompt")
	c.Enroll.Timeout = seconds(v.GetFloat64("enroll.timeout_seconds"))

	c.Voice.WakeWords = SplitList(v.GetString("voice.wake_words"))
	c.Voice.TimeoutStrikes = v.GetInt("voice.timeout_strikes")
	c.Voice.ListenTimeout = seconds(v.GetFloat64("voice.listen_timeout_seconds"))
	c.Voice.PhraseLimit = seconds(v.GetFloat64("voice.phrase_limit_seconds"))
	c.Voice.Pause = time.Duration(v.GetInt("voice.pause_ms")) * time.Millisecond
	c.Voice.MinEnergy = v.GetFloat64("voice.min_energy")
	c.Voice.MicDevice = v.GetString("voice.mic_device")

	c.Store.Driver = v.GetString("store.driver")
	c.Store.Path = v.GetString("store.path")
	c.Store.DSN = v.GetString("store.dsn")

	c.Answer.FAQPath = v.GetString("answer.faq_path")
	c.Answer.APIKey = v.GetString("answer.api_key")
	c.Answer.BaseURL = v.GetString("answer.base_url")
	c.Answer.Model = v.GetString("answer.model")
	c.Answer.MaxTokens = v.GetInt("answer.max_tokens")
	c.Answer.Temperature = v.GetFloat64("answer.temperature")

	c.Speech.APIKey = v.GetString("speech.api_key")
	c.Speech.BaseURL = v.GetString("speech.base_url")
	c.Speech.Model = v.GetString("speech.model")

	c.TTS.APIKey = v.GetString("tts.api_key")
	c.TTS.Model = v.GetString("tts.model")
	c.TTS.Voice = v.GetString("tts.voice")

	c.Monitor.TokenSecret = v.GetString("monitor.token_secret")
	c.Monitor.TokenSkewSecs = v.GetInt("monitor.token_skew_secs")
	c.Trace.Exporter = v.GetString("trace.exporter")

	log.Printf("config loaded: port=%s tolerance=%.2f max_faces=%d cooldown=%s wake=%v store=%s",
		c.Server.Port, c.Face.Tolerance, c.Face.MaxFaces, c.Presence.Cooldown, c.Voice.WakeWords, c.Store.Driver)
	return c
}

// SplitList parses a comma separated list, lowercasing and dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func seconds(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }

func toString(v any) string { return fmt.Sprint(v) }
