package config

// Config holds all runtime settings for the reasona server and CLI.
type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Ollama    OllamaConfig
	Storage   StorageConfig
	Retrieval RetrievalConfig
	Pipeline  PipelineConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

// LLMConfig selects the default answer-generation provider. API keys are
// secrets: they are read from the environment (or the config file is never
// written with them) and never echoed by the config commands.
type LLMConfig struct {
	Provider      string
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GoogleAPIKey  string
	GoogleBaseURL string
}

type OllamaConfig struct {
	BaseURL    string
	Model      string
	EmbedModel string
}

type StorageConfig struct {
	DataDir string
}

type RetrievalConfig struct {
	TopK       int
	Collection string
}

type PipelineConfig struct {
	Hypotheses int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "qwen3:1.7b",
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			Model:      "qwen3:1.7b",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Retrieval: RetrievalConfig{
			TopK:       4,
			Collection: "docs",
		},
		Pipeline: PipelineConfig{
			Hypotheses: 3,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/reasona/config.json, then applies environment overrides
// (REASONA_* for settings, OPENAI_API_KEY / GOOGLE_API_KEY for secrets).
//
// No provider credentials are required at load time: the default provider is
// a local Ollama instance. Missing credentials for a cloud provider surface
// when that provider is actually selected for a query.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
