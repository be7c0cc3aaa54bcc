// Package config loads the engine's environment-driven configuration:
// every numeric threshold, weight, window size and learning rate named by
// the component configs is overridable (spec §6 "Config").
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EngineConfig is the root configuration for the engine-server process.
type EngineConfig struct {
	HTTPAddr        string
	DBDSN           string
	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	SnapshotInterval    time.Duration
	PatternPruneCron    string
	DispatchTimeout     time.Duration
	MaxRetries          int
	CircuitBreakerN     int
	CircuitBreakerCool  time.Duration

	Buffer        BufferConfig
	Pattern       PatternConfig
	Matcher       MatcherConfig
	WordAffect    WordAffectConfig
	Memory        MemoryConfig
	Consciousness ConsciousnessConfig
	GoalEngine    GoalEngineConfig
	Amygdala      AmygdalaConfig
	Decision      DecisionConfig
}

// BufferConfig mirrors internal/buffer's tunables.
type BufferConfig struct {
	MaxSize                int
	TimeWindowSeconds      int
	MinSamplesForSignature int
	MinNonzeroEmotions     int
	MaxJumpThreshold       float64
	EmotionMin             float64
	EmotionMax             float64
	ExponentialWeighting   bool
	RejectOnFailure        bool
}

// PatternConfig mirrors internal/pattern's tunables.
type PatternConfig struct {
	MinSimilarityThreshold    float64
	MinConfidenceForCreation  float64
	MinConfidenceToKeep       float64
	MinActivationsForFusion   int
	DaysBeforePruning         int
	MaxPatterns               int
	UpdateLearningRate        float64
}

// MatcherConfig mirrors internal/matcher's tunables.
type MatcherConfig struct {
	MinFramesBeforeSwitch int
	MinPhaseDurationS     float64
	HysteresisMargin      float64
}

// WordAffectConfig mirrors internal/wag's tunables.
type WordAffectConfig struct {
	EmotionPersistenceThreshold   float64
	TemporalCooccurrenceWindowS   float64
	CausalityThresholdS           float64
	SlowEmotionCausalityThreshold float64
	LowArousalThreshold           float64
	NodeTTL                       time.Duration
	EdgeDecayPerSecond            float64
	SnapshotIntervalSeconds       float64
}

// MemoryConfig mirrors internal/memory's tunables.
type MemoryConfig struct {
	TraumaIntensityThreshold   float64
	TraumaValenceThreshold     float64
	ActivationRefreshThreshold float64
	TraumaHalfLifeHours        float64
	WeightFloor                float64
	MaxMemories                int
}

// ConsciousnessConfig mirrors internal/consciousness's tunables.
type ConsciousnessConfig struct {
	WisdomInit       float64
	WisdomMax        float64
	WisdomGrowthRate float64
	SentimentGamma   float64
	SentimentLambda  float64
	SentimentHistory int
}

// GoalEngineConfig mirrors internal/goalengine's tunables.
type GoalEngineConfig struct {
	AttenuationFactor    float64
	EmotionThreshold     float64
	WeightAdaptationRate float64
	SigmoidSteepness     float64
	StochasticAmplitude  float64
	ResilienceMax        float64
}

// AmygdalaConfig mirrors internal/amygdala's tunables.
type AmygdalaConfig struct {
	OverrideEnabled bool
	PhaseThreshold  float64
}

// DecisionConfig mirrors internal/decision's tunables.
type DecisionConfig struct {
	TauMaxMs        float64
	ThetaVeto       float64
	ThetaMeta       float64
	ThetaInfo       float64
	ThetaConfidence float64
	MaxMacroOptions int
	TopKRefinement  int
}

// Load reads the engine's configuration from the environment, falling
// back to spec-default values for anything unset.
func Load() (EngineConfig, error) {
	cfg := EngineConfig{
		HTTPAddr:        getenvDefault("ENGINE_HTTP_ADDR", ":9020"),
		DBDSN:           os.Getenv("ENGINE_DB_DSN"),
		MQTTBrokerURL:   getenvDefault("ENGINE_MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:    getenvDefault("ENGINE_MQTT_CLIENT_ID", "affectengine"),
		MQTTUsername:    os.Getenv("ENGINE_MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("ENGINE_MQTT_PASSWORD"),
		MQTTTopicPrefix: getenvDefault("ENGINE_MQTT_TOPIC_PREFIX", "engine"),

		SnapshotInterval:   time.Duration(getenvIntDefault("ENGINE_SNAPSHOT_INTERVAL_SECONDS", 30)) * time.Second,
		PatternPruneCron:   getenvDefault("ENGINE_PATTERN_PRUNE_CRON", "@every 1h"),
		DispatchTimeout:    time.Duration(getenvIntDefault("ENGINE_DISPATCH_TIMEOUT_SECONDS", 5)) * time.Second,
		MaxRetries:         getenvIntDefault("ENGINE_MAX_RETRIES", 3),
		CircuitBreakerN:    getenvIntDefault("ENGINE_CIRCUIT_BREAKER_THRESHOLD", 5),
		CircuitBreakerCool: time.Duration(getenvIntDefault("ENGINE_CIRCUIT_BREAKER_TIMEOUT_SECONDS", 30)) * time.Second,

		Buffer: BufferConfig{
			MaxSize:                getenvIntDefault("BUFFER_MAX_SIZE", 256),
			TimeWindowSeconds:      getenvIntDefault("BUFFER_TIME_WINDOW_SECONDS", 120),
			MinSamplesForSignature: getenvIntDefault("BUFFER_MIN_SAMPLES_FOR_SIGNATURE", 8),
			MinNonzeroEmotions:     getenvIntDefault("BUFFER_MIN_NONZERO_EMOTIONS", 1),
			MaxJumpThreshold:       getenvFloatDefault("BUFFER_MAX_JUMP_THRESHOLD", 0.6),
			EmotionMin:             getenvFloatDefault("BUFFER_EMOTION_MIN", 0.0),
			EmotionMax:             getenvFloatDefault("BUFFER_EMOTION_MAX", 1.0),
			ExponentialWeighting:   getenvBoolDefault("BUFFER_EXPONENTIAL_WEIGHTING", true),
			RejectOnFailure:        getenvBoolDefault("BUFFER_REJECT_ON_FAILURE", true),
		},
		Pattern: PatternConfig{
			MinSimilarityThreshold:   getenvFloatDefault("PATTERN_MIN_SIMILARITY_THRESHOLD", 0.6),
			MinConfidenceForCreation: getenvFloatDefault("PATTERN_MIN_CONFIDENCE_FOR_CREATION", 0.3),
			MinConfidenceToKeep:      getenvFloatDefault("PATTERN_MIN_CONFIDENCE_TO_KEEP", 0.1),
			MinActivationsForFusion:  getenvIntDefault("PATTERN_MIN_ACTIVATIONS_FOR_FUSION", 5),
			DaysBeforePruning:        getenvIntDefault("PATTERN_DAYS_BEFORE_PRUNING", 30),
			MaxPatterns:              getenvIntDefault("PATTERN_MAX_PATTERNS", 200),
			UpdateLearningRate:       getenvFloatDefault("PATTERN_UPDATE_LEARNING_RATE", 0.15),
		},
		Matcher: MatcherConfig{
			MinFramesBeforeSwitch: getenvIntDefault("MATCHER_MIN_FRAMES_BEFORE_SWITCH", 3),
			MinPhaseDurationS:     getenvFloatDefault("MATCHER_MIN_PHASE_DURATION_SECONDS", 5),
			HysteresisMargin:      getenvFloatDefault("MATCHER_HYSTERESIS_MARGIN", 0.05),
		},
		WordAffect: WordAffectConfig{
			EmotionPersistenceThreshold:   getenvFloatDefault("WAG_EMOTION_PERSISTENCE_THRESHOLD", 0.3),
			TemporalCooccurrenceWindowS:   getenvFloatDefault("WAG_TEMPORAL_COOCCURRENCE_WINDOW_SECONDS", 10),
			CausalityThresholdS:           getenvFloatDefault("WAG_CAUSALITY_THRESHOLD_SECONDS", 5),
			SlowEmotionCausalityThreshold: getenvFloatDefault("WAG_SLOW_EMOTION_CAUSALITY_THRESHOLD_SECONDS", 20),
			LowArousalThreshold:           getenvFloatDefault("WAG_LOW_AROUSAL_THRESHOLD", 0.3),
			NodeTTL:                       time.Duration(getenvIntDefault("WAG_NODE_TTL_SECONDS", 3600)) * time.Second,
			EdgeDecayPerSecond:            getenvFloatDefault("WAG_EDGE_DECAY_PER_SECOND", 0.0005),
			SnapshotIntervalSeconds:       getenvFloatDefault("WAG_SNAPSHOT_INTERVAL_SECONDS", 30),
		},
		Memory: MemoryConfig{
			TraumaIntensityThreshold:   getenvFloatDefault("MEMORY_TRAUMA_INTENSITY_THRESHOLD", 0.85),
			TraumaValenceThreshold:     getenvFloatDefault("MEMORY_TRAUMA_VALENCE_THRESHOLD", 0.2),
			ActivationRefreshThreshold: getenvFloatDefault("MEMORY_ACTIVATION_REFRESH_THRESHOLD", 0.3),
			TraumaHalfLifeHours:        getenvFloatDefault("MEMORY_TRAUMA_HALF_LIFE_HOURS", 720),
			WeightFloor:                getenvFloatDefault("MEMORY_WEIGHT_FLOOR", 0.01),
			MaxMemories:                getenvIntDefault("MEMORY_MAX_MEMORIES", 2000),
		},
		Consciousness: ConsciousnessConfig{
			WisdomInit:       getenvFloatDefault("CONSCIOUSNESS_WISDOM_INIT", 1.0),
			WisdomMax:        getenvFloatDefault("CONSCIOUSNESS_WISDOM_MAX", 2.0),
			WisdomGrowthRate: getenvFloatDefault("CONSCIOUSNESS_WISDOM_GROWTH_RATE", 0.1),
			SentimentGamma:   getenvFloatDefault("CONSCIOUSNESS_SENTIMENT_GAMMA", 0.9),
			SentimentLambda:  getenvFloatDefault("CONSCIOUSNESS_SENTIMENT_LAMBDA", 0.3),
			SentimentHistory: getenvIntDefault("CONSCIOUSNESS_SENTIMENT_HISTORY", 10),
		},
		GoalEngine: GoalEngineConfig{
			AttenuationFactor:    getenvFloatDefault("GOALENGINE_ATTENUATION_FACTOR", 0.3),
			EmotionThreshold:     getenvFloatDefault("GOALENGINE_EMOTION_THRESHOLD", 0.05),
			WeightAdaptationRate: getenvFloatDefault("GOALENGINE_WEIGHT_ADAPTATION_RATE", 0.02),
			SigmoidSteepness:     getenvFloatDefault("GOALENGINE_SIGMOID_STEEPNESS", 6.0),
			StochasticAmplitude:  getenvFloatDefault("GOALENGINE_STOCHASTIC_AMPLITUDE", 0.02),
			ResilienceMax:        getenvFloatDefault("GOALENGINE_RESILIENCE_MAX", 1.0),
		},
		Amygdala: AmygdalaConfig{
			OverrideEnabled: getenvBoolDefault("AMYGDALA_OVERRIDE_ENABLED", true),
			PhaseThreshold:  getenvFloatDefault("AMYGDALA_PHASE_THRESHOLD", 0.6),
		},
		Decision: DecisionConfig{
			TauMaxMs:        getenvFloatDefault("DECISION_TAU_MAX_MS", 800),
			ThetaVeto:       getenvFloatDefault("DECISION_THETA_VETO", 0.75),
			ThetaMeta:       getenvFloatDefault("DECISION_THETA_META", 0.5),
			ThetaInfo:       getenvFloatDefault("DECISION_THETA_INFO", 0.5),
			ThetaConfidence: getenvFloatDefault("DECISION_THETA_CONFIDENCE", 0.15),
			MaxMacroOptions: getenvIntDefault("DECISION_MAX_MACRO_OPTIONS", 8),
			TopKRefinement:  getenvIntDefault("DECISION_TOP_K_REFINEMENT", 3),
		},
	}

	if cfg.DBDSN == "" {
		// Persistence is optional per spec §6; absence degrades gracefully
		// rather than failing startup, unlike the teacher's DB_DSN which
		// was mandatory.
	}

	return cfg, nil
}

func getenvDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}

func getenvFloatDefault(key string, val float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return val
	}
	return f
}

func getenvBoolDefault(key string, val bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return val
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return val
	}
}

var _ = fmt.Sprintf // retained for parity with the teacher's error-formatted config loader; used once persistence validation grows beyond a no-op.
