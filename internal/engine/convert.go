package engine

import (
	"time"

	"affectengine/internal/amygdala"
	"affectengine/internal/buffer"
	"affectengine/internal/config"
	"affectengine/internal/consciousness"
	"affectengine/internal/decision"
	"affectengine/internal/goalengine"
	"affectengine/internal/matcher"
	"affectengine/internal/memory"
	"affectengine/internal/pattern"
	"affectengine/internal/wag"
)

func bufferConfigFrom(c config.BufferConfig) buffer.Config {
	return buffer.Config{
		MaxSize:                c.MaxSize,
		TimeWindowSeconds:      float64(c.TimeWindowSeconds),
		MinSamplesForSignature: c.MinSamplesForSignature,
		MinNonzeroEmotions:     c.MinNonzeroEmotions,
		MaxJumpThreshold:       c.MaxJumpThreshold,
		EmotionMin:             c.EmotionMin,
		EmotionMax:             c.EmotionMax,
		RejectOnFailure:        c.RejectOnFailure,
		ExponentialWeighting:   c.ExponentialWeighting,
	}
}

func patternConfigFrom(c config.PatternConfig) pattern.Config {
	return pattern.Config{
		MinSimilarityThreshold:  c.MinSimilarityThreshold,
		MinActivationsForFusion: c.MinActivationsForFusion,
		MinConfidenceToKeep:     c.MinConfidenceToKeep,
		DaysBeforePruning:       float64(c.DaysBeforePruning),
		MaxPatterns:             c.MaxPatterns,
		LearningRate:            c.UpdateLearningRate,
		FeedbackLearningRate:    c.UpdateLearningRate,
	}
}

func matcherConfigFrom(c config.MatcherConfig) matcher.Config {
	cfg := matcher.DefaultConfig()
	cfg.MinFramesBeforeSwitch = c.MinFramesBeforeSwitch
	cfg.MinPhaseDuration = time.Duration(c.MinPhaseDurationS * float64(time.Second))
	cfg.HysteresisMargin = c.HysteresisMargin
	return cfg
}

func wagConfigFrom(c config.WordAffectConfig) wag.Config {
	return wag.Config{
		EmotionPersistenceThreshold:   time.Duration(c.EmotionPersistenceThreshold * float64(time.Second)),
		TemporalCooccurrenceWindow:    time.Duration(c.TemporalCooccurrenceWindowS * float64(time.Second)),
		CausalityThreshold:            time.Duration(c.CausalityThresholdS * float64(time.Second)),
		SlowEmotionCausalityThreshold: time.Duration(c.SlowEmotionCausalityThreshold * float64(time.Second)),
		LowArousalThreshold:           c.LowArousalThreshold,
		NodeTTL:                       c.NodeTTL,
		MinActivationToSurvive:        1,
		EdgeDecayPerSecond:            1 - c.EdgeDecayPerSecond,
		EdgeFloor:                     0.02,
		SnapshotInterval:              time.Duration(c.SnapshotIntervalSeconds * float64(time.Second)),
	}
}

func memoryConfigFrom(c config.MemoryConfig) memory.Config {
	return memory.Config{
		TraumaIntensityThreshold:   c.TraumaIntensityThreshold,
		TraumaValenceThreshold:     c.TraumaValenceThreshold,
		ActivationRefreshThreshold: c.ActivationRefreshThreshold,
		TraumaHalfLifeHours:        c.TraumaHalfLifeHours,
		WeightFloor:                c.WeightFloor,
		MaxMemories:                c.MaxMemories,
	}
}

func consciousnessConfigFrom(c config.ConsciousnessConfig) consciousness.Config {
	cfg := consciousness.DefaultConfig()
	cfg.WisdomInit = c.WisdomInit
	cfg.WisdomMax = c.WisdomMax
	cfg.WisdomGrowthRate = c.WisdomGrowthRate
	cfg.SentimentGamma = c.SentimentGamma
	cfg.SentimentLambda = c.SentimentLambda
	cfg.SentimentHistory = c.SentimentHistory
	return cfg
}

func goalEngineConfigFrom(c config.GoalEngineConfig) goalengine.Config {
	cfg := goalengine.DefaultConfig()
	cfg.AttenuationFactor = c.AttenuationFactor
	cfg.EmotionThreshold = c.EmotionThreshold
	cfg.WeightAdaptationRate = c.WeightAdaptationRate
	cfg.SigmoidSteepness = c.SigmoidSteepness
	cfg.StochasticAmplitude = c.StochasticAmplitude
	cfg.ResilienceMax = c.ResilienceMax
	return cfg
}

func amygdalaConfigFrom(c config.AmygdalaConfig) amygdala.Config {
	return amygdala.Config{OverrideEnabled: c.OverrideEnabled}
}

func decisionConfigFrom(c config.DecisionConfig) decision.Config {
	cfg := decision.DefaultConfig()
	cfg.TauMaxMs = c.TauMaxMs
	cfg.ThetaVeto = c.ThetaVeto
	cfg.ThetaMeta = c.ThetaMeta
	cfg.ThetaInfo = c.ThetaInfo
	cfg.ThetaConfidence = c.ThetaConfidence
	cfg.MaxMacroOptions = c.MaxMacroOptions
	cfg.TopKRefinement = c.TopKRefinement
	return cfg
}
