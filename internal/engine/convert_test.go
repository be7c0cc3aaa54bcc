package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affectengine/internal/config"
)

func TestConfigConvertersCarryOverrides(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, cfg.Buffer.MaxSize, bufferConfigFrom(cfg.Buffer).MaxSize)
	assert.Equal(t, cfg.Pattern.MaxPatterns, patternConfigFrom(cfg.Pattern).MaxPatterns)
	assert.Equal(t, cfg.Matcher.MinFramesBeforeSwitch, matcherConfigFrom(cfg.Matcher).MinFramesBeforeSwitch)
	assert.Equal(t, cfg.WordAffect.LowArousalThreshold, wagConfigFrom(cfg.WordAffect).LowArousalThreshold)
	assert.Equal(t, cfg.Memory.MaxMemories, memoryConfigFrom(cfg.Memory).MaxMemories)
	assert.Equal(t, cfg.Consciousness.WisdomInit, consciousnessConfigFrom(cfg.Consciousness).WisdomInit)
	assert.Equal(t, cfg.GoalEngine.SigmoidSteepness, goalEngineConfigFrom(cfg.GoalEngine).SigmoidSteepness)
	assert.Equal(t, cfg.Amygdala.OverrideEnabled, amygdalaConfigFrom(cfg.Amygdala).OverrideEnabled)
	assert.Equal(t, cfg.Decision.ThetaVeto, decisionConfigFrom(cfg.Decision).ThetaVeto)
}
