package mqtt

import "fmt"

// Topic scheme (spec §6 external interfaces): inputs land on .../in topics,
// outputs are published on .../out topics, all under a configurable prefix.

func TopicAffectIn(prefix string) string {
	return fmt.Sprintf("%s/affect/in", prefix)
}

func TopicUtteranceIn(prefix string) string {
	return fmt.Sprintf("%s/utterance/in", prefix)
}

func TopicTokensIn(prefix string) string {
	return fmt.Sprintf("%s/tokens/in", prefix)
}

func TopicStateOut(prefix string) string {
	return fmt.Sprintf("%s/state/out", prefix)
}

func TopicSnapshotOut(prefix string) string {
	return fmt.Sprintf("%s/snapshot/out", prefix)
}

func TopicDecisionOut(prefix string) string {
	return fmt.Sprintf("%s/decision/out", prefix)
}

func TopicConsciousnessOut(prefix string) string {
	return fmt.Sprintf("%s/consciousness/out", prefix)
}
