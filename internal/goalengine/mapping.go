package goalengine

import "affectengine/internal/affect"

// emotionToVariable is the fixed 24x16 weight table W_ij of spec §4.9
// step 2, loaded at startup and never inferred at runtime (Open Question
// #2). Most cells are zero: only emotions with a plausible causal link to
// a goal variable (named by the fixed table of spec §3) carry a non-zero
// weight, in either direction.
var emotionToVariable [affect.Dimensions][NumVariables]float64

func emotionIndex(name string) int {
	for i, n := range affect.EmotionNames {
		if n == name {
			return i
		}
	}
	panic("goalengine: unknown emotion name " + name)
}

func init() {
	set := func(emotion, variable string, w float64) {
		emotionToVariable[emotionIndex(emotion)][indexOf(variable)] = w
	}

	set("Fear", "Needs", 0.8)
	set("Fear", "Traumas", 0.5)
	set("Fear", "Circumstances", 0.4)
	set("Horreur", "Needs", 0.9)
	set("Horreur", "Traumas", 0.8)
	set("Horreur", "Environment", -0.4)
	set("Anxiety", "Needs", 0.5)
	set("Anxiety", "Regrets", 0.3)
	set("Anxiety", "Environment", -0.4)
	set("Sadness", "Regrets", 0.6)
	set("Sadness", "EmotionalMemories", 0.5)
	set("Sadness", "Experiences", -0.3)
	set("Disgust", "Values", -0.3)
	set("Disgust", "Environment", -0.2)
	set("Confusion", "SelfKnowledge", -0.3)
	set("Confusion", "Clarity", -0.4)
	set("Anger", "Values", -0.4)
	set("Anger", "Circumstances", 0.3)
	set("Anger", "Experiences", -0.3)
	set("Shame", "Values", -0.6)
	set("Shame", "SelfKnowledge", 0.3)
	set("Guilt", "Regrets", 0.7)
	set("Guilt", "Beliefs", -0.3)

	set("Joy", "Feelings", 0.8)
	set("Joy", "Experiences", 0.4)
	set("Joy", "Surpassing", 0.3)
	set("Serenity", "Environment", 0.5)
	set("Serenity", "Needs", 0.3)
	set("Exploration", "Clarity", 0.4)
	set("Exploration", "Models", 0.4)
	set("Exploration", "Circumstances", 0.4)
	set("Satisfaction", "Surpassing", 0.6)
	set("Satisfaction", "SelfKnowledge", 0.3)
	set("Excitation", "Feelings", 0.4)
	set("Excitation", "Experiences", 0.3)
	set("Surprise", "Clarity", -0.2)
	set("Surprise", "Models", 0.2)
	set("Pride", "Surpassing", 0.7)
	set("Pride", "Values", 0.4)
	set("Hope", "Motivations", 0.7)
	set("Hope", "Feelings", 0.3)
	set("Gratitude", "Experiences", 0.6)
	set("Gratitude", "Feelings", 0.3)
	set("Relief", "Environment", 0.5)
	set("Relief", "Needs", 0.3)
	set("Boredom", "Motivations", -0.3)
	set("Boredom", "Clarity", -0.2)
	set("Trust", "Experiences", 0.7)
	set("Trust", "Beliefs", 0.3)
	set("Envy", "Needs", 0.4)
	set("Envy", "Values", -0.2)
	set("Contempt", "Experiences", -0.4)
	set("Contempt", "Values", -0.2)
	set("Nostalgia", "EmotionalMemories", 0.7)
	set("Nostalgia", "Beliefs", 0.2)
}
