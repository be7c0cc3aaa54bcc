package buffer

import (
	"math"

	"affectengine/internal/affect"
	"affectengine/internal/apperr"
)

// validate applies the push-time validation rules of spec §4.1. prev is the
// previously pushed vector, nil on the first push (jump checks are skipped).
func validate(e affect.Vector24, prev *affect.Vector24, cfg Config) error {
	for i, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &apperr.ValidationError{
				Code:           apperr.CodeNaNOrInf,
				Message:        "affect value is NaN or Inf",
				OffendingIndex: i,
				OffendingValue: v,
			}
		}
		if v < cfg.EmotionMin || v > cfg.EmotionMax {
			return &apperr.ValidationError{
				Code:           apperr.CodeOutOfRange,
				Message:        "affect value outside configured bounds",
				OffendingIndex: i,
				OffendingValue: v,
			}
		}
	}

	nonzero := 0
	for _, v := range e {
		if v > 0 {
			nonzero++
		}
	}
	if nonzero < cfg.MinNonzeroEmotions {
		return &apperr.ValidationError{
			Code:           apperr.CodeAllZero,
			Message:        "fewer than min_nonzero_emotions strictly positive",
			OffendingIndex: -1,
			OffendingValue: float64(nonzero),
		}
	}

	if prev != nil {
		for i := 0; i < affect.Dimensions; i++ {
			jump := math.Abs(e[i] - prev[i])
			if jump > cfg.MaxJumpThreshold {
				return &apperr.ValidationError{
					Code:           apperr.CodeExtremeJump,
					Message:        "element changed by more than max_jump_threshold since last push",
					OffendingIndex: i,
					OffendingValue: jump,
				}
			}
		}
	}
	return nil
}

// sanitize repairs an invalid vector per spec §4.1: replace NaN/Inf with 0,
// clamp to bounds, clip jumps to threshold, lift the argmax to ensure at
// least one non-zero element.
func sanitize(e affect.Vector24, prev *affect.Vector24, cfg Config) affect.Vector24 {
	out := e
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[i] = affect.Clamp(v, cfg.EmotionMin, cfg.EmotionMax)
	}

	if prev != nil {
		for i := 0; i < affect.Dimensions; i++ {
			jump := out[i] - prev[i]
			if jump > cfg.MaxJumpThreshold {
				out[i] = prev[i] + cfg.MaxJumpThreshold
			} else if jump < -cfg.MaxJumpThreshold {
				out[i] = prev[i] - cfg.MaxJumpThreshold
			}
			out[i] = affect.Clamp(out[i], cfg.EmotionMin, cfg.EmotionMax)
		}
	}

	nonzero := 0
	for _, v := range out {
		if v > 0 {
			nonzero++
		}
	}
	if nonzero == 0 {
		best := 0
		for i := 1; i < affect.Dimensions; i++ {
			if out[i] > out[best] {
				best = i
			}
		}
		if out[best] < 0.01 {
			out[best] = 0.01
		}
	}
	return out
}
