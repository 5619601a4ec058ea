package trending

import "github.com/nkarpov/newsflow/internal/model"

// Deltas below this magnitude are treated as a plateau rather than a move.
const transitionEpsilon = 0.08

// transition advances a topic's lifecycle stage from observed score and
// velocity deltas. There is no terminal state: a fading topic whose velocity
// spikes re-enters the rising phase.
func transition(prev model.LifecycleStage, scoreDelta, velocityDelta float64) (model.LifecycleStage, float64) {
	next := prev

	switch {
	case velocityDelta > transitionEpsilon:
		// Momentum is building again, wherever the topic was.
		if prev == model.StageEmerging || prev == model.StageFading {
			next = model.StageRising
		} else {
			next = model.StageRising
			if prev == model.StageRising && scoreDelta > transitionEpsilon {
				next = model.StagePeak
			}
		}
	case velocityDelta < -transitionEpsilon:
		switch prev {
		case model.StageEmerging, model.StageRising, model.StagePeak:
			next = model.StageDeclining
		case model.StageDeclining:
			next = model.StageFading
		default:
			next = model.StageFading
		}
	default:
		// Plateau: rising topics crest, declining topics keep fading.
		switch prev {
		case model.StageRising:
			next = model.StagePeak
		case model.StageDeclining:
			next = model.StageFading
		default:
			next = prev
		}
	}

	confidence := 0.5 + abs(velocityDelta) + 0.5*abs(scoreDelta)
	if confidence > 0.95 {
		confidence = 0.95
	}

	return next, confidence
}

// stageDescription returns the human-readable text attached to a stage.
func stageDescription(stage model.LifecycleStage) string {
	switch stage {
	case model.StageEmerging:
		return "newly detected topic, momentum not yet established"
	case model.StageRising:
		return "mention velocity is accelerating"
	case model.StagePeak:
		return "topic is at or near maximum attention"
	case model.StageDeclining:
		return "mention velocity is slowing"
	case model.StageFading:
		return "topic is dropping out of the news cycle"
	default:
		return ""
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
