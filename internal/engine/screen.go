package engine

import "github.com/DoyleJ11/hobuy-widget/pkg/types"

type Screen string

const (
	ScreenCart        Screen = "cart"
	ScreenPreparation Screen = "preparation"
	ScreenFirstRound  Screen = "firstRound"
	ScreenSecondRound Screen = "secondRound"
	ScreenResults     Screen = "results"
	ScreenCustomURL   Screen = "customUrl"
)

// ProjectScreen maps the current stage to the screen a presentation layer should show.
// The custom-URL override wins over any stage.
func ProjectScreen(stage types.Stage, customURL bool) Screen {
	if customURL {
		return ScreenCustomURL
	}

	switch stage {
	case types.StageResults:
		return ScreenResults
	case types.StageSecondRound:
		return ScreenSecondRound
	case types.StageFirstRound:
		return ScreenFirstRound
	case types.StageWaitFirstRound, types.StageWaitSecondRound:
		return ScreenPreparation
	case types.StageSelection, types.StageCart, types.StageNone:
		return ScreenCart
	default:
		return ScreenCart
	}
}

// IsDoubleScreen reports whether the stage renders the wide two-column layout.
func IsDoubleScreen(stage types.Stage) bool {
	return stage == types.StageFirstRound || stage == types.StageSecondRound
}
