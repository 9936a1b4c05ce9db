package classifier

import (
	"encoding/json"

	"github.com/DoyleJ11/hobuy-widget/internal/engine"
	"github.com/DoyleJ11/hobuy-widget/internal/storage"
	"github.com/DoyleJ11/hobuy-widget/pkg/types"
)

// Restore rebuilds auction state from what Classify persisted. Winner keys are replayed
// last so the first-round freeze does not drop the others.
func Restore(store storage.Store) engine.State {
	s := engine.NewEmptyState()
	var actions []engine.Action

	messages := []struct {
		key  string
		wrap func(types.InboundMessage) engine.Action
	}{
		{storage.KeySelectionMessage, func(m types.InboundMessage) engine.Action { return engine.SetSelectionMessage{Msg: m} }},
		{storage.KeyWaitRoundMessage, func(m types.InboundMessage) engine.Action { return engine.SetWaitRoundMessage{Msg: m} }},
		{storage.KeyRoundMessage, func(m types.InboundMessage) engine.Action { return engine.SetRoundMessage{Msg: m} }},
		{storage.KeySelfBet, func(m types.InboundMessage) engine.Action { return engine.SetSelfBet{Msg: m} }},
	}
	for _, entry := range messages {
		var m types.InboundMessage
		if store.Get(entry.key, &m) {
			actions = append(actions, entry.wrap(m))
		}
	}

	var errRec ErrorRecord
	if store.Get(storage.KeyError, &errRec) {
		actions = append(actions, engine.SetError{Err: errRec.Error, Code: errRec.ErrorCode, Event: errRec.Event})
	}

	var stage types.Stage
	if store.Get(storage.KeyCurrentStage, &stage) && stage.Known() {
		actions = append(actions, engine.SetCurrentStage{Stage: stage})
	}

	var second WinnerRecord
	if store.Get(storage.KeySecondRoundWinner, &second) {
		actions = append(actions, engine.SetSecondRoundWinner{Won: second.IsWinner, Price: second.Price})
	}
	var first WinnerRecord
	if store.Get(storage.KeyFirstRoundWinner, &first) {
		actions = append(actions, engine.SetFirstRoundWinner{Won: first.IsWinner, Price: first.Price})
	}

	var win json.RawMessage
	if store.Get(storage.KeyWinData, &win) {
		actions = append(actions, engine.SetWinData{Data: win})
	}

	return engine.ReduceAll(s, actions)
}
