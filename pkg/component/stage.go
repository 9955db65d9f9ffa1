package component

// Stage identifies a point in the component lifecycle.
type Stage string

const (
	// StageBeforeDataCreate fires inside the data factory, before ordinary
	// fields are initialized. It is a hook stage only, never a lifecycle
	// state.
	StageBeforeDataCreate Stage = "beforeDataCreate"

	StageBeforeCreate  Stage = "beforeCreate"
	StageCreated       Stage = "created"
	StageBeforeMount   Stage = "beforeMount"
	StageMounted       Stage = "mounted"
	StageBeforeUpdate  Stage = "beforeUpdate"
	StageUpdated       Stage = "updated"
	StageActivated     Stage = "activated"
	StageDeactivated   Stage = "deactivated"
	StageBeforeDestroy Stage = "beforeDestroy"
	StageDestroyed     Stage = "destroyed"

	// StageErrorCaptured is reachable from any state and changes no state.
	StageErrorCaptured Stage = "errorCaptured"
)

// Stages lists every lifecycle stage in transition order.
var Stages = []Stage{
	StageBeforeCreate,
	StageCreated,
	StageBeforeMount,
	StageMounted,
	StageBeforeUpdate,
	StageUpdated,
	StageActivated,
	StageDeactivated,
	StageBeforeDestroy,
	StageDestroyed,
}

// transitions maps each stage to the stages legally reachable from it.
var transitions = map[Stage][]Stage{
	"":                 {StageBeforeCreate},
	StageBeforeCreate:  {StageCreated},
	StageCreated:       {StageBeforeMount, StageBeforeDestroy},
	StageBeforeMount:   {StageMounted, StageBeforeDestroy},
	StageMounted:       {StageBeforeUpdate, StageDeactivated, StageBeforeDestroy},
	StageBeforeUpdate:  {StageUpdated},
	StageUpdated:       {StageBeforeUpdate, StageDeactivated, StageBeforeDestroy},
	StageActivated:     {StageBeforeUpdate, StageDeactivated, StageBeforeDestroy},
	StageDeactivated:   {StageActivated, StageBeforeDestroy},
	StageBeforeDestroy: {StageDestroyed},
	StageDestroyed:     {},
}

// CanTransition reports whether moving from one stage to another is legal.
// StageErrorCaptured is reachable from anywhere.
func CanTransition(from, to Stage) bool {
	if to == StageErrorCaptured {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
