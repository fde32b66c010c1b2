package difficulty

// Transition is a difficulty-change decision.
type Transition string

const (
	Increase Transition = "increase"
	Decrease Transition = "decrease"
	Maintain Transition = "maintain"
)
