package wizard

// Step is a page of the memory wizard.
type Step int

const (
	StepDate Step = iota
	StepTitle
	StepDescription
	StepLocation
	StepImage
)

// Steps lists every step in order.
var Steps = []Step{StepDate, StepTitle, StepDescription, StepLocation, StepImage}

func (s Step) String() string {
	switch s {
	case StepDate:
		return "date"
	case StepTitle:
		return "title"
	case StepDescription:
		return "description"
	case StepLocation:
		return "location"
	case StepImage:
		return "image"
	default:
		return "unknown"
	}
}

// Valid reports whether s names a wizard step.
func (s Step) Valid() bool {
	return s >= StepDate && s <= StepImage
}

// Last reports whether s is the final step, where advancing submits.
func (s Step) Last() bool {
	return s == StepImage
}
