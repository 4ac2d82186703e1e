package model

// Subject is the track a Cohort follows.
type Subject string

const (
	SubjectSEI  Subject = "SEI"
	SubjectUXDI Subject = "UXDI"
	SubjectDSI  Subject = "DSI"
)

type SubjectChoice struct {
	Value Subject `json:"value"`
	Label string  `json:"label"`
}

// Subjects lists the allowed subject values in display order.
var Subjects = []SubjectChoice{
	{Value: SubjectSEI, Label: "Software Engineering Immersive"},
	{Value: SubjectUXDI, Label: "User Experience Design Immersive"},
	{Value: SubjectDSI, Label: "Data Science Immersive"},
}

func (s Subject) Valid() bool {
	for _, c := range Subjects {
		if c.Value == s {
			return true
		}
	}
	return false
}

// Label returns the display label, or the raw value if s is unknown.
func (s Subject) Label() string {
	for _, c := range Subjects {
		if c.Value == s {
			return c.Label
		}
	}
	return string(s)
}
