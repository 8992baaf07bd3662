package models

// QuestionType tags the kinds of dynamic form questions an event can define.
type QuestionType string

const (
	QuestionText        QuestionType = "text"
	QuestionTextarea    QuestionType = "textarea"
	QuestionSelect      QuestionType = "select"
	QuestionMultiSelect QuestionType = "multiselect"
	QuestionCheckbox    QuestionType = "checkbox"
)

// Question is one entry of an event's registration form schema. The schema
// is defined per event; answers are stored as an open question-id -> value
// mapping on each registration, so consumers must tolerate ids that no
// longer exist in the schema and schema ids with no stored answer.
type Question struct {
	ID       string       `json:"id"`
	EventID  string       `json:"event_id,omitempty"`
	Type     QuestionType `json:"type"`
	Title    string       `json:"title"`
	Required bool         `json:"required"`
	Options  []string     `json:"options,omitempty"`
	Position int          `json:"position,omitempty"`
}
