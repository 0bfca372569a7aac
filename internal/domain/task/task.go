package task

import "encoding/json"

type Task interface {
	TaskType() string
	TaskValue() ([]byte, error)
}

// Task type names double as stream suffixes.
const (
	TypeReload = "ReloadTask"
	TypeQuote  = "QuoteTask"
)

// Types lists every task type the engine consumes.
var Types = []string{TypeReload, TypeQuote}

// DefaultTaskValue provides a common implementation for TaskValue
func DefaultTaskValue(task interface{}) ([]byte, error) {
	return json.Marshal(task)
}

func UnmarshalTask[T Task](task []byte) (T, error) {
	var t T
	err := json.Unmarshal(task, &t)
	return t, err
}
