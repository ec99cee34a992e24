package commands

import "errors"

// Command is a mutating request. Validate checks shape only; rules that need
// the clock or storage run in the service.
type Command interface {
	CommandType() string
	Validate() error
}

var ErrEmptyBatch = errors.New("batch must contain at least one item")
