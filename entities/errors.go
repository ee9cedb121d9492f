package entities

import "errors"

var ErrEmptyEvent = errors.New("event without payload")
