package methodfsm

import "errors"

var errTerminated = errors.New("methodfsm: machine already terminated")
