package api

import (
	"github.com/mandelsoft/fxengine/pkg/value"
)

type Error struct {
	Error string `json:"error"`
}

type Items struct {
	Items []string `json:"items"`
}

// Input is the request body for cells. Input starting with "="
// is a formula.
type Input struct {
	Input string `json:"input"`
}

// Source is the request body for other formulas.
type Source struct {
	Source string `json:"source"`
}

type Value struct {
	Value *value.Encoded `json:"value"`
}

type Recalculation struct {
	Evaluations int64 `json:"evaluations"`
}
