package graph

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("fxengine/graph", "formula dependency graph")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
