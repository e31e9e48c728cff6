package scheduler

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("fxengine/scheduler", "formula evaluation scheduler")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
