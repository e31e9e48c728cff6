package app

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("fxengine/fxctl", "formula engine command line tool")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
