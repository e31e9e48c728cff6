package api

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("fxengine/api", "http access to documents")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
