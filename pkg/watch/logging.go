package watch

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("fxengine/watch", "websocket watch endpoint")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
