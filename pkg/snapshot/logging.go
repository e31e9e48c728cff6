package snapshot

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("fxengine/snapshot", "document snapshots")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
